package command

// root.go defines the root command and the connection flags shared by every
// subcommand.

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"bridgelink/internal/remote"

	"github.com/spf13/cobra"
)

// Version of the CLI itself; the controller reports its own.
const Version = "2.1.0"

var (
	host        string        // controller host
	commandPort int           // command channel port
	pushPort    int           // push channel port
	timeout     time.Duration // per-command timeout
	showJSON    bool          // print raw reply frames
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bridgecli",
	Short: "bridgecli - operator console for the bridge controller",
	Long: `bridgecli talks to a bridge controller over its two TCP channels:
- exec runs a single command and prints the reply
- shell opens an interactive prompt
- watch follows pushed status updates and events

Commands take key=value arguments, e.g.
  bridgecli exec set_bridge_position position=0.5`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultHost := "127.0.0.1"
	if v := os.Getenv("BRIDGE_HOST"); v != "" {
		defaultHost = v
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", defaultHost, "controller host")
	rootCmd.PersistentFlags().IntVar(&commandPort, "command-port", remote.DefaultCommandPort, "command channel port")
	rootCmd.PersistentFlags().IntVar(&pushPort, "push-port", remote.DefaultPushPort, "push channel port")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "time to wait for each reply")
	rootCmd.PersistentFlags().BoolVar(&showJSON, "json", false, "print raw reply frames")

	rootCmd.AddCommand(execCmd, shellCmd, watchCmd, versionCmd)
}

func commandAddr() string {
	return net.JoinHostPort(host, strconv.Itoa(commandPort))
}

func pushAddr() string {
	return net.JoinHostPort(host, strconv.Itoa(pushPort))
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
