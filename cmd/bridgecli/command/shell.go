package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bridgelink/internal/client"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive command prompt",
	Long: `Open a prompt on the command channel. Each line is a command with
key=value arguments. Console commands:
  updates     print pushed updates as they arrive
  show_json   also print raw reply frames
  hide_json   stop printing raw frames
  quit        leave (also exit, logout)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd.Context())
		c, err := client.Dial(ctx, commandAddr())
		cancel()
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", c.Addr())
		return runShell(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runShell(ctx context.Context, c *client.Client, in io.Reader, out, errOut io.Writer) error {
	var stopUpdates context.CancelFunc
	defer func() {
		if stopUpdates != nil {
			stopUpdates()
		}
	}()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(strings.Fields(line)[0]) {
		case "quit", "exit", "logout":
			return nil
		case "show_json":
			showJSON = true
			continue
		case "hide_json":
			showJSON = false
			continue
		case "updates":
			if stopUpdates == nil {
				var err error
				if stopUpdates, err = followUpdates(ctx, out); err != nil {
					errColor.Fprintf(errOut, "Error: %v\n", err)
				}
			}
			continue
		}

		cmdCtx, cancel := withTimeout(ctx)
		err := runLine(cmdCtx, c, line, out, errOut)
		cancel()
		if err != nil {
			errColor.Fprintf(errOut, "Error: %v\n", err)
			if !c.Connected() {
				return fmt.Errorf("connection lost: %w", err)
			}
		}
	}
}

// followUpdates prints pushed documents in the background until the returned
// cancel func is called.
func followUpdates(ctx context.Context, out io.Writer) (context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	updates, err := client.Subscribe(ctx, pushAddr())
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		for update := range updates {
			printUpdate(out, time.Now(), update)
		}
	}()
	return cancel, nil
}
