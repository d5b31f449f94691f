package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bridgelink/internal/client"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [key=value ...]",
	Short: "Run one command and print the reply",
	Long: `Send a single command on the command channel and print the reply.

Values are typed: true/false become booleans, on/high and off/low become 1
and 0, numbers become numbers and anything else is sent as a string.

Examples:
  bridgecli exec ping
  bridgecli exec set_overrides enabled=true
  bridgecli exec set_bridge_position position=0.75`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		c, err := client.Dial(ctx, commandAddr())
		if err != nil {
			return err
		}
		defer c.Close()

		return runLine(ctx, c, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// runLine parses one console line, executes it and prints the reply.
func runLine(ctx context.Context, c *client.Client, line string, out, errOut io.Writer) error {
	in, err := ParseInput(line)
	if err != nil {
		return err
	}
	for _, warning := range in.Warnings {
		voidColor.Fprintf(errOut, "Warning: %s\n", warning)
	}
	if in.Command == "" {
		return nil
	}

	reply, err := c.Execute(ctx, strings.ToLower(in.Command), in.Kwargs)
	if err != nil {
		return fmt.Errorf("%s failed: %w", in.Command, err)
	}
	if showJSON {
		fmt.Fprintln(out, string(reply.Raw))
	}
	printReply(out, reply)
	return nil
}
