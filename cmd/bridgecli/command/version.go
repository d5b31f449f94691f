package command

import (
	"fmt"

	"bridgelink/internal/client"

	"github.com/spf13/cobra"
)

var (
	requireVersion string
	localOnly      bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show client and controller versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bridgecli %s\n", Version)
		if localOnly {
			return nil
		}

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		c, err := client.Dial(ctx, commandAddr())
		if err != nil {
			return err
		}
		defer c.Close()

		v, err := c.Handshake(ctx, requireVersion)
		if err != nil {
			return err
		}
		okColor.Fprintf(out, "controller %s (satisfies %s)\n", v, requireVersion)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&requireVersion, "require", "^2.0", "controller version constraint")
	versionCmd.Flags().BoolVar(&localOnly, "local", false, "skip contacting the controller")
}
