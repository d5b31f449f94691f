package command

import (
	"errors"
	"time"

	"bridgelink/internal/client"

	"github.com/spf13/cobra"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow pushed updates",
	Long: `Connect to the push channel and print every status update and event the
controller sends. Only one watcher is served at a time; a newer one takes
over. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		updates, err := client.Subscribe(ctx, pushAddr())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		seen := 0
		for update := range updates {
			printUpdate(out, time.Now(), update)
			seen++
			if watchCount > 0 && seen >= watchCount {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("push channel closed by controller")
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "exit after this many updates (0 = no limit)")
}
