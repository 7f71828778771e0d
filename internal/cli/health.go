package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthWait     bool
	healthAttempts uint
	healthDelay    time.Duration
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the document service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if healthWait {
			fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for %s (up to %d attempts)...\n", a.cfg.API.BaseURL, healthAttempts)
			err = a.client.WaitReady(ctx, healthAttempts, healthDelay)
		} else {
			err = a.client.Health(ctx)
		}
		if err != nil {
			return a.userError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is up\n", a.cfg.API.BaseURL)
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthWait, "wait", false, "keep checking until the service answers")
	healthCmd.Flags().UintVar(&healthAttempts, "attempts", 10, "checks before giving up with --wait")
	healthCmd.Flags().DurationVar(&healthDelay, "delay", 2*time.Second, "pause between checks with --wait")

	rootCmd.AddCommand(healthCmd)
}
