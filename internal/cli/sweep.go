package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire stale estimates and mark late invoices overdue",
	Long: `Moves sent estimates past their expiry date to expired and sent invoices
past their due date to overdue. Safe to run repeatedly, e.g. from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		now := time.Now().UTC()
		if cmd.Flags().Changed("at") {
			at, _ := cmd.Flags().GetString("at")

			t, err := time.Parse(time.DateOnly, at)
			if err != nil {
				return fmt.Errorf("invalid --at date, expected YYYY-MM-DD: %w", err)
			}

			now = t
		}

		expired, err := appInstance.Documents.ExpireEstimates(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to expire estimates: %w", err)
		}

		overdue, err := appInstance.Documents.MarkOverdue(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to mark overdue invoices: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d estimate(s) expired, %d invoice(s) overdue\n", expired, overdue)

		return nil
	},
}

func init() {
	sweepCmd.Flags().String("at", "", "Evaluate as of this date (YYYY-MM-DD) instead of now")
}
