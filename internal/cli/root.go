package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tradebooks/internal/app"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "tradebooks",
	Short: "Operator tools for estimates, invoices and stock",
	Long: `Tradebooks runs the maintenance jobs behind the documents API: expiring
stale estimates, flagging overdue invoices, seeding the inventory catalog and
previewing totals for a line-item sheet.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(totalsCmd)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen-3] + "..."
}
