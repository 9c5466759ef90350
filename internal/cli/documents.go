package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Inspect estimates and invoices",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := document.ListFilter{}

		if cmd.Flags().Changed("kind") {
			kind, _ := cmd.Flags().GetString("kind")
			k := document.Kind(kind)
			filter.Kind = &k
		}

		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			st := document.Status(status)
			filter.Status = &st
		}

		if cmd.Flags().Changed("customer") {
			s, _ := cmd.Flags().GetString("customer")

			id, err := uuid.Parse(s)
			if err != nil {
				return fmt.Errorf("invalid customer ID: %w", err)
			}

			filter.CustomerID = &id
		}

		docs, err := appInstance.Documents.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		out := cmd.OutOrStdout()

		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents found")
			return nil
		}

		fmt.Fprintf(out, "%-12s %-9s %-10s %12s %12s  %-36s\n", "Number", "Kind", "Status", "Total", "Balance", "ID")
		fmt.Fprintln(out, "--------------------------------------------------------------------------------------------------")

		for _, d := range docs {
			balance := "-"
			if d.Kind == document.KindInvoice {
				balance = d.BalanceDue().StringFixed(2)
			}

			fmt.Fprintf(out, "%-12s %-9s %-10s %12s %12s  %-36s\n",
				truncate(d.Number, 12),
				d.Kind,
				d.Status,
				d.Total.StringFixed(2),
				balance,
				d.ID,
			)
		}

		fmt.Fprintf(out, "\nTotal: %d document(s)\n", len(docs))

		return nil
	},
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)

	documentsListCmd.Flags().String("kind", "", "Filter by kind (estimate, invoice)")
	documentsListCmd.Flags().String("status", "", "Filter by status")
	documentsListCmd.Flags().String("customer", "", "Filter by customer ID")
}
