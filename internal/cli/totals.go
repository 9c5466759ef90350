package cli

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var totalsCmd = &cobra.Command{
	Use:   "totals [file.csv]",
	Short: "Preview totals for a line-item sheet",
	Long: `Reads description;quantity;unit_price;category[;sku] rows (header optional)
and prints the subtotal, tax and total the documents API would compute.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taxStr, _ := cmd.Flags().GetString("tax")
		discountStr, _ := cmd.Flags().GetString("discount")

		taxRate, err := decimal.NewFromString(taxStr)
		if err != nil {
			return fmt.Errorf("invalid tax rate: %w", err)
		}

		discount, err := decimal.NewFromString(discountStr)
		if err != nil {
			return fmt.Errorf("invalid discount: %w", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open sheet: %w", err)
		}
		defer f.Close()

		res, err := appInstance.Importer.Parse(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("failed to read sheet: %w", err)
		}

		t, err := appInstance.Documents.ComputeTotals(res.LineItems, taxRate, discount)
		if err != nil {
			return fmt.Errorf("failed to compute totals: %w", err)
		}

		calc := appInstance.Documents.Calculator()
		out := cmd.OutOrStdout()

		for _, li := range res.LineItems {
			stock := ""
			if li.InventoryRef != nil {
				stock = " [" + li.InventoryRef.SKU + "]"
			}

			fmt.Fprintf(out, "  %-30s %8s x %10s = %12s%s\n",
				truncate(li.Description, 30),
				li.Quantity.String(),
				li.UnitPrice.StringFixed(2),
				calc.Extension(li).StringFixed(2),
				stock,
			)
		}

		fmt.Fprintf(out, "\n  Subtotal: %s\n", t.Subtotal.StringFixed(2))

		if !t.Discount.IsZero() {
			fmt.Fprintf(out, "  Discount: -%s\n", t.Discount.StringFixed(2))
		}

		if t.DiscountClamped {
			fmt.Fprintln(out, "  (discount exceeded subtotal and was clamped)")
		}

		fmt.Fprintf(out, "  Tax (%s%%): %s\n", taxRate.String(), t.TaxAmount.StringFixed(2))
		fmt.Fprintf(out, "  Total: %s\n", t.Total.StringFixed(2))

		return nil
	},
}

func init() {
	totalsCmd.Flags().String("tax", "0", "Tax rate in percent")
	totalsCmd.Flags().String("discount", "0", "Flat discount")
}
