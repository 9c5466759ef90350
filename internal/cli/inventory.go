package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the stocked parts catalog",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory items and stock levels",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := appInstance.Store.ListItems(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list inventory: %w", err)
		}

		out := cmd.OutOrStdout()

		if len(items) == 0 {
			fmt.Fprintln(out, "No inventory items")
			return nil
		}

		fmt.Fprintf(out, "%-24s %-12s %10s %8s  %-36s\n", "Name", "SKU", "Unit cost", "Stock", "ID")
		fmt.Fprintln(out, "---------------------------------------------------------------------------------------------------")

		for _, it := range items {
			fmt.Fprintf(out, "%-24s %-12s %10s %8d  %-36s\n",
				truncate(it.Name, 24),
				truncate(it.SKU, 12),
				it.UnitCost.StringFixed(2),
				it.StockLevel,
				it.ID,
			)
		}

		return nil
	},
}

var inventoryPutCmd = &cobra.Command{
	Use:   "put [name]",
	Short: "Add an inventory item or replace one by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item := inventory.Item{ID: uuid.New(), Name: args[0]}

		if cmd.Flags().Changed("id") {
			s, _ := cmd.Flags().GetString("id")

			id, err := uuid.Parse(s)
			if err != nil {
				return fmt.Errorf("invalid item ID: %w", err)
			}

			item.ID = id
		}

		item.SKU, _ = cmd.Flags().GetString("sku")
		item.StockLevel, _ = cmd.Flags().GetInt64("stock")

		cost, _ := cmd.Flags().GetString("cost")

		unitCost, err := decimal.NewFromString(cost)
		if err != nil {
			return fmt.Errorf("invalid unit cost: %w", err)
		}

		item.UnitCost = unitCost

		if item.StockLevel < 0 || item.UnitCost.IsNegative() {
			return errors.New("stock and cost must not be negative")
		}

		if err := appInstance.Store.PutItem(cmd.Context(), item); err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s) stocked at %d\n", item.Name, item.ID, item.StockLevel)

		return nil
	},
}

func init() {
	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryPutCmd)

	inventoryPutCmd.Flags().String("id", "", "Existing item ID to replace")
	inventoryPutCmd.Flags().String("sku", "", "Stock keeping unit")
	inventoryPutCmd.Flags().String("cost", "0", "Unit cost")
	inventoryPutCmd.Flags().Int64("stock", 0, "Stock level")
}
