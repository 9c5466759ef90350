package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/app"
	"github.com/MrJamesThe3rd/tradebooks/internal/config"
	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	t.Setenv("STORE_DRIVER", config.DriverMemory)

	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	require.NoError(t, Execute(context.Background()), out.String())

	return out.String()
}

func TestCLI(t *testing.T) {
	a := newTestApp(t)
	SetApp(a)

	t.Run("InventoryPutAndList", func(t *testing.T) {
		out := run(t, "inventory", "put", "Furnace filter", "--sku", "FLT-16", "--cost", "12.50", "--stock", "4")
		assert.Contains(t, out, "stocked at 4")

		out = run(t, "inventory", "list")
		assert.Contains(t, out, "FLT-16")
		assert.Contains(t, out, "12.50")
	})

	t.Run("Totals", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lines.csv")
		sheet := "description;quantity;unit_price;category\nLabor;2;50;labor\nMaterials;3;10;materials\n"
		require.NoError(t, os.WriteFile(path, []byte(sheet), 0o600))

		out := run(t, "totals", path, "--tax", "9.25")
		assert.Contains(t, out, "Subtotal: 130.00")
		assert.Contains(t, out, "Tax (9.25%): 12.03")
		assert.Contains(t, out, "Total: 142.03")
	})

	t.Run("SweepAndList", func(t *testing.T) {
		ctx := context.Background()

		est, err := a.Documents.Create(ctx, document.KindEstimate, document.Draft{
			CustomerID: uuid.New(),
			LineItems: []document.LineItem{{
				Description: "Inspection",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(80),
				Category:    document.CategoryLabor,
			}},
		})
		require.NoError(t, err)

		_, err = a.Documents.Transition(ctx, est.ID, document.StatusSent, nil)
		require.NoError(t, err)

		out := run(t, "sweep", "--at", "2099-01-01")
		assert.Contains(t, out, "1 estimate(s) expired, 0 invoice(s) overdue")

		out = run(t, "documents", "list", "--kind", "estimate")
		assert.Contains(t, out, est.Number)
		assert.Contains(t, out, "expired")
		assert.Contains(t, out, "Total: 1 document(s)")
	})
}
