package importcsv_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/document/memstore"
	"github.com/MrJamesThe3rd/tradebooks/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
	"github.com/MrJamesThe3rd/tradebooks/internal/lineimport"
)

func newRouter(store *memstore.Store) http.Handler {
	svc := document.NewService(store, document.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	r := chi.NewRouter()
	r.Route("/line-items/import", importcsv.NewHandler(lineimport.NewParser(store), svc).Routes)

	return r
}

func upload(t *testing.T, fields map[string]string, csv string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if csv != "" {
		fw, err := mw.CreateFormFile("file", "lines.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(csv))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/line-items/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_ImportCSV(t *testing.T) {
	store := memstore.New()
	filterID := uuid.New()
	store.AddItem(inventory.Item{ID: filterID, Name: "Furnace filter", SKU: "FLT-16", UnitCost: decimal.RequireFromString("12.50"), StockLevel: 3})

	csv := "description;quantity;unit_price;category;sku\n" +
		"Labor;2;50,00;labor;\n" +
		"Furnace filter;3;12,50;materials;FLT-16\n"

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, upload(t, map[string]string{"tax_rate": "10"}, csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Charset   string `json:"charset"`
		HasHeader bool   `json:"has_header"`
		LineItems []struct {
			Description  string `json:"description"`
			InventoryRef *struct {
				ItemID uuid.UUID `json:"item_id"`
			} `json:"inventory_ref"`
		} `json:"line_items"`
		Totals struct {
			Subtotal string `json:"subtotal"`
			Total    string `json:"total"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "UTF-8", body.Charset)
	assert.True(t, body.HasHeader)
	require.Len(t, body.LineItems, 2)
	assert.Nil(t, body.LineItems[0].InventoryRef)
	require.NotNil(t, body.LineItems[1].InventoryRef)
	assert.Equal(t, filterID, body.LineItems[1].InventoryRef.ItemID)
	assert.Equal(t, "137.50", body.Totals.Subtotal)
	assert.Equal(t, "151.25", body.Totals.Total)

	it, _ := store.Item(filterID)
	assert.Equal(t, int64(3), it.StockLevel, "import never touches stock")
}

func TestHandler_ImportCSVErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		csv    string
		status int
		row    int
	}{
		{name: "NoFile", status: http.StatusBadRequest},
		{name: "BadTaxRate", fields: map[string]string{"tax_rate": "ten"}, csv: "Labor;1;1;labor\n", status: http.StatusBadRequest},
		{name: "BadRow", csv: "Labor;1;1;labor\nParts;x;1;materials\n", status: http.StatusUnprocessableEntity, row: 2},
		{name: "Empty", csv: "description;quantity;unit_price\n", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(memstore.New()).ServeHTTP(rec, upload(t, tt.fields, tt.csv))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.row > 0 {
				var body struct {
					Row int `json:"row"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.row, body.Row)
			}
		})
	}
}
