package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/lineimport"
)

const maxUpload = 10 << 20

type Handler struct {
	parser *lineimport.Parser
	docSvc *document.Service
}

func NewHandler(parser *lineimport.Parser, docSvc *document.Service) *Handler {
	return &Handler{
		parser: parser,
		docSvc: docSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type inventoryRefDTO struct {
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name"`
	SKU    string    `json:"sku"`
}

type lineItemDTO struct {
	Description  string            `json:"description"`
	Quantity     string            `json:"quantity"`
	UnitPrice    string            `json:"unit_price"`
	Category     document.Category `json:"category"`
	InventoryRef *inventoryRefDTO  `json:"inventory_ref,omitempty"`
}

type totalsDTO struct {
	Subtotal    string `json:"subtotal"`
	TaxableBase string `json:"taxable_base"`
	TaxAmount   string `json:"tax_amount"`
	Total       string `json:"total"`
}

type importResponse struct {
	Charset   string        `json:"charset"`
	HasHeader bool          `json:"has_header"`
	LineItems []lineItemDTO `json:"line_items"`
	Totals    *totalsDTO    `json:"totals,omitempty"`

	// Set when the lines parsed but do not price, e.g. a zero quantity.
	Invalid string `json:"invalid,omitempty"`
}

type rowErrorResponse struct {
	Error string `json:"error"`
	Row   int    `json:"row,omitempty"`
}

// importCSV parses an uploaded line-item sheet and returns the lines with a
// totals preview. Nothing is persisted: the client adds the lines to a draft.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	taxRate, err := formDecimal(r, "tax_rate")
	if err != nil {
		http.Error(w, "invalid tax_rate", http.StatusBadRequest)
		return
	}

	discount, err := formDecimal(r, "discount")
	if err != nil {
		http.Error(w, "invalid discount", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.parser.Parse(r.Context(), file)
	if err != nil {
		var re *lineimport.RowError
		switch {
		case errors.As(err, &re):
			writeJSON(w, http.StatusUnprocessableEntity, rowErrorResponse{Error: re.Reason, Row: re.Row})
		case errors.Is(err, lineimport.ErrEmpty):
			writeJSON(w, http.StatusUnprocessableEntity, rowErrorResponse{Error: err.Error()})
		default:
			slog.Error("line item import failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	resp := importResponse{
		Charset:   res.Charset,
		HasHeader: res.HasHeader,
		LineItems: make([]lineItemDTO, len(res.LineItems)),
	}

	for i, li := range res.LineItems {
		resp.LineItems[i] = lineItemDTO{
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			UnitPrice:   li.UnitPrice.StringFixed(2),
			Category:    li.Category,
		}

		if ref := li.InventoryRef; ref != nil {
			resp.LineItems[i].InventoryRef = &inventoryRefDTO{ItemID: ref.ItemID, Name: ref.Name, SKU: ref.SKU}
		}
	}

	totals, err := h.docSvc.ComputeTotals(res.LineItems, taxRate, discount)
	if err != nil {
		resp.Invalid = err.Error()
	} else {
		resp.Totals = &totalsDTO{
			Subtotal:    totals.Subtotal.StringFixed(2),
			TaxableBase: totals.TaxableBase.StringFixed(2),
			TaxAmount:   totals.TaxAmount.StringFixed(2),
			Total:       totals.Total.StringFixed(2),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func formDecimal(r *http.Request, key string) (decimal.Decimal, error) {
	s := r.FormValue(key)
	if s == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
