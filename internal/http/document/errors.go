package document

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`

	Stock *stockErrorDTO `json:"stock,omitempty"`
}

type stockErrorDTO struct {
	ItemID    uuid.UUID `json:"item_id"`
	Item      string    `json:"item"`
	Available int64     `json:"available"`
	Requested int64     `json:"requested"`
}

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		resp   = errorResponse{Error: err.Error()}

		ve  *document.ValidationError
		ite *document.InvalidTransitionError
		ce  *document.ConversionError
		ise *inventory.InsufficientStockError
	)

	if errors.As(err, &ise) {
		resp.Stock = &stockErrorDTO{
			ItemID:    ise.ItemID,
			Item:      ise.Item,
			Available: ise.Available,
			Requested: ise.Requested,
		}
	}

	// A refused transition may wrap the validation error that caused it.
	switch {
	case errors.As(err, &ite):
		status = http.StatusConflict
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		resp.Field = ve.Field
	case errors.Is(err, document.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &ce), errors.As(err, &ise),
		errors.Is(err, document.ErrLocked),
		errors.Is(err, document.ErrDeleteForbidden),
		errors.Is(err, document.ErrConflict):
		status = http.StatusConflict
	default:
		slog.Error("request failed", "error", err)
		resp = errorResponse{Error: "internal error"}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
