package inventory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// Store is the catalog surface the handler needs.
type Store interface {
	inventory.Catalog
	PutItem(ctx context.Context, item inventory.Item) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/{id}", h.put)
}

type itemResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	UnitCost   string    `json:"unit_cost"`
	StockLevel int64     `json:"stock_level"`
}

type putItemRequest struct {
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	StockLevel int64           `json:"stock_level"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		slog.Error("failed to list inventory", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toResponse(it)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req putItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if req.StockLevel < 0 || req.UnitCost.IsNegative() {
		http.Error(w, "stock_level and unit_cost must not be negative", http.StatusBadRequest)
		return
	}

	item := inventory.Item{
		ID:         id,
		Name:       req.Name,
		SKU:        req.SKU,
		UnitCost:   req.UnitCost,
		StockLevel: req.StockLevel,
	}

	if err := h.store.PutItem(r.Context(), item); err != nil {
		slog.Error("failed to store inventory item", "error", err, "item", id)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(item)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toResponse(it inventory.Item) itemResponse {
	return itemResponse{
		ID:         it.ID,
		Name:       it.Name,
		SKU:        it.SKU,
		UnitCost:   it.UnitCost.StringFixed(2),
		StockLevel: it.StockLevel,
	}
}
