package document

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

type Handler struct {
	svc *document.Service
}

func NewHandler(svc *document.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/transitions", h.transition)
	r.Post("/{id}/payments", h.recordPayment)
	r.Post("/{id}/convert", h.convert)
}

// TotalsRoutes serves the live totals preview used while a draft is edited.
func (h *Handler) TotalsRoutes(r chi.Router) {
	r.Post("/", h.totals)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.svc.Create(r.Context(), req.Kind, req.draft())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(doc, h.svc.Calculator()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := document.ListFilter{}

	if s := r.URL.Query().Get("kind"); s != "" {
		kind := document.Kind(s)
		filter.Kind = &kind
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := document.Status(s)
		filter.Status = &status
	}

	if s := r.URL.Query().Get("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid customer_id", http.StatusBadRequest)
			return
		}

		filter.CustomerID = &id
	}

	docs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(docs, h.svc.Calculator()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(doc, h.svc.Calculator()))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.svc.Update(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(doc, h.svc.Calculator()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	var payment *document.Payment
	if req.Payment != nil {
		payment = &document.Payment{Amount: req.Payment.Amount}
	}

	doc, err := h.svc.Transition(r.Context(), id, req.Status, payment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(doc, h.svc.Calculator()))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.svc.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(doc, h.svc.Calculator()))
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Convert(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(inv, h.svc.Calculator()))
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.ComputeTotals(toLineItems(req.LineItems), req.TaxRate, req.Discount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTotalsResponse(t))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}
