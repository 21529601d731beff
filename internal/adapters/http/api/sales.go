package api

import (
	"context"
	"net/http"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

// SaleDependencies defines the interface for sale record operations.
type SaleDependencies interface {
	CreateSale(ctx context.Context, in model.SaleInput, idempotencyKey string) (model.SaleRecord, bool, error)
	ListSales(ctx context.Context) ([]model.SaleRecord, error)
	GetSale(ctx context.Context, id string) (model.SaleRecord, error)
	UpdateSale(ctx context.Context, id string, in model.SaleInput) (model.SaleRecord, error)
	DeleteSale(ctx context.Context, id string) error
}

// SalesHandler handles /sales requests.
type SalesHandler struct {
	errorLog
	deps SaleDependencies
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(deps SaleDependencies) *SalesHandler {
	return &SalesHandler{deps: deps}
}

// saleResponse acknowledges a submission. Only a created response carries
// the sale itself.
type saleResponse struct {
	Status    string            `json:"status"`
	Duplicate bool              `json:"duplicate"`
	ID        string            `json:"id"`
	Sale      *model.SaleRecord `json:"sale,omitempty"`
}

type salesListResponse struct {
	Sales []model.SaleRecord `json:"sales"`
	Count int                `json:"count"`
}

// HandleCreate handles POST /sales. A repeated Idempotency-Key answers 200
// with the id of the sale stored by the first request.
func (h *SalesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_sale"
	var in model.SaleInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, duplicate, err := h.deps.CreateSale(r.Context(), in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, saleResponse{Status: "duplicate", Duplicate: true, ID: rec.ID})
		return
	}
	w.Header().Set("Location", "/sales/"+rec.ID)
	writeJSON(w, http.StatusCreated, saleResponse{Status: "created", ID: rec.ID, Sale: &rec})
}

// HandleList handles GET /sales.
func (h *SalesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sales"
	sales, err := h.deps.ListSales(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	if sales == nil {
		sales = []model.SaleRecord{}
	}
	writeJSON(w, http.StatusOK, salesListResponse{Sales: sales, Count: len(sales)})
}

// HandleGet handles GET /sales/{id}.
func (h *SalesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sale"
	rec, err := h.deps.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleUpdate handles PUT /sales/{id}.
func (h *SalesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_sale"
	var in model.SaleInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.UpdateSale(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleDelete handles DELETE /sales/{id}.
func (h *SalesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_sale"
	if err := h.deps.DeleteSale(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
