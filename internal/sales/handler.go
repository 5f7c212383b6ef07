package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/observability"
	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

const idempotencyHeader = "Idempotency-Key"

const maxListLimit = 100

// IdempotencyStore guards payment retries. *shared.IdempotencyStore
// satisfies it.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes the sales JSON API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyStore
	metrics     *observability.Metrics
}

// NewHandler constructs the sales HTTP handler. idempotency and metrics may
// be nil in tests.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyStore, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency, metrics: metrics}
}

// Create handles POST /sales.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	agentID, ok := shared.AgentFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	sale, err := h.service.CreateSale(r.Context(), req, agentID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, NewSaleResponse(sale))
}

// Update handles PUT /sales/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	agentID, ok := shared.AgentFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "sale id must be a valid UUID")
		return
	}

	var req UpdateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	sale, err := h.service.UpdateSale(r.Context(), id, req, agentID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, NewSaleResponse(sale))
}

// RecordPayment handles POST /sales/{id}/payments. An optional
// Idempotency-Key header protects retries of ambiguous failures from
// double-counting a payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	agentID, ok := shared.AgentFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "sale id must be a valid UUID")
		return
	}

	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	idemKey := r.Header.Get(idempotencyHeader)
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "sales.payment"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this payment was already processed")
				return
			}
			h.respondError(w, err)
			return
		}
	}

	sale, err := h.service.RecordPayment(r.Context(), id, req, agentID)
	if err != nil {
		// The key is released only when the attempt is known not to have
		// appended a payment, so a corrected retry is not blocked. On an
		// ambiguous failure the key stays: a blind retry must get 409, not
		// a second ledger entry.
		if idemKey != "" && h.idempotency != nil && paymentNotRecorded(err) {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			defer cancel()
			if delErr := h.idempotency.Delete(cleanupCtx, idemKey); delErr != nil {
				h.logger.Warn("idempotency key cleanup failed", slog.Any("error", delErr))
			}
		}
		h.respondError(w, err)
		return
	}

	resp := NewSaleResponse(sale)
	if h.metrics != nil {
		h.metrics.PaymentRecorded(string(sale.EffectiveCreditStatus()), resp.TotalPaid.GreaterThan(sale.FinalAmount))
	}

	httpx.JSON(w, http.StatusOK, resp)
}

// Show handles GET /sales/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "sale id must be a valid UUID")
		return
	}

	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, NewSaleResponse(sale))
}

// List handles GET /sales with paymentMethod/status/creditStatus filters and
// page/limit pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r, maxListLimit)

	req := ListSalesRequest{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if v := r.URL.Query().Get("paymentMethod"); v != "" {
		pm := PaymentMethod(v)
		req.PaymentMethod = &pm
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := SaleStatus(v)
		req.Status = &st
	}
	if v := r.URL.Query().Get("creditStatus"); v != "" {
		cs := CreditStatus(v)
		req.CreditStatus = &cs
	}
	if v := r.URL.Query().Get("client"); v != "" {
		if clientID, err := uuid.Parse(v); err == nil {
			req.ClientID = &clientID
		}
	}
	if v := r.URL.Query().Get("dateFrom"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			req.DateFrom = &t
		}
	}
	if v := r.URL.Query().Get("dateTo"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			req.DateTo = &t
		}
	}

	sales, total, err := h.service.ListSales(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := ListSalesResponse{
		Sales:      make([]SaleResponse, 0, len(sales)),
		Pagination: shared.NewPagination(page, perPage, total),
	}
	for i := range sales {
		resp.Sales = append(resp.Sales, NewSaleResponse(&sales[i]))
	}

	httpx.JSON(w, http.StatusOK, resp)
}

// paymentNotRecorded reports whether the error guarantees the attempt wrote
// nothing: rejected input, a missing or non-credit sale, or a conditional
// write that never landed. Anything else (a failed insert mid-transaction, a
// failed re-read after commit) is treated as ambiguous.
func paymentNotRecorded(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotCreditSale) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, httpx.ErrMalformedBody)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		violations := make([]httpx.Violation, 0, len(ve.Violations))
		for _, v := range ve.Violations {
			violations = append(violations, httpx.Violation{Field: v.Field, Message: v.Message})
		}
		httpx.ValidationProblem(w, "one or more fields are invalid", violations)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
	case errors.Is(err, ErrNotCreditSale):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrNotCreditSale.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "sale was modified concurrently, retry the operation")
	case errors.Is(err, httpx.ErrMalformedBody):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body is not valid JSON for this operation")
	default:
		h.logger.Error("sales handler error", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
