package sales

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) CheckAndInsert(ctx context.Context, key, scope string) error {
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *fakeIdempotencyStore) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func newTestRouter(t *testing.T, repo Repository, agentID uuid.UUID) chi.Router {
	t.Helper()
	return newIdempotentRouter(t, repo, agentID, nil)
}

func newIdempotentRouter(t *testing.T, repo Repository, agentID uuid.UUID, store IdempotencyStore) chi.Router {
	t.Helper()
	handler := NewHandler(slog.Default(), newTestService(repo), store, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if agentID != uuid.Nil {
				req = req.WithContext(shared.ContextWithAgent(req.Context(), agentID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/sales", func(r chi.Router) {
		handler.MountRoutes(r, 0, 0)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSaleEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, uuid.New())

	body := `{
		"customerName": "Acme Trading",
		"paymentMethod": "credit",
		"items": [{"itemName": "Widget", "quantity": 3, "unitPrice": "1000", "discount": "10"}]
	}`
	rec := doRequest(t, router, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID           string `json:"id"`
		FinalAmount  string `json:"finalAmount"`
		CreditStatus string `json:"creditStatus"`
		Balance      string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "2700", resp.FinalAmount)
	require.Equal(t, "unpaid", resp.CreditStatus)
	require.Equal(t, "2700", resp.Balance)
}

func TestCreateSaleEndpointUnauthenticated(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, uuid.Nil)

	rec := doRequest(t, router, http.MethodPost, "/sales", `{"customerName":"x"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSaleEndpointValidation(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, uuid.New())

	body := `{
		"customerName": "",
		"paymentMethod": "credit",
		"items": [{"itemName": "Widget", "quantity": 0, "unitPrice": "-5"}]
	}`
	rec := doRequest(t, router, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var problem struct {
		Title      string `json:"title"`
		Violations []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Validation Failed", problem.Title)

	fields := make(map[string]bool)
	for _, v := range problem.Violations {
		fields[v.Field] = true
	}
	require.True(t, fields["customerName"])
	require.True(t, fields["items[0].quantity"])
	require.True(t, fields["items[0].unitPrice"])
}

func TestCreateSaleEndpointMalformedBody(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, uuid.New())

	rec := doRequest(t, router, http.MethodPost, "/sales", `{"customerName": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowSaleEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	router := newTestRouter(t, repo, agent)

	svc := newTestService(repo)
	sale, err := svc.CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/sales/"+sale.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/sales/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/sales/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordPaymentEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	router := newTestRouter(t, repo, agent)

	svc := newTestService(repo)
	sale, err := svc.CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/sales/"+sale.ID.String()+"/payments", `{"amount": "1000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		CreditStatus string `json:"creditStatus"`
		TotalPaid    string `json:"totalPaid"`
		Balance      string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "partial", resp.CreditStatus)
	require.Equal(t, "1000", resp.TotalPaid)
	require.Equal(t, "1700", resp.Balance)
}

func TestRecordPaymentEndpointOnCashSale(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	router := newTestRouter(t, repo, agent)

	svc := newTestService(repo)
	req := creditSaleRequest()
	req.PaymentMethod = PaymentMethodCash
	sale, err := svc.CreateSale(context.Background(), req, agent)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/sales/"+sale.ID.String()+"/payments", `{"amount": "100"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func doPaymentWithKey(t *testing.T, router http.Handler, saleID, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sales/"+saleID+"/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, key)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRecordPaymentIdempotencyDuplicate(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	store := newFakeIdempotencyStore()
	router := newIdempotentRouter(t, repo, agent, store)

	sale, err := newTestService(repo).CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	rec := doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "1000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "1000"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	after, err := newTestService(repo).GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, after.Payments, 1, "the replay must not append a second payment")
}

func TestRecordPaymentIdempotencyReleasedOnRejection(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	store := newFakeIdempotencyStore()
	router := newIdempotentRouter(t, repo, agent, store)

	sale, err := newTestService(repo).CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	rec := doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "-5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, store.keys["key-1"], "a rejected attempt must release the key")

	// The corrected retry reuses the same key and succeeds.
	rec = doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "1000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRecordPaymentIdempotencyKeptOnAmbiguousFailure(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	store := newFakeIdempotencyStore()
	router := newIdempotentRouter(t, repo, agent, store)

	sale, err := newTestService(repo).CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	// A storage failure leaves the outcome ambiguous; the key must survive
	// so a blind retry cannot double-record.
	repo.appendErr = errors.New("connection reset")
	rec := doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "1000"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.True(t, store.keys["key-1"], "an ambiguous failure must keep the key")

	rec = doPaymentWithKey(t, router, sale.ID.String(), "key-1", `{"amount": "1000"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSalesEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	agent := uuid.New()
	router := newTestRouter(t, repo, agent)

	svc := newTestService(repo)
	_, err := svc.CreateSale(context.Background(), creditSaleRequest(), agent)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/sales?paymentMethod=credit", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sales      []json.RawMessage `json:"sales"`
		Pagination struct {
			Page  int `json:"page"`
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sales, 1)
	require.Equal(t, 1, resp.Pagination.Page)
	require.Equal(t, 1, resp.Pagination.Total)
}
