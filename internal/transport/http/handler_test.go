package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planguard/internal/catalog"
	"planguard/internal/model"
	"planguard/internal/repository"
	"planguard/internal/service"
)

type mockService struct {
	submitErr   error
	decisionErr error
	lastSubmit  model.SubmitRequest
}

func (m *mockService) SubmitRequest(ctx context.Context, req model.SubmitRequest) (*model.PaymentRequest, error) {
	m.lastSubmit = req
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &model.PaymentRequest{ID: "r1", UserID: req.UserID, Status: model.StatusPending}, nil
}
func (m *mockService) ListRequests(ctx context.Context, status model.RequestStatus) ([]model.PaymentRequest, error) {
	return nil, nil
}
func (m *mockService) ListUserRequests(ctx context.Context, userID string) ([]model.PaymentRequest, error) {
	return nil, nil
}
func (m *mockService) Approve(ctx context.Context, requestID string) (*model.DecisionResult, error) {
	if m.decisionErr != nil {
		return nil, m.decisionErr
	}
	return &model.DecisionResult{Outcome: model.OutcomeApplied, Request: model.PaymentRequest{ID: requestID}}, nil
}
func (m *mockService) Reject(ctx context.Context, requestID string) (*model.DecisionResult, error) {
	return m.Approve(ctx, requestID)
}
func (m *mockService) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	return &model.Account{Ledger: model.NewLedger(userID)}, nil
}
func (m *mockService) Catalog() *catalog.Catalog                          { return catalog.Default() }
func (m *mockService) RecordEvent(ctx context.Context, e model.Event) error { return nil }

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

var userHeaders = map[string]string{"X-User-ID": "u1", "X-User-Name": "Ada", "X-User-Email": "ada@example.com"}

func TestSubmit_ErrorMapping(t *testing.T) {
	until := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"permaban", model.ErrPermanentlyBanned, http.StatusForbidden, "permanently_banned"},
		{"temp ban", &model.TemporarilyBannedError{Until: until, DaysRemaining: 3}, http.StatusForbidden, "banned"},
		{"newly banned", &model.NewlyBannedError{Level: 1, Until: &until}, http.StatusForbidden, "newly_banned"},
		{"rate limited", &model.RateLimitedError{RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, "rate_limited"},
		{"unknown item", model.ErrUnknownItem, http.StatusBadRequest, "invalid_request"},
		{"storage down", context.DeadlineExceeded, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(&mockService{submitErr: tc.err}, nil)
			rec := do(t, h, http.MethodPost, "/requests", `{"type":"slots","item_id":"5 Slots"}`, userHeaders)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}
}

func TestSubmit_ErrorDetails(t *testing.T) {
	until := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)

	h := NewRouter(&mockService{submitErr: &model.TemporarilyBannedError{Until: until, DaysRemaining: 3}}, nil)
	body := decodeError(t, do(t, h, http.MethodPost, "/requests", `{}`, userHeaders))
	assert.Equal(t, 3, body.DaysRemaining)
	require.NotNil(t, body.BanUntil)
	assert.True(t, body.BanUntil.Equal(until))

	h = NewRouter(&mockService{submitErr: &model.RateLimitedError{RetryAfter: 1500 * time.Millisecond}}, nil)
	body = decodeError(t, do(t, h, http.MethodPost, "/requests", `{}`, userHeaders))
	assert.Equal(t, 2, body.RetryAfterSeconds)
}

func TestSubmit_ReadsIdentityHeaders(t *testing.T) {
	svc := &mockService{}
	h := NewRouter(svc, nil)
	headers := map[string]string{"X-User-ID": "u1", "X-User-Email": "ada@example.com", "Idempotency-Key": "k1"}
	rec := do(t, h, http.MethodPost, "/requests", `{"type":"pins","item_id":"10 Pins","amount":100}`, headers)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ada@example.com", svc.lastSubmit.UserEmail)
	assert.Equal(t, "k1", svc.lastSubmit.IdempotencyKey)
	assert.Equal(t, int64(100), svc.lastSubmit.Amount)
}

func TestSubmit_BadInput(t *testing.T) {
	h := NewRouter(&mockService{}, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/requests", `{`, userHeaders).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/requests", `{}`, nil).Code)
}

func TestDecision_ErrorMapping(t *testing.T) {
	h := NewRouter(&mockService{decisionErr: model.ErrRequestNotFound}, nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/requests/r1/approve", "", nil).Code)

	h = NewRouter(&mockService{decisionErr: model.ErrAlreadyProcessed}, nil)
	rec := do(t, h, http.MethodPost, "/requests/r1/reject", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_processed", decodeError(t, rec).Error)
}

func TestEndToEnd_WithEngine(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.NewEngine(service.Deps{Store: store, Audit: store})
	h := NewRouter(svc, nil)

	rec := do(t, h, http.MethodPost, "/requests", `{"type":"slots","item_id":"5 Slots","amount":200}`, userHeaders)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.PaymentRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(t, h, http.MethodPost, "/requests", `{"type":"slots","item_id":"5 Slots","amount":200}`, userHeaders)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodGet, "/requests?status=pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []model.PaymentRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	rec = do(t, h, http.MethodPost, "/requests/"+created.ID+"/approve", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/requests/"+created.ID+"/approve", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/accounts/u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acc model.Account
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&acc))
	assert.Equal(t, int64(5), acc.Ledger.ExtraSlots)
	assert.Equal(t, int64(8), acc.ProjectLimit)

	rec = do(t, h, http.MethodGet, "/users/u1/requests", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/requests?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogAndHealth(t *testing.T) {
	h := NewRouter(&mockService{}, nil)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)

	rec := do(t, h, http.MethodGet, "/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c catalog.Catalog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	assert.NotEmpty(t, c.SlotPackages)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "", nil).Code)
}
