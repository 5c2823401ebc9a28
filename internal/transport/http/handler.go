package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"planguard/internal/model"
	"planguard/internal/service"
)

type Handler struct {
	svc service.PaymentService
}

func NewHandler(svc service.PaymentService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/catalog", h.Catalog)
	r.Get("/accounts/{userID}", h.GetAccount)
	r.Get("/users/{userID}/requests", h.ListUserRequests)

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/", h.ListRequests)
		r.Post("/{requestID}/approve", h.Approve)
		r.Post("/{requestID}/reject", h.Reject)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.svc.Catalog())
}

type submitBody struct {
	Type    model.RequestType `json:"type"`
	ItemID  string            `json:"item_id"`
	Amount  int64             `json:"amount"`
	Details string            `json:"details"`
}

// Submit reads the caller's identity from headers set by the session layer in front of us.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.respondError(w, http.StatusUnauthorized, "missing_user")
		return
	}
	req, err := h.svc.SubmitRequest(r.Context(), model.SubmitRequest{
		UserID:         userID,
		UserName:       r.Header.Get("X-User-Name"),
		UserEmail:      r.Header.Get("X-User-Email"),
		Type:           body.Type,
		ItemID:         body.ItemID,
		Amount:         body.Amount,
		Details:        body.Details,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	reqs, err := h.svc.ListRequests(r.Context(), status)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nonNil(reqs))
}

func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListUserRequests(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nonNil(reqs))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Approve(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reject(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.GetAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, acc)
}

// errorBody carries enough detail for the UI to show a countdown or ban notice.
type errorBody struct {
	Error             string     `json:"error"`
	Message           string     `json:"message,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
	DaysRemaining     int        `json:"days_remaining,omitempty"`
	BanLevel          int        `json:"ban_level,omitempty"`
	BanUntil          *time.Time `json:"ban_until,omitempty"`
	Permanent         bool       `json:"permanent,omitempty"`
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var (
		tb *model.TemporarilyBannedError
		rl *model.RateLimitedError
		nb *model.NewlyBannedError
	)
	body := errorBody{Message: err.Error()}
	status := http.StatusServiceUnavailable

	switch {
	case errors.Is(err, model.ErrPermanentlyBanned):
		status, body.Error, body.Permanent = http.StatusForbidden, "permanently_banned", true
	case errors.As(err, &nb):
		status, body.Error = http.StatusForbidden, "newly_banned"
		body.BanLevel, body.BanUntil, body.Permanent = nb.Level, nb.Until, nb.Permanent
	case errors.As(err, &tb):
		status, body.Error = http.StatusForbidden, "banned"
		until := tb.Until
		body.BanUntil, body.DaysRemaining = &until, tb.DaysRemaining
	case errors.As(err, &rl):
		status, body.Error = http.StatusTooManyRequests, "rate_limited"
		body.RetryAfterSeconds = int(math.Ceil(rl.RetryAfter.Seconds()))
	case errors.Is(err, model.ErrRequestNotFound):
		status, body.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrAlreadyProcessed):
		status, body.Error = http.StatusConflict, "already_processed"
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrUnknownItem):
		status, body.Error = http.StatusBadRequest, "invalid_request"
	default:
		body.Error, body.Message = "unavailable", ""
	}
	h.respondJSON(w, status, body)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorBody{Error: message})
}

func nonNil(reqs []model.PaymentRequest) []model.PaymentRequest {
	if reqs == nil {
		return []model.PaymentRequest{}
	}
	return reqs
}
