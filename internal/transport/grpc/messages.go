package grpc

import "planguard/internal/model"

type ListRequest struct {
	Status model.RequestStatus `json:"status,omitempty"`
	UserID string              `json:"user_id,omitempty"`
}

type DecisionRequest struct {
	RequestID string `json:"request_id"`
}

// Failure describes an expected refusal. Storage failures travel as gRPC
// status Unavailable instead.
type Failure struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	DaysRemaining int    `json:"days_remaining,omitempty"`
	RetryAfterMS  int64  `json:"retry_after_ms,omitempty"`
	BanLevel      int    `json:"ban_level,omitempty"`
	Permanent     bool   `json:"permanent,omitempty"`
}

type SubmitResponse struct {
	Success bool                  `json:"success"`
	Request *model.PaymentRequest `json:"request,omitempty"`
	Failure *Failure              `json:"failure,omitempty"`
}

type ListResponse struct {
	Requests []model.PaymentRequest `json:"requests"`
}

type DecisionResponse struct {
	Success bool                  `json:"success"`
	Result  *model.DecisionResult `json:"result,omitempty"`
	Failure *Failure              `json:"failure,omitempty"`
}

type EventRequest struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

type EventResponse struct {
	Success bool `json:"success"`
}
