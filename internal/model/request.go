package model

import "time"

type RequestType string

const (
	RequestUpgrade RequestType = "upgrade"
	RequestSlots   RequestType = "slots"
	RequestPins    RequestType = "pins"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestUpgrade, RequestSlots, RequestPins:
		return true
	}
	return false
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// PaymentRequest is a user's ask for a plan upgrade or extra capacity,
// confirmed out of band by bank transfer.
type PaymentRequest struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	UserName   string        `json:"user_name"`
	UserEmail  string        `json:"user_email"`
	Type       RequestType   `json:"type"`
	ItemID     string        `json:"item_id"`
	Quantity   int64         `json:"quantity"`
	Amount     int64         `json:"amount"`
	Details    string        `json:"details"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ApprovedAt *time.Time    `json:"approved_at,omitempty"`
	RejectedAt *time.Time    `json:"rejected_at,omitempty"`
}

type SubmitRequest struct {
	UserID         string      `json:"user_id"`
	UserName       string      `json:"user_name"`
	UserEmail      string      `json:"user_email"`
	Type           RequestType `json:"type"`
	ItemID         string      `json:"item_id"`
	Amount         int64       `json:"amount"`
	Details        string      `json:"details"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeRevoked Outcome = "revoked"
)

// DecisionResult describes an operator decision that was actually applied.
type DecisionResult struct {
	Outcome  Outcome        `json:"outcome"`
	Request  PaymentRequest `json:"request"`
	BanUntil *time.Time     `json:"ban_until,omitempty"`
}
