package model

import "time"

const (
	TopicSubmitted = "payments.submitted"
	TopicApproved  = "payments.approved"
	TopicRejected  = "payments.rejected"
	TopicRevoked   = "payments.revoked"
	TopicBanned    = "accounts.banned"
)

// Event is published after a lifecycle transition commits. Delivery is best effort;
// consumers dedupe on ID.
type Event struct {
	ID        string        `json:"id"`
	Topic     string        `json:"topic"`
	UserID    string        `json:"user_id"`
	RequestID string        `json:"request_id,omitempty"`
	Type      RequestType   `json:"type,omitempty"`
	ItemID    string        `json:"item_id,omitempty"`
	Status    RequestStatus `json:"status,omitempty"`
	BanLevel  int           `json:"ban_level,omitempty"`
	BanUntil  *time.Time    `json:"ban_until,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
