package repository

import (
	"context"

	"planguard/internal/model"
)

// Mutation is the set of documents a transactional closure wants written.
// Nil fields are left untouched.
type Mutation struct {
	Ledger  *model.Ledger
	Request *model.PaymentRequest
}

func (m Mutation) empty() bool {
	return m.Ledger == nil && m.Request == nil
}

// Store persists ledgers and payment requests. Update* hold an exclusive lock on
// the documents they pass to fn for the duration of the call and write the returned
// mutation atomically. The mutation is committed even if fn also returns an error,
// so a closure can both persist state and report a refusal; to abort, return an
// empty Mutation. fn's error is returned to the caller unchanged.
type Store interface {
	// UpdateLedger locks the user's ledger, creating a fresh one if none exists.
	UpdateLedger(ctx context.Context, userID string, fn func(model.Ledger) (Mutation, error)) error
	// UpdateRequest locks the request and then its owner's ledger.
	// It returns model.ErrRequestNotFound without calling fn if the id is unknown.
	UpdateRequest(ctx context.Context, requestID string, fn func(model.PaymentRequest, model.Ledger) (Mutation, error)) error

	GetLedger(ctx context.Context, userID string) (model.Ledger, error)
	GetRequest(ctx context.Context, requestID string) (model.PaymentRequest, error)
	// ListRequests returns requests with the given status, or all of them for "".
	ListRequests(ctx context.Context, status model.RequestStatus) ([]model.PaymentRequest, error)
	ListUserRequests(ctx context.Context, userID string) ([]model.PaymentRequest, error)
}

// AuditLog records lifecycle events. Recording the same event id twice is a no-op.
type AuditLog interface {
	Record(ctx context.Context, event model.Event) error
}

// MessageBus publishes a lifecycle event payload to topic. Implementations may drop
// messages; callers treat delivery as best effort.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
