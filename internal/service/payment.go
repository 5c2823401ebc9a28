package service

import (
	"context"

	"planguard/internal/catalog"
	"planguard/internal/model"
)

// PaymentService defines the payment-request operations.
// All transport layers (HTTP, gRPC, NATS) depend on this interface, not on the engine.
type PaymentService interface {
	SubmitRequest(ctx context.Context, req model.SubmitRequest) (*model.PaymentRequest, error)
	ListRequests(ctx context.Context, status model.RequestStatus) ([]model.PaymentRequest, error)
	ListUserRequests(ctx context.Context, userID string) ([]model.PaymentRequest, error)
	Approve(ctx context.Context, requestID string) (*model.DecisionResult, error)
	// Reject also revokes an approved request inside its revocation window.
	Reject(ctx context.Context, requestID string) (*model.DecisionResult, error)
	GetAccount(ctx context.Context, userID string) (*model.Account, error)
	Catalog() *catalog.Catalog
	RecordEvent(ctx context.Context, event model.Event) error
}
