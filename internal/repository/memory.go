package repository

import (
	"context"
	"sort"
	"sync"

	"planguard/internal/model"
)

// MemoryStore is a single-process Store. One mutex serialises every update, which
// is stricter than the per-document locking PostgresStore gives.
type MemoryStore struct {
	mu       sync.Mutex
	ledgers  map[string]model.Ledger
	requests map[string]model.PaymentRequest
	events   map[string]model.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers:  make(map[string]model.Ledger),
		requests: make(map[string]model.PaymentRequest),
		events:   make(map[string]model.Event),
	}
}

func (s *MemoryStore) UpdateLedger(ctx context.Context, userID string, fn func(model.Ledger) (Mutation, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mut, err := fn(s.ledgerLocked(userID))
	s.applyLocked(mut)
	return err
}

func (s *MemoryStore) UpdateRequest(ctx context.Context, requestID string, fn func(model.PaymentRequest, model.Ledger) (Mutation, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return model.ErrRequestNotFound
	}
	mut, err := fn(copyRequest(req), s.ledgerLocked(req.UserID))
	s.applyLocked(mut)
	return err
}

func (s *MemoryStore) GetLedger(_ context.Context, userID string) (model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgerLocked(userID), nil
}

func (s *MemoryStore) GetRequest(_ context.Context, requestID string) (model.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return model.PaymentRequest{}, model.ErrRequestNotFound
	}
	return copyRequest(req), nil
}

func (s *MemoryStore) ListRequests(_ context.Context, status model.RequestStatus) ([]model.PaymentRequest, error) {
	return s.filter(func(r model.PaymentRequest) bool {
		return status == "" || r.Status == status
	}), nil
}

func (s *MemoryStore) ListUserRequests(_ context.Context, userID string) ([]model.PaymentRequest, error) {
	return s.filter(func(r model.PaymentRequest) bool { return r.UserID == userID }), nil
}

// Record implements AuditLog.
func (s *MemoryStore) Record(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		s.events[event.ID] = event
	}
	return nil
}

// Events returns recorded audit events ordered by time.
func (s *MemoryStore) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) filter(keep func(model.PaymentRequest) bool) []model.PaymentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PaymentRequest
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, copyRequest(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) ledgerLocked(userID string) model.Ledger {
	if l, ok := s.ledgers[userID]; ok {
		return l.Clone()
	}
	return model.NewLedger(userID)
}

func (s *MemoryStore) applyLocked(mut Mutation) {
	if mut.Ledger != nil {
		s.ledgers[mut.Ledger.UserID] = mut.Ledger.Clone()
	}
	if mut.Request != nil {
		s.requests[mut.Request.ID] = copyRequest(*mut.Request)
	}
}

func copyRequest(r model.PaymentRequest) model.PaymentRequest {
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		r.ApprovedAt = &t
	}
	if r.RejectedAt != nil {
		t := *r.RejectedAt
		r.RejectedAt = &t
	}
	return r
}
