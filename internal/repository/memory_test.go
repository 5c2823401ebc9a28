package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planguard/internal/model"
)

var errRefused = errors.New("refused")

func TestMemoryStore_UpdateLedgerCommitsWithError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.UpdateLedger(ctx, "u1", func(l model.Ledger) (Mutation, error) {
		l.BanLevel = 1
		return Mutation{Ledger: &l}, errRefused
	})
	require.ErrorIs(t, err, errRefused)

	l, err := s.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.BanLevel)
}

func TestMemoryStore_EmptyMutationWritesNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.ErrorIs(t, s.UpdateLedger(ctx, "u1", func(l model.Ledger) (Mutation, error) {
		l.SpamCount = 99
		return Mutation{}, errRefused
	}), errRefused)

	l, err := s.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.NewLedger("u1"), l)
}

func TestMemoryStore_UpdateRequestNotFound(t *testing.T) {
	s := NewMemoryStore()
	called := false
	err := s.UpdateRequest(context.Background(), "missing", func(model.PaymentRequest, model.Ledger) (Mutation, error) {
		called = true
		return Mutation{}, nil
	})
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
	assert.False(t, called)
}

func TestMemoryStore_UpdateRequestSeesOwnerLedger(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpdateLedger(ctx, "u1", func(l model.Ledger) (Mutation, error) {
		l.ExtraSlots = 2
		req := model.PaymentRequest{ID: "r1", UserID: "u1", Status: model.StatusPending, CreatedAt: now}
		return Mutation{Ledger: &l, Request: &req}, nil
	}))

	require.NoError(t, s.UpdateRequest(ctx, "r1", func(req model.PaymentRequest, l model.Ledger) (Mutation, error) {
		assert.Equal(t, int64(2), l.ExtraSlots)
		req.Status = model.StatusApproved
		req.ApprovedAt = &now
		return Mutation{Request: &req}, nil
	}))

	req, err := s.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, req.Status)
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []model.RequestStatus{model.StatusPending, model.StatusApproved, model.StatusPending} {
		req := model.PaymentRequest{
			ID:        fmt.Sprintf("r%d", i),
			UserID:    fmt.Sprintf("u%d", i%2),
			Status:    status,
			CreatedAt: base.Add(time.Duration(2-i) * time.Minute),
		}
		require.NoError(t, s.UpdateLedger(ctx, req.UserID, func(model.Ledger) (Mutation, error) {
			return Mutation{Request: &req}, nil
		}))
	}

	pending, err := s.ListRequests(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "r2", pending[0].ID)
	assert.Equal(t, "r0", pending[1].ID)

	all, err := s.ListRequests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.ListUserRequests(ctx, "u0")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestMemoryStore_UpdatesAreLinearized(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.UpdateLedger(ctx, "u1", func(l model.Ledger) (Mutation, error) {
				l.SpamCount++
				return Mutation{Ledger: &l}, nil
			})
		}()
	}
	wg.Wait()

	l, err := s.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, l.SpamCount)
}

func TestMemoryStore_RecordDedupes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e := model.Event{ID: "e1", Topic: model.TopicSubmitted, UserID: "u1"}
	require.NoError(t, s.Record(ctx, e))
	require.NoError(t, s.Record(ctx, e))
	assert.Len(t, s.Events(), 1)
}
