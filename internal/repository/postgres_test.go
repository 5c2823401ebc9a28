package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planguard/internal/model"
)

// newTestPostgres connects to PLANGUARD_TEST_DSN, migrates it and skips when unset.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("PLANGUARD_TEST_DSN")
	if dsn == "" {
		t.Skip("PLANGUARD_TEST_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, dsn, "up"))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresStore(pool)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	until := now.Add(7 * 24 * time.Hour)

	req := model.PaymentRequest{
		ID: uuid.NewString(), UserID: userID, Type: model.RequestSlots, ItemID: "5 Slots",
		Quantity: 5, Amount: 200, Status: model.StatusPending, CreatedAt: now,
	}
	require.NoError(t, s.UpdateLedger(ctx, userID, func(l model.Ledger) (Mutation, error) {
		l.LastRequestAt = now
		l.SpamWindowStart = now
		l.SpamCount = 1
		l.BanUntil = &until
		l.RejectionHistory = []time.Time{now}
		l.UpdatedAt = now
		return Mutation{Ledger: &l, Request: &req}, nil
	}))

	l, err := s.GetLedger(ctx, userID)
	require.NoError(t, err)
	assert.True(t, l.LastRequestAt.Equal(now))
	assert.Equal(t, 1, l.SpamCount)
	require.NotNil(t, l.BanUntil)
	assert.True(t, l.BanUntil.Equal(until))
	require.Len(t, l.RejectionHistory, 1)

	require.NoError(t, s.UpdateRequest(ctx, req.ID, func(r model.PaymentRequest, l model.Ledger) (Mutation, error) {
		r.Status = model.StatusApproved
		r.ApprovedAt = &now
		l.ExtraSlots += r.Quantity
		return Mutation{Ledger: &l, Request: &r}, nil
	}))

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	l, err = s.GetLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), l.ExtraSlots)

	_, err = s.GetRequest(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
}

func TestPostgresStore_RowLockSerialisesUpdates(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.UpdateLedger(ctx, userID, func(l model.Ledger) (Mutation, error) {
				l.ExtraPins++
				l.UpdatedAt = time.Now()
				return Mutation{Ledger: &l}, nil
			}))
		}()
	}
	wg.Wait()

	l, err := s.GetLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), l.ExtraPins)
}
