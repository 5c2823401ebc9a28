package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"planguard/internal/model"
)

type PostgresStore struct {
	dbPool *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{dbPool: db}
}

const ledgerColumns = `user_id, plan, extra_slots, extra_pins, last_request_at, spam_window_start,
	spam_count, ban_level, ban_until, ban_reason, is_permabanned, rejection_history, updated_at`

const requestColumns = `id, user_id, user_name, user_email, type, item_id, quantity, amount,
	details, status, created_at, approved_at, rejected_at`

func (s *PostgresStore) UpdateLedger(ctx context.Context, userID string, fn func(model.Ledger) (Mutation, error)) error {
	var fnErr error
	err := pgx.BeginFunc(ctx, s.dbPool, func(tx pgx.Tx) error {
		led, err := lockLedger(ctx, tx, userID)
		if err != nil {
			return err
		}
		var mut Mutation
		mut, fnErr = fn(led)
		return writeMutation(ctx, tx, mut)
	})
	if err != nil {
		return fmt.Errorf("update ledger %s: %w", userID, err)
	}
	return fnErr
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, requestID string, fn func(model.PaymentRequest, model.Ledger) (Mutation, error)) error {
	var fnErr error
	err := pgx.BeginFunc(ctx, s.dbPool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE id = $1 FOR UPDATE`, requestID)
		req, err := scanRequest(row)
		if err != nil {
			return err
		}
		led, err := lockLedger(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		var mut Mutation
		mut, fnErr = fn(req, led)
		return writeMutation(ctx, tx, mut)
	})
	if errors.Is(err, model.ErrRequestNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update request %s: %w", requestID, err)
	}
	return fnErr
}

func (s *PostgresStore) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	row := s.dbPool.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE user_id = $1`, userID)
	led, err := scanLedger(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NewLedger(userID), nil
	}
	if err != nil {
		return model.Ledger{}, fmt.Errorf("get ledger %s: %w", userID, err)
	}
	return led, nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, requestID string) (model.PaymentRequest, error) {
	row := s.dbPool.QueryRow(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE id = $1`, requestID)
	req, err := scanRequest(row)
	if err != nil && !errors.Is(err, model.ErrRequestNotFound) {
		return req, fmt.Errorf("get request %s: %w", requestID, err)
	}
	return req, err
}

func (s *PostgresStore) ListRequests(ctx context.Context, status model.RequestStatus) ([]model.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE ($1 = '' OR status = $1) ORDER BY created_at`
	return s.listRequests(ctx, query, string(status))
}

func (s *PostgresStore) ListUserRequests(ctx context.Context, userID string) ([]model.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE user_id = $1 ORDER BY created_at`
	return s.listRequests(ctx, query, userID)
}

func (s *PostgresStore) listRequests(ctx context.Context, query string, arg string) ([]model.PaymentRequest, error) {
	rows, err := s.dbPool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []model.PaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Record implements AuditLog.
func (s *PostgresStore) Record(ctx context.Context, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_events (event_id, topic, user_id, request_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`
	if _, err := s.dbPool.Exec(ctx, query,
		event.ID, event.Topic, event.UserID, event.RequestID, payload, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("record audit event %s: %w", event.ID, err)
	}
	return nil
}

// lockLedger makes sure the user's row exists and takes a row lock on it.
func lockLedger(ctx context.Context, tx pgx.Tx, userID string) (model.Ledger, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO ledgers (user_id, plan) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, model.PlanFree,
	); err != nil {
		return model.Ledger{}, err
	}
	row := tx.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE user_id = $1 FOR UPDATE`, userID)
	return scanLedger(row)
}

func writeMutation(ctx context.Context, tx pgx.Tx, mut Mutation) error {
	if mut.empty() {
		return nil
	}
	if mut.Ledger != nil {
		l := mut.Ledger
		query := `
			UPDATE ledgers SET
				plan = $2, extra_slots = $3, extra_pins = $4, last_request_at = $5,
				spam_window_start = $6, spam_count = $7, ban_level = $8, ban_until = $9,
				ban_reason = $10, is_permabanned = $11, rejection_history = $12, updated_at = $13
			WHERE user_id = $1`
		if _, err := tx.Exec(ctx, query,
			l.UserID, l.Plan, l.ExtraSlots, l.ExtraPins, nullTime(l.LastRequestAt),
			nullTime(l.SpamWindowStart), l.SpamCount, l.BanLevel, l.BanUntil,
			l.BanReason, l.IsPermabanned, history(l.RejectionHistory), l.UpdatedAt,
		); err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
	}
	if mut.Request != nil {
		r := mut.Request
		query := `
			INSERT INTO payment_requests (` + requestColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				approved_at = EXCLUDED.approved_at,
				rejected_at = EXCLUDED.rejected_at`
		if _, err := tx.Exec(ctx, query,
			r.ID, r.UserID, r.UserName, r.UserEmail, r.Type, r.ItemID, r.Quantity, r.Amount,
			r.Details, r.Status, r.CreatedAt, r.ApprovedAt, r.RejectedAt,
		); err != nil {
			return fmt.Errorf("write request: %w", err)
		}
	}
	return nil
}

func scanLedger(row pgx.Row) (model.Ledger, error) {
	var (
		l                   model.Ledger
		lastReq, spamWindow *time.Time
	)
	err := row.Scan(
		&l.UserID, &l.Plan, &l.ExtraSlots, &l.ExtraPins, &lastReq, &spamWindow,
		&l.SpamCount, &l.BanLevel, &l.BanUntil, &l.BanReason, &l.IsPermabanned,
		&l.RejectionHistory, &l.UpdatedAt,
	)
	if err != nil {
		return model.Ledger{}, err
	}
	if lastReq != nil {
		l.LastRequestAt = *lastReq
	}
	if spamWindow != nil {
		l.SpamWindowStart = *spamWindow
	}
	return l, nil
}

func scanRequest(row pgx.Row) (model.PaymentRequest, error) {
	var r model.PaymentRequest
	err := row.Scan(
		&r.ID, &r.UserID, &r.UserName, &r.UserEmail, &r.Type, &r.ItemID, &r.Quantity, &r.Amount,
		&r.Details, &r.Status, &r.CreatedAt, &r.ApprovedAt, &r.RejectedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, model.ErrRequestNotFound
	}
	return r, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func history(h []time.Time) []time.Time {
	if h == nil {
		return []time.Time{}
	}
	return h
}
