// Package service implements the payment-request lifecycle: guarded submission,
// operator approval and rejection, and the entitlement and penalty effects they carry.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"planguard/internal/catalog"
	"planguard/internal/metrics"
	"planguard/internal/model"
	"planguard/internal/policy"
	"planguard/internal/repository"
)

// Deps are the collaborators of an Engine. Bus and Idempotency are optional.
type Deps struct {
	Store       repository.Store
	Audit       repository.AuditLog
	Catalog     *catalog.Catalog
	Bus         repository.MessageBus
	Idempotency repository.Idempotency
}

// Engine implements PaymentService. The core never retries storage failures;
// callers do, so a ban escalation is never applied twice by us.
type Engine struct {
	store   repository.Store
	audit   repository.AuditLog
	catalog *catalog.Catalog
	bus     repository.MessageBus
	idem    repository.Idempotency

	now   func() time.Time
	newID func() string
}

var _ PaymentService = (*Engine)(nil)

func NewEngine(d Deps) *Engine {
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{
		store:   d.Store,
		audit:   d.Audit,
		catalog: cat,
		bus:     d.Bus,
		idem:    d.Idempotency,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (e *Engine) SubmitRequest(ctx context.Context, in model.SubmitRequest) (*model.PaymentRequest, error) {
	quantity, err := e.validate(in)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.Outcome(err)).Inc()
		return nil, err
	}

	if replay, ok := e.replay(ctx, in); ok {
		return replay, nil
	}

	now := e.now()
	var created *model.PaymentRequest
	var banned *model.Ledger

	err = e.store.UpdateLedger(ctx, in.UserID, func(l model.Ledger) (repository.Mutation, error) {
		next, admitErr := policy.Admit(l, now)
		if next == nil {
			return repository.Mutation{}, admitErr
		}
		if admitErr != nil {
			banned = next
			return repository.Mutation{Ledger: next}, admitErr
		}
		req := &model.PaymentRequest{
			ID:        e.newID(),
			UserID:    in.UserID,
			UserName:  in.UserName,
			UserEmail: in.UserEmail,
			Type:      in.Type,
			ItemID:    strings.TrimSpace(in.ItemID),
			Quantity:  quantity,
			Amount:    in.Amount,
			Details:   in.Details,
			Status:    model.StatusPending,
			CreatedAt: now,
		}
		created = req
		return repository.Mutation{Ledger: next, Request: req}, nil
	})
	metrics.Submissions.WithLabelValues(metrics.Outcome(err)).Inc()

	if err != nil {
		var nb *model.NewlyBannedError
		switch {
		case errors.As(err, &nb) && banned != nil:
			slog.Warn("service: account banned for spam",
				"user_id", in.UserID, "level", nb.Level, "permanent", nb.Permanent)
			metrics.Bans.WithLabelValues("spam").Inc()
			e.publish(model.Event{
				Topic:    model.TopicBanned,
				UserID:   in.UserID,
				BanLevel: nb.Level,
				BanUntil: nb.Until,
				Reason:   nb.Reason,
			}, now)
		case model.IsGuardRailFailure(err):
			slog.Info("service: submission refused", "user_id", in.UserID, "error", err)
		default:
			slog.Error("service: submission failed", "user_id", in.UserID, "error", err)
		}
		return nil, err
	}

	if in.IdempotencyKey != "" && e.idem != nil {
		if err := e.idem.Remember(ctx, in.UserID, in.IdempotencyKey, created.ID); err != nil {
			slog.Error("service: failed to remember idempotency key", "user_id", in.UserID, "error", err)
		}
	}

	slog.Info("service: request submitted",
		"request_id", created.ID, "user_id", created.UserID, "type", created.Type, "item_id", created.ItemID)
	e.publish(requestEvent(model.TopicSubmitted, *created), now)
	return created, nil
}

func (e *Engine) validate(in model.SubmitRequest) (int64, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return 0, fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	}
	if !in.Type.Valid() {
		return 0, fmt.Errorf("%w: type %q", model.ErrInvalidRequest, in.Type)
	}
	if in.Amount < 0 {
		return 0, fmt.Errorf("%w: negative amount", model.ErrInvalidRequest)
	}
	return e.catalog.Resolve(in.Type, in.ItemID)
}

// replay returns the request an idempotency key already produced.
func (e *Engine) replay(ctx context.Context, in model.SubmitRequest) (*model.PaymentRequest, bool) {
	if in.IdempotencyKey == "" || e.idem == nil {
		return nil, false
	}
	id, ok, err := e.idem.Lookup(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		slog.Error("service: idempotency lookup failed", "user_id", in.UserID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, false
	}
	return &req, true
}

func (e *Engine) Approve(ctx context.Context, requestID string) (*model.DecisionResult, error) {
	now := e.now()
	var result model.DecisionResult

	err := e.store.UpdateRequest(ctx, requestID, func(req model.PaymentRequest, l model.Ledger) (repository.Mutation, error) {
		if !policy.CanApprove(req) {
			return repository.Mutation{}, model.ErrAlreadyProcessed
		}
		next := l.Clone()
		if err := e.grant(&next, req); err != nil {
			return repository.Mutation{}, err
		}
		next.UpdatedAt = now

		req.Status = model.StatusApproved
		req.ApprovedAt = &now
		result = model.DecisionResult{Outcome: model.OutcomeApplied, Request: req}
		return repository.Mutation{Ledger: &next, Request: &req}, nil
	})
	metrics.Decisions.WithLabelValues("approve", metrics.Outcome(err)).Inc()
	if err != nil {
		e.logDecisionError("approve", requestID, err)
		return nil, err
	}

	slog.Info("service: request approved",
		"request_id", requestID, "user_id", result.Request.UserID, "type", result.Request.Type)
	e.publish(requestEvent(model.TopicApproved, result.Request), now)
	return &result, nil
}

// grant applies the entitlement a request carries to l.
func (e *Engine) grant(l *model.Ledger, req model.PaymentRequest) error {
	switch req.Type {
	case model.RequestUpgrade:
		plan := model.Plan(req.ItemID)
		if !plan.Valid() {
			return fmt.Errorf("%w: plan %q", model.ErrUnknownItem, req.ItemID)
		}
		l.Plan = plan
		return nil
	case model.RequestSlots, model.RequestPins:
		qty := req.Quantity
		if qty <= 0 {
			var err error
			if qty, err = e.catalog.Resolve(req.Type, req.ItemID); err != nil {
				return err
			}
		}
		if req.Type == model.RequestSlots {
			l.ExtraSlots += qty
		} else {
			l.ExtraPins += qty
		}
		return nil
	}
	return fmt.Errorf("%w: type %q", model.ErrInvalidRequest, req.Type)
}

// Reject moves a pending request, or an approved one still inside the revocation
// window, to rejected and runs the rejection escalation. A revocation does not
// take back the entitlement granted on approval.
func (e *Engine) Reject(ctx context.Context, requestID string) (*model.DecisionResult, error) {
	now := e.now()
	var result model.DecisionResult

	err := e.store.UpdateRequest(ctx, requestID, func(req model.PaymentRequest, l model.Ledger) (repository.Mutation, error) {
		ok, revocation := policy.CanReject(req, now)
		if !ok {
			return repository.Mutation{}, model.ErrAlreadyProcessed
		}
		next, ban := policy.ApplyRejection(l, now)

		req.Status = model.StatusRejected
		req.RejectedAt = &now
		result = model.DecisionResult{Outcome: model.OutcomeApplied, Request: req, BanUntil: ban}
		if revocation {
			result.Outcome = model.OutcomeRevoked
		}
		return repository.Mutation{Ledger: &next, Request: &req}, nil
	})
	metrics.Decisions.WithLabelValues("reject", metrics.Outcome(err)).Inc()
	if err != nil {
		e.logDecisionError("reject", requestID, err)
		return nil, err
	}

	topic := model.TopicRejected
	if result.Outcome == model.OutcomeRevoked {
		topic = model.TopicRevoked
	}
	slog.Info("service: request rejected",
		"request_id", requestID, "user_id", result.Request.UserID, "outcome", result.Outcome)
	e.publish(requestEvent(topic, result.Request), now)

	if result.BanUntil != nil {
		slog.Warn("service: account banned for rejections",
			"user_id", result.Request.UserID, "until", result.BanUntil)
		metrics.Bans.WithLabelValues("rejection").Inc()
		e.publish(model.Event{
			Topic:     model.TopicBanned,
			UserID:    result.Request.UserID,
			RequestID: requestID,
			BanUntil:  result.BanUntil,
			Reason:    policy.RejectionBanReason,
		}, now)
	}
	return &result, nil
}

func (e *Engine) logDecisionError(action, requestID string, err error) {
	if errors.Is(err, model.ErrRequestNotFound) || errors.Is(err, model.ErrAlreadyProcessed) {
		slog.Info("service: decision not applied", "action", action, "request_id", requestID, "error", err)
		return
	}
	slog.Error("service: decision failed", "action", action, "request_id", requestID, "error", err)
}

// ListRequests returns requests newest first.
func (e *Engine) ListRequests(ctx context.Context, status model.RequestStatus) ([]model.PaymentRequest, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", model.ErrInvalidRequest, status)
	}
	reqs, err := e.store.ListRequests(ctx, status)
	if err != nil {
		return nil, err
	}
	return newestFirst(reqs), nil
}

func (e *Engine) ListUserRequests(ctx context.Context, userID string) ([]model.PaymentRequest, error) {
	reqs, err := e.store.ListUserRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newestFirst(reqs), nil
}

func newestFirst(reqs []model.PaymentRequest) []model.PaymentRequest {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs
}

func (e *Engine) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	l, err := e.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	projects, pins := e.catalog.Limits(l)
	acc := &model.Account{
		Ledger:       l,
		ProjectLimit: projects,
		PinLimit:     pins,
		Banned:       l.BannedAt(e.now()),
	}
	if acc.Banned && !l.IsPermabanned {
		acc.BannedUntil = l.BanUntil
	}
	return acc, nil
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// RecordEvent persists a lifecycle event delivered by the bus.
func (e *Engine) RecordEvent(ctx context.Context, event model.Event) error {
	if e.audit == nil {
		return errors.New("service: no audit log configured")
	}
	if event.ID == "" {
		return fmt.Errorf("%w: event without id", model.ErrInvalidRequest)
	}
	return e.audit.Record(ctx, event)
}

// publish is best effort: the transition has already committed.
func (e *Engine) publish(event model.Event, now time.Time) {
	if e.bus == nil {
		return
	}
	event.ID = e.newID()
	event.CreatedAt = now
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("service: failed to marshal event", "topic", event.Topic, "error", err)
		return
	}
	if err := e.bus.Publish(event.Topic, data); err != nil {
		metrics.EventPublishFailures.Inc()
		slog.Error("service: failed to publish event", "topic", event.Topic, "user_id", event.UserID, "error", err)
	}
}

func requestEvent(topic string, req model.PaymentRequest) model.Event {
	return model.Event{
		Topic:     topic,
		UserID:    req.UserID,
		RequestID: req.ID,
		Type:      req.Type,
		ItemID:    req.ItemID,
		Status:    req.Status,
	}
}
