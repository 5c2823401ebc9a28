package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"planguard/internal/model"
	"planguard/internal/service"
)

// AuditSubjects are the event subjects the audit worker consumes.
var AuditSubjects = []string{"payments.*", "accounts.*"}

// AuditWorker listens on lifecycle event subjects and records each event in the audit log.
type AuditWorker struct {
	svc      service.PaymentService
	natsConn *nats.Conn
}

func NewAuditWorker(svc service.PaymentService, nc *nats.Conn) *AuditWorker {
	return &AuditWorker{
		svc:      svc,
		natsConn: nc,
	}
}

// Run subscribes to the audit subjects and blocks until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context) error {
	var subs []*nats.Subscription
	for _, subject := range AuditSubjects {
		// QueueSubscribe ensures that each event is handled by only one worker in the group.
		sub, err := w.natsConn.QueueSubscribe(subject, "audit_group", func(m *nats.Msg) {
			if err := w.handle(ctx, m.Subject, m.Data); err != nil {
				slog.Error("worker: failed to record event", "subject", m.Subject, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("worker: failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	slog.Info("Audit worker is running")

	// Wait for shutdown signal.
	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscriptions...")
	for _, sub := range subs {
		_ = sub.Drain()
	}
	return nil
}

func (w *AuditWorker) handle(ctx context.Context, subject string, data []byte) error {
	var event model.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Topic == "" {
		event.Topic = subject
	}
	if err := w.svc.RecordEvent(ctx, event); err != nil {
		return err
	}
	slog.Debug("worker: event recorded",
		"topic", event.Topic,
		"user_id", event.UserID,
		"event_id", event.ID,
	)
	return nil
}

// Start implements the infrastructure.Server interface.
func (w *AuditWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *AuditWorker) Stop(ctx context.Context) error {
	return nil
}
