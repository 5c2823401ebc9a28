package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"planguard/internal/metrics"
	"planguard/internal/model"
	"planguard/internal/service"
)

const (
	SubjectSubmit  = "commands.submit"
	SubjectApprove = "commands.approve"
	SubjectReject  = "commands.reject"

	queueGroup = "planguard_group"
)

// Reply is the request/reply answer to a command.
type Reply struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type decisionCommand struct {
	RequestID string `json:"request_id"`
}

// Handler subscribes to NATS command subjects and delegates to the payment service.
type Handler struct {
	svc  service.PaymentService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.PaymentService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// Start subscribes to command subjects and blocks until ctx is cancelled (graceful shutdown).
func (h *Handler) Start(ctx context.Context) error {
	routes := map[string]func(context.Context, []byte) Reply{
		SubjectSubmit:  h.handleSubmit,
		SubjectApprove: h.handleApprove,
		SubjectReject:  h.handleReject,
	}
	for subject, fn := range routes {
		sub, err := h.nc.QueueSubscribe(subject, queueGroup, func(m *nats.Msg) {
			reply := fn(ctx, m.Data)
			if m.Reply == "" {
				return
			}
			data, err := json.Marshal(reply)
			if err != nil {
				slog.Error("nats: failed to marshal reply", "subject", m.Subject, "error", err)
				return
			}
			if err := m.Respond(data); err != nil {
				slog.Error("nats: failed to respond", "subject", m.Subject, "error", err)
			}
		})
		if err != nil {
			return err
		}
		h.subs = append(h.subs, sub)
	}

	slog.Info("NATS command handler is running")

	// Block until context is cancelled.
	<-ctx.Done()
	slog.Info("NATS command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) handleSubmit(ctx context.Context, data []byte) Reply {
	var req model.SubmitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal submit command", "error", err)
		return Reply{Code: "invalid_json", Error: err.Error()}
	}
	res, err := h.svc.SubmitRequest(ctx, req)
	return reply(res, err)
}

func (h *Handler) handleApprove(ctx context.Context, data []byte) Reply {
	var cmd decisionCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		slog.Error("nats: failed to unmarshal approve command", "error", err)
		return Reply{Code: "invalid_json", Error: err.Error()}
	}
	res, err := h.svc.Approve(ctx, cmd.RequestID)
	return reply(res, err)
}

func (h *Handler) handleReject(ctx context.Context, data []byte) Reply {
	var cmd decisionCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		slog.Error("nats: failed to unmarshal reject command", "error", err)
		return Reply{Code: "invalid_json", Error: err.Error()}
	}
	res, err := h.svc.Reject(ctx, cmd.RequestID)
	return reply(res, err)
}

func reply(data interface{}, err error) Reply {
	if err != nil {
		return Reply{Code: metrics.Outcome(err), Error: err.Error()}
	}
	return Reply{Success: true, Code: "ok", Data: data}
}
