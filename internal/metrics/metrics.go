// Package metrics exposes Prometheus collectors for the payment-request engine.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"planguard/internal/model"
)

// Submissions counts submission attempts by outcome.
var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planguard",
	Subsystem: "requests",
	Name:      "submissions_total",
	Help:      "Payment request submissions by guard rail outcome.",
}, []string{"outcome"})

// Decisions counts operator decisions by action and outcome.
var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planguard",
	Subsystem: "requests",
	Name:      "decisions_total",
	Help:      "Approve and reject calls by outcome.",
}, []string{"action", "outcome"})

// Bans counts bans applied, by source (spam or rejection).
var Bans = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planguard",
	Subsystem: "accounts",
	Name:      "bans_total",
	Help:      "Bans applied to accounts.",
}, []string{"source"})

// EventPublishFailures counts lifecycle events the bus refused.
var EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "planguard",
	Subsystem: "events",
	Name:      "publish_failures_total",
	Help:      "Lifecycle events that could not be published.",
})

// Outcome maps an engine error to a bounded label value.
func Outcome(err error) string {
	var (
		tb *model.TemporarilyBannedError
		rl *model.RateLimitedError
		nb *model.NewlyBannedError
	)
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, model.ErrPermanentlyBanned):
		return "permabanned"
	case errors.As(err, &nb):
		return "newly_banned"
	case errors.As(err, &tb):
		return "banned"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.Is(err, model.ErrRequestNotFound):
		return "not_found"
	case errors.Is(err, model.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrUnknownItem):
		return "invalid"
	default:
		return "error"
	}
}
