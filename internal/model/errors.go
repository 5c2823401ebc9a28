package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPermanentlyBanned = errors.New("account is permanently banned")
	ErrRequestNotFound   = errors.New("payment request not found")
	ErrAlreadyProcessed  = errors.New("payment request already processed")
	ErrUnknownItem       = errors.New("item is not in the catalog")
	ErrInvalidRequest    = errors.New("invalid payment request")
)

// TemporarilyBannedError is returned while a previously applied ban is still running.
type TemporarilyBannedError struct {
	Until         time.Time
	DaysRemaining int
}

func (e *TemporarilyBannedError) Error() string {
	return fmt.Sprintf("account is banned for %d more day(s)", e.DaysRemaining)
}

// RateLimitedError is returned when submissions come closer than the minimum spacing.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter.Round(time.Second))
}

// NewlyBannedError is returned when the submission itself triggered a spam escalation.
type NewlyBannedError struct {
	Level     int
	Until     *time.Time
	Permanent bool
	Reason    string
}

func (e *NewlyBannedError) Error() string {
	if e.Permanent {
		return "account has been permanently banned: " + e.Reason
	}
	return fmt.Sprintf("account has been banned (level %d) until %s", e.Level, e.Until.UTC().Format(time.RFC3339))
}

// IsGuardRailFailure reports whether err is an expected refusal from the submission guard rails.
func IsGuardRailFailure(err error) bool {
	var (
		tb *TemporarilyBannedError
		rl *RateLimitedError
		nb *NewlyBannedError
	)
	return errors.Is(err, ErrPermanentlyBanned) ||
		errors.As(err, &tb) || errors.As(err, &rl) || errors.As(err, &nb)
}
