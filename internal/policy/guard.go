// Package policy holds the abuse-prevention rules applied to payment requests.
// Everything here is pure: callers load the ledger, pass the clock reading in,
// and persist whatever state comes back.
package policy

import (
	"time"

	"planguard/internal/model"
)

const (
	Day = 24 * time.Hour

	MinSpacing    = 30 * time.Second
	SpamWindow    = 2 * time.Minute
	SpamThreshold = 3

	SpamBanReason = "excessive spam requests"
)

// spamBanDurations maps an escalation level to its ban length.
// The last level is permanent and has no entry.
var spamBanDurations = map[int]time.Duration{
	1: 7 * Day,
	2: 30 * Day,
}

// Admit runs the submission guard rails in order and returns the ledger state to persist.
//
// A nil ledger means nothing may be written. When the submission trips the spam
// threshold the returned ledger carries the escalated ban and the error is a
// *model.NewlyBannedError; the caller must persist it but create no request.
func Admit(l model.Ledger, now time.Time) (*model.Ledger, error) {
	if l.IsPermabanned {
		return nil, model.ErrPermanentlyBanned
	}
	if l.BanUntil != nil && now.Before(*l.BanUntil) {
		return nil, &model.TemporarilyBannedError{
			Until:         *l.BanUntil,
			DaysRemaining: DaysRemaining(*l.BanUntil, now),
		}
	}
	if !l.LastRequestAt.IsZero() {
		if since := now.Sub(l.LastRequestAt); since < MinSpacing {
			return nil, &model.RateLimitedError{RetryAfter: MinSpacing - since}
		}
	}

	next := l.Clone()
	if l.SpamWindowStart.IsZero() || now.Sub(l.SpamWindowStart) > SpamWindow {
		next.SpamWindowStart = now
		next.SpamCount = 1
	} else {
		next.SpamCount++
	}

	if next.SpamCount > SpamThreshold {
		return escalate(next, now)
	}

	next.LastRequestAt = now
	next.UpdatedAt = now
	return &next, nil
}

func escalate(next model.Ledger, now time.Time) (*model.Ledger, error) {
	level := next.BanLevel + 1
	if level > model.MaxBanLevel {
		level = model.MaxBanLevel
	}
	next.BanLevel = level
	next.SpamCount = 0
	next.UpdatedAt = now

	if level == model.MaxBanLevel {
		next.IsPermabanned = true
		next.BanReason = SpamBanReason
		return &next, &model.NewlyBannedError{
			Level:     level,
			Permanent: true,
			Reason:    SpamBanReason,
		}
	}

	until := now.Add(spamBanDurations[level])
	next.BanUntil = &until
	next.BanReason = SpamBanReason
	return &next, &model.NewlyBannedError{
		Level:  level,
		Until:  &until,
		Reason: SpamBanReason,
	}
}

// DaysRemaining rounds the time left on a ban up to whole days.
func DaysRemaining(until, now time.Time) int {
	left := until.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + Day - 1) / Day)
}
