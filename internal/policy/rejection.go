package policy

import (
	"time"

	"planguard/internal/model"
)

const (
	RevocationWindow = 3 * Day

	RejectionBanReason = "too many rejected payment requests"
)

// rejectionTier bans for Ban when at least Count rejections fall inside Window.
type rejectionTier struct {
	Window time.Duration
	Count  int
	Ban    time.Duration
}

// rejectionTiers is ordered most severe first; only the first match applies.
var rejectionTiers = []rejectionTier{
	{Window: 30 * Day, Count: 15, Ban: 90 * Day},
	{Window: 7 * Day, Count: 8, Ban: 21 * Day},
	{Window: 2 * Day, Count: 4, Ban: 5 * Day},
}

// historyRetention is the longest window any tier reads.
const historyRetention = 30 * Day

// ApplyRejection appends now to the rejection history, evaluates the escalation
// tiers and returns the next ledger together with the ban that was applied, if any.
// Ban level and permaban state are left alone.
func ApplyRejection(l model.Ledger, now time.Time) (model.Ledger, *time.Time) {
	next := l.Clone()
	next.RejectionHistory = append(next.RejectionHistory, now)
	next.UpdatedAt = now

	var ban *time.Time
	for _, tier := range rejectionTiers {
		if countSince(next.RejectionHistory, now.Add(-tier.Window)) >= tier.Count {
			until := now.Add(tier.Ban)
			ban = &until
			break
		}
	}
	if ban != nil {
		next.BanUntil = ban
		next.BanReason = RejectionBanReason
	}

	next.RejectionHistory = pruneBefore(next.RejectionHistory, now.Add(-historyRetention))
	return next, ban
}

func countSince(history []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range history {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneBefore drops entries no tier will ever read again. History is oldest first.
func pruneBefore(history []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(history) && history[i].Before(cutoff) {
		i++
	}
	return append([]time.Time(nil), history[i:]...)
}

// CanApprove reports whether req may be approved.
func CanApprove(req model.PaymentRequest) bool {
	return req.Status == model.StatusPending
}

// CanReject reports whether req may move to rejected at now, and whether
// doing so is a revocation of an earlier approval.
func CanReject(req model.PaymentRequest, now time.Time) (ok, revocation bool) {
	switch req.Status {
	case model.StatusPending:
		return true, false
	case model.StatusApproved:
		if req.ApprovedAt != nil && now.Sub(*req.ApprovedAt) < RevocationWindow {
			return true, true
		}
	}
	return false, false
}
