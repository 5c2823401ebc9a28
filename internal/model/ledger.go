package model

import "time"

type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanUltra Plan = "ultra"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanUltra:
		return true
	}
	return false
}

// MaxBanLevel is the spam escalation rung at which the account is permanently banned.
const MaxBanLevel = 3

// Ledger is the per-user record of plan, extra entitlements and abuse counters.
// It is only mutated through the guard rails and the approval processor.
type Ledger struct {
	UserID           string      `json:"user_id"`
	Plan             Plan        `json:"plan"`
	ExtraSlots       int64       `json:"extra_slots"`
	ExtraPins        int64       `json:"extra_pins"`
	LastRequestAt    time.Time   `json:"last_request_at"`
	SpamWindowStart  time.Time   `json:"spam_window_start"`
	SpamCount        int         `json:"spam_count"`
	BanLevel         int         `json:"ban_level"`
	BanUntil         *time.Time  `json:"ban_until,omitempty"`
	BanReason        string      `json:"ban_reason,omitempty"`
	IsPermabanned    bool        `json:"is_permabanned"`
	RejectionHistory []time.Time `json:"rejection_history"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewLedger returns the state of an account that has never submitted anything.
func NewLedger(userID string) Ledger {
	return Ledger{UserID: userID, Plan: PlanFree}
}

// Clone returns a deep copy so callers can compute a next state without aliasing slices.
func (l Ledger) Clone() Ledger {
	out := l
	if l.BanUntil != nil {
		until := *l.BanUntil
		out.BanUntil = &until
	}
	out.RejectionHistory = append([]time.Time(nil), l.RejectionHistory...)
	return out
}

// BannedAt reports whether submissions are blocked at now.
func (l Ledger) BannedAt(now time.Time) bool {
	if l.IsPermabanned {
		return true
	}
	return l.BanUntil != nil && now.Before(*l.BanUntil)
}

type Account struct {
	Ledger       Ledger     `json:"ledger"`
	ProjectLimit int64      `json:"project_limit"`
	PinLimit     int64      `json:"pin_limit"`
	Banned       bool       `json:"banned"`
	BannedUntil  *time.Time `json:"banned_until,omitempty"`
}
