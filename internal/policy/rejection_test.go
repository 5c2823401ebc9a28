package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planguard/internal/model"
)

func ledgerWithRejections(times ...time.Time) model.Ledger {
	l := model.NewLedger("u1")
	l.RejectionHistory = times
	return l
}

func TestApplyRejection_NoBanBelowThresholds(t *testing.T) {
	l := ledgerWithRejections(t0.Add(-time.Hour), t0.Add(-2*time.Hour))
	next, ban := ApplyRejection(l, t0)
	assert.Nil(t, ban)
	assert.Nil(t, next.BanUntil)
	assert.Len(t, next.RejectionHistory, 3)
	assert.Equal(t, t0, next.RejectionHistory[2])
}

func TestApplyRejection_FourthInTwoDays(t *testing.T) {
	l := ledgerWithRejections(t0.Add(-40*time.Hour), t0.Add(-20*time.Hour), t0.Add(-time.Hour))
	next, ban := ApplyRejection(l, t0)
	require.NotNil(t, ban)
	assert.Equal(t, t0.Add(5*Day), *ban)
	assert.Equal(t, t0.Add(5*Day), *next.BanUntil)
	assert.Equal(t, 0, next.BanLevel)
	assert.False(t, next.IsPermabanned)
}

func TestApplyRejection_ReevaluatesAllWindows(t *testing.T) {
	// Six rejections spread over the last week, three of them inside two days.
	l := ledgerWithRejections(
		t0.Add(-6*Day), t0.Add(-5*Day), t0.Add(-4*Day),
		t0.Add(-36*time.Hour), t0.Add(-24*time.Hour), t0.Add(-12*time.Hour),
	)

	l, ban := ApplyRejection(l, t0)
	require.NotNil(t, ban)
	assert.Equal(t, t0.Add(5*Day), *ban, "7 in a week, 4 in two days")

	now := t0.Add(time.Hour)
	l, ban = ApplyRejection(l, now)
	require.NotNil(t, ban)
	assert.Equal(t, now.Add(21*Day), *ban, "8th in a week escalates")
	assert.Len(t, l.RejectionHistory, 8)
}

func TestApplyRejection_ThirtyDayTier(t *testing.T) {
	var history []time.Time
	for i := 14; i >= 1; i-- {
		history = append(history, t0.Add(-time.Duration(i)*2*Day))
	}
	next, ban := ApplyRejection(ledgerWithRejections(history...), t0)
	require.NotNil(t, ban)
	assert.Equal(t, t0.Add(90*Day), *ban)
	assert.Equal(t, RejectionBanReason, next.BanReason)
}

func TestApplyRejection_PrunesOldHistory(t *testing.T) {
	l := ledgerWithRejections(t0.Add(-45*Day), t0.Add(-31*Day), t0.Add(-29*Day))
	next, _ := ApplyRejection(l, t0)
	assert.Equal(t, []time.Time{t0.Add(-29 * Day), t0}, next.RejectionHistory)
	assert.Len(t, l.RejectionHistory, 3)
}

func TestApplyRejection_LeavesSpamLadderAlone(t *testing.T) {
	l := ledgerWithRejections(t0.Add(-3*time.Hour), t0.Add(-2*time.Hour), t0.Add(-time.Hour))
	l.BanLevel = 2
	next, ban := ApplyRejection(l, t0)
	require.NotNil(t, ban)
	assert.Equal(t, 2, next.BanLevel)
	assert.False(t, next.IsPermabanned)
}

func TestCanReject(t *testing.T) {
	approvedAt := t0
	approved := model.PaymentRequest{Status: model.StatusApproved, ApprovedAt: &approvedAt}

	tests := []struct {
		name       string
		req        model.PaymentRequest
		now        time.Time
		ok         bool
		revocation bool
	}{
		{"pending", model.PaymentRequest{Status: model.StatusPending}, t0, true, false},
		{"approved two days ago", approved, t0.Add(2 * Day), true, true},
		{"approved four days ago", approved, t0.Add(4 * Day), false, false},
		{"window is exclusive", approved, t0.Add(RevocationWindow), false, false},
		{"already rejected", model.PaymentRequest{Status: model.StatusRejected}, t0, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, revocation := CanReject(tc.req, tc.now)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.revocation, revocation)
		})
	}
}

func TestCanApprove(t *testing.T) {
	assert.True(t, CanApprove(model.PaymentRequest{Status: model.StatusPending}))
	assert.False(t, CanApprove(model.PaymentRequest{Status: model.StatusApproved}))
	assert.False(t, CanApprove(model.PaymentRequest{Status: model.StatusRejected}))
}
