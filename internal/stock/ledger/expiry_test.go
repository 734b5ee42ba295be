package ledger_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/ledger"
)

func TestStatus_Boundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name   string
		expiry *time.Time
		want   ledger.ExpiryStatus
	}{
		{"one millisecond past", at(-time.Millisecond), ledger.ExpiryExpired},
		{"exactly now", at(0), ledger.ExpiryUrgent},
		{"23h59m", at(23*time.Hour + 59*time.Minute), ledger.ExpiryUrgent},
		{"24h", at(24 * time.Hour), ledger.ExpiryWarning},
		{"47h59m", at(47*time.Hour + 59*time.Minute), ledger.ExpiryWarning},
		{"48h", at(48 * time.Hour), ledger.ExpiryGood},
		{"a week", at(7 * 24 * time.Hour), ledger.ExpiryGood},
		{"no expiry", nil, ledger.ExpiryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.Status(tt.expiry, now)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestStatus_HoursRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	expiry := now.Add(30 * time.Hour)

	got := ledger.Status(&expiry, now)
	require.NotNil(t, got.HoursRemaining)
	assert.InDelta(t, 30.0, *got.HoursRemaining, 1e-9)

	assert.Nil(t, ledger.Status(nil, now).HoursRemaining)
}

func TestSameDay_UsesReferenceZone(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// 23:30 UTC on 1 July is 00:30 on 2 July in London (BST).
	ref := time.Date(2026, 7, 2, 9, 0, 0, 0, london)
	ts := time.Date(2026, 7, 1, 23, 30, 0, 0, time.UTC)

	assert.True(t, ledger.SameDay(ts, ref))
	assert.False(t, ledger.SameDay(ts.Add(-time.Hour), ref))
}
