package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/ledger"
)

func fifoBatches(remaining ...int) []ledger.Batch {
	out := make([]ledger.Batch, len(remaining))
	for i, r := range remaining {
		expiry := onDay(i + 1)
		out[i] = ledger.Batch{
			BatchNumber:       string(rune('A' + i)),
			ReceivedPortions:  10,
			RemainingPortions: r,
			ExpiryDate:        &expiry,
		}
	}
	return out
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name         string
		batches      []ledger.Batch
		target       string
		newRemaining int
		blocking     string
	}{
		{"first batch always allowed", fifoBatches(10, 10), "A", 0, ""},
		{"sale behind stocked batch rejected", fifoBatches(4, 10), "B", 9, "A"},
		{"earliest blocker reported", fifoBatches(3, 2, 10), "C", 5, "A"},
		{"correction upwards allowed", fifoBatches(4, 5), "B", 7, ""},
		{"storage change with equal count allowed", fifoBatches(4, 5), "B", 5, ""},
		{"sale allowed once earlier batches are empty", fifoBatches(0, 0, 10), "C", 1, ""},
		{"skips empty batch to find blocker", fifoBatches(0, 6, 10), "C", 1, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.ValidateUpdate(tt.batches, tt.target, tt.newRemaining)
			if tt.blocking == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ledger.ErrFIFOViolation))

			var violation *ledger.FIFOViolation
			require.True(t, errors.As(err, &violation))
			assert.Equal(t, tt.blocking, violation.Blocking.BatchNumber)
			assert.Equal(t, tt.target, violation.Target)
			assert.Contains(t, err.Error(), "sell batch "+tt.blocking+" first")
		})
	}
}

func TestValidateUpdate_UsesCanonicalOrder(t *testing.T) {
	batches := fifoBatches(10, 10)
	// B is old stock but listed second.
	batches[1].IsOldStock = true

	err := ledger.ValidateUpdate(batches, "A", 3)

	var violation *ledger.FIFOViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "B", violation.Blocking.BatchNumber)
	assert.Equal(t, "A", batches[0].BatchNumber, "input must not be reordered")
}

func TestValidateUpdate_UnknownBatch(t *testing.T) {
	err := ledger.ValidateUpdate(fifoBatches(1), "Z", 0)

	assert.ErrorIs(t, err, ledger.ErrUnknownBatch)
	assert.NotErrorIs(t, err, ledger.ErrFIFOViolation)
}

func TestValidateUpdate_Monotonicity(t *testing.T) {
	batches := fifoBatches(3, 10)

	// Drain A one portion at a time; B stays blocked until A hits zero.
	for remaining := 3; remaining > 0; remaining-- {
		assert.ErrorIs(t, ledger.ValidateUpdate(batches, "B", 9), ledger.ErrFIFOViolation)
		require.NoError(t, ledger.ValidateUpdate(batches, "A", remaining-1))
		batches[0].RemainingPortions = remaining - 1
	}

	for remaining := 9; remaining >= 0; remaining-- {
		require.NoError(t, ledger.ValidateUpdate(batches, "B", remaining))
		batches[1].RemainingPortions = remaining
	}
}
