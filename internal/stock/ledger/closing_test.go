package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
)

func openRecord(id, batch string, loc domain.Location, remaining int) domain.SalesRecord {
	return domain.SalesRecord{
		ID:                id,
		DishName:          jollof,
		Location:          loc,
		BatchNumber:       batch,
		Date:              onDay(0),
		ReceivedPortions:  10,
		RemainingPortions: remaining,
		StorageLocation:   domain.StorageFridge,
		Version:           3,
	}
}

func TestCloseShop(t *testing.T) {
	records := []domain.SalesRecord{
		openRecord("a", "JR-A", domain.LocationEastham, 8),
		openRecord("b", "JR-B", domain.LocationEastham, 0),
		openRecord("c", "JR-C", domain.LocationBethnalGreen, 4),
		closedRecord("d", "JR-D", -1, 2),
	}

	closed, summary := ledger.CloseShop(records, domain.LocationEastham, now)

	require.Len(t, closed, 2)
	for _, sr := range closed {
		assert.True(t, sr.EndOfDay)
		require.NotNil(t, sr.ClosedDate)
		assert.Equal(t, now, *sr.ClosedDate)
		assert.Equal(t, 4, sr.Version)
	}
	assert.Equal(t, ledger.ClosingSummary{
		Location:        domain.LocationEastham,
		ClosedAt:        now,
		RecordsClosed:   2,
		CarriedForward:  1,
		CarriedPortions: 8,
		ZeroRemaining:   1,
	}, summary)

	assert.False(t, records[0].EndOfDay, "inputs must not be mutated")
}

func TestCloseShop_ThenReconstructTomorrow(t *testing.T) {
	records := []domain.SalesRecord{
		openRecord("a", "JR-A", domain.LocationEastham, 8),
		openRecord("b", "JR-B", domain.LocationEastham, 0),
	}
	closed, _ := ledger.CloseShop(records, domain.LocationEastham, now)

	rec := ledger.ReconstructBatches(jollof, domain.LocationEastham,
		&domain.Snapshot{SalesRecords: closed}, now.AddDate(0, 0, 1), ledger.DefaultOptions())

	require.Len(t, rec.Batches, 1)
	assert.Equal(t, "JR-A", rec.Batches[0].BatchNumber)
	assert.True(t, rec.Batches[0].IsOldStock)
	assert.Equal(t, 8, rec.TotalOldStock)
}

func TestCloseShop_NothingOpen(t *testing.T) {
	closed, summary := ledger.CloseShop(nil, domain.LocationBethnalGreen, now)

	assert.Empty(t, closed)
	assert.Zero(t, summary.RecordsClosed)
}
