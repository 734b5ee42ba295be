package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/events"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/pkg/messaging"
	"github.com/prepline/prepline-backend/pkg/testutil"
)

func TestStockEventPublisher_NilIsNoop(t *testing.T) {
	var p *events.StockEventPublisher

	assert.NotPanics(t, func() {
		p.PublishPrepRecorded(context.Background(), domain.PrepEvent{}, 0)
		p.PublishShopClosed(context.Background(), ledger.ClosingSummary{})
		p.PublishAlertGenerated(context.Background(), ledger.Alert{})
	})
}

func TestStockEventPublisher_SalesUpdated(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.New(mock, nil)

	sr := domain.SalesRecord{
		ID:                "rec-1",
		DishName:          "Jollof Rice",
		Location:          domain.LocationBethnalGreen,
		BatchNumber:       "JOL-20260310-001",
		RemainingPortions: 6,
		StorageLocation:   domain.StorageFreezer,
		Version:           4,
	}
	p.PublishSalesUpdated(context.Background(), sr, 9)

	payloads := mock.EventsOfType(messaging.EventSalesUpdated)
	require.Len(t, payloads, 1)
	assert.Equal(t, messaging.SalesUpdatedEvent{
		SalesRecordID:     "rec-1",
		DishName:          "Jollof Rice",
		Location:          "Bethnal Green",
		BatchNumber:       "JOL-20260310-001",
		PreviousRemaining: 9,
		RemainingPortions: 6,
		StorageLocation:   "Freezer",
		Version:           4,
	}, payloads[0])
}

func TestStockEventPublisher_AlertCarriesKey(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.New(mock, nil)

	alert := ledger.Alert{
		Kind:     ledger.AlertLowStock,
		Priority: ledger.AlertLowStock.Priority(),
		DishName: "Egusi",
		Location: domain.LocationEastham,
		Portions: 2,
		Message:  "Egusi low at Eastham",
	}
	p.PublishAlertGenerated(context.Background(), alert)

	payloads := mock.EventsOfType(messaging.EventAlertGenerated)
	require.Len(t, payloads, 1)
	got := payloads[0].(messaging.AlertGeneratedEvent)
	assert.Equal(t, alert.Key(), got.AlertKey)
	assert.Equal(t, "low_stock", got.Kind)
}

func TestStockEventPublisher_PublishFailureIsSwallowed(t *testing.T) {
	mock := testutil.NewMockPublisher()
	mock.Err = assert.AnError
	p := events.New(mock, nil)

	assert.NotPanics(t, func() {
		p.PublishShopClosed(context.Background(), ledger.ClosingSummary{
			Location: domain.LocationEastham,
			ClosedAt: time.Now(),
		})
	})
	mock.AssertNoEventsPublished(t)
}
