package messaging_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/pkg/messaging"
)

func TestNewEvent(t *testing.T) {
	data := messaging.SalesUpdatedEvent{
		SalesRecordID:     "rec-1",
		DishName:          "Jollof Rice",
		Location:          "Eastham",
		BatchNumber:       "JR-20260310-001",
		PreviousRemaining: 10,
		RemainingPortions: 7,
		Version:           2,
	}

	event, err := messaging.NewEvent(messaging.EventSalesUpdated, "stock-service", "corr-1", data)
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)
	assert.Equal(t, messaging.EventSalesUpdated, event.Type)
	assert.Equal(t, "stock-service", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)

	var decoded messaging.SalesUpdatedEvent
	require.NoError(t, event.UnmarshalData(&decoded))
	assert.Equal(t, data, decoded)
}

func TestCorrelationID(t *testing.T) {
	ctx := messaging.WithCorrelationID(context.Background(), "abc")

	assert.Equal(t, "abc", messaging.CorrelationID(ctx))
	assert.Empty(t, messaging.CorrelationID(context.Background()))
}
