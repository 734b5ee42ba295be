package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventPrepRecorded     = "stock.prep.recorded"
	EventPrepDeleted      = "stock.prep.deleted"
	EventDispatchRecorded = "stock.dispatch.recorded"
	EventSalesUpdated     = "stock.sales.updated"
	EventShopClosed       = "stock.shop.closed"
	EventAlertGenerated   = "stock.alert.generated"
)

// Exchange names
const (
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// PrepRecordedEvent is published when the kitchen records a production run
type PrepRecordedEvent struct {
	PrepID        string     `json:"prep_id"`
	DishName      string     `json:"dish_name"`
	BatchNumber   string     `json:"batch_number"`
	TotalPortions int        `json:"total_portions"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	PreparedBy    string     `json:"prepared_by"`
	Deductions    int        `json:"deductions"`
}

// PrepDeletedEvent is published when an undispatched prep is removed
type PrepDeletedEvent struct {
	PrepID      string `json:"prep_id"`
	DishName    string `json:"dish_name"`
	BatchNumber string `json:"batch_number"`
}

// DispatchRecordedEvent is published once per committed dispatch event
type DispatchRecordedEvent struct {
	DispatchID    string `json:"dispatch_id"`
	DishName      string `json:"dish_name"`
	BatchNumber   string `json:"batch_number"`
	DispatchType  string `json:"dispatch_type"`
	EasthamSent   int    `json:"eastham_sent"`
	BethnalSent   int    `json:"bethnal_sent"`
	ColdRoomStock int    `json:"cold_room_stock"`
}

// SalesUpdatedEvent is published when a shop updates a batch's remaining count
type SalesUpdatedEvent struct {
	SalesRecordID     string `json:"sales_record_id"`
	DishName          string `json:"dish_name"`
	Location          string `json:"location"`
	BatchNumber       string `json:"batch_number"`
	PreviousRemaining int    `json:"previous_remaining"`
	RemainingPortions int    `json:"remaining_portions"`
	StorageLocation   string `json:"storage_location"`
	Version           int    `json:"version"`
}

// ShopClosedEvent is published when a shop closes its trading day
type ShopClosedEvent struct {
	Location          string    `json:"location"`
	ClosedAt          time.Time `json:"closed_at"`
	RecordsClosed     int       `json:"records_closed"`
	CarriedForward    int       `json:"carried_forward"`
	CarriedPortions   int       `json:"carried_portions"`
	ZeroRemainingRows int       `json:"zero_remaining_rows"`
}

// AlertGeneratedEvent is published when a scan raises a new stock or expiry alert
type AlertGeneratedEvent struct {
	AlertKey    string   `json:"alert_key"`
	Kind        string   `json:"kind"`
	Priority    int      `json:"priority"`
	DishName    string   `json:"dish_name,omitempty"`
	Location    string   `json:"location,omitempty"`
	BatchNumber string   `json:"batch_number,omitempty"`
	Portions    int      `json:"portions"`
	Hours       *float64 `json:"hours_remaining,omitempty"`
	Message     string   `json:"message"`
}
