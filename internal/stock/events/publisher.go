package events

import (
	"context"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/pkg/logger"
	"github.com/prepline/prepline-backend/pkg/messaging"
)

// ServiceName is the event source stamped on everything this service publishes.
const ServiceName = "stock-service"

// StockEventPublisher publishes stock ledger events. A nil publisher is a
// valid no-op, so the service runs without a broker.
type StockEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewStockEventPublisher creates a publisher on the stock events exchange
func NewStockEventPublisher(rmq *messaging.RabbitMQ, exchange string, log *logger.Logger) (*StockEventPublisher, error) {
	if exchange == "" {
		exchange = messaging.ExchangeStockEvents
	}
	publisher, err := messaging.NewPublisher(rmq, exchange, ServiceName, log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps an existing publisher.
func New(publisher messaging.EventPublisher, log *logger.Logger) *StockEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &StockEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishPrepRecorded publishes a prep recorded event
func (p *StockEventPublisher) PublishPrepRecorded(ctx context.Context, prep domain.PrepEvent, deductions int) {
	if p == nil {
		return
	}
	data := messaging.PrepRecordedEvent{
		PrepID:        prep.ID,
		DishName:      prep.DishName,
		BatchNumber:   prep.BatchNumber,
		TotalPortions: prep.TotalPortions,
		ExpiryDate:    prep.ExpiryDate,
		PreparedBy:    prep.PreparedBy,
		Deductions:    deductions,
	}
	if err := p.publisher.Publish(ctx, messaging.EventPrepRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("batch_number", prep.BatchNumber).Msg("failed to publish prep recorded event")
	}
}

// PublishPrepDeleted publishes a prep deleted event
func (p *StockEventPublisher) PublishPrepDeleted(ctx context.Context, prep domain.PrepEvent) {
	if p == nil {
		return
	}
	data := messaging.PrepDeletedEvent{
		PrepID:      prep.ID,
		DishName:    prep.DishName,
		BatchNumber: prep.BatchNumber,
	}
	if err := p.publisher.Publish(ctx, messaging.EventPrepDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("batch_number", prep.BatchNumber).Msg("failed to publish prep deleted event")
	}
}

// PublishDispatchRecorded publishes one event per dispatch row
func (p *StockEventPublisher) PublishDispatchRecorded(ctx context.Context, d domain.DispatchEvent) {
	if p == nil {
		return
	}
	data := messaging.DispatchRecordedEvent{
		DispatchID:    d.ID,
		DishName:      d.DishName,
		BatchNumber:   d.BatchNumber,
		DispatchType:  string(d.DispatchType),
		EasthamSent:   d.EasthamSent,
		BethnalSent:   d.BethnalSent,
		ColdRoomStock: d.ColdRoomStock,
	}
	if err := p.publisher.Publish(ctx, messaging.EventDispatchRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("batch_number", d.BatchNumber).Msg("failed to publish dispatch recorded event")
	}
}

// PublishSalesUpdated publishes a sales updated event
func (p *StockEventPublisher) PublishSalesUpdated(ctx context.Context, sr domain.SalesRecord, previousRemaining int) {
	if p == nil {
		return
	}
	data := messaging.SalesUpdatedEvent{
		SalesRecordID:     sr.ID,
		DishName:          sr.DishName,
		Location:          string(sr.Location),
		BatchNumber:       sr.BatchNumber,
		PreviousRemaining: previousRemaining,
		RemainingPortions: sr.RemainingPortions,
		StorageLocation:   string(sr.StorageLocation),
		Version:           sr.Version,
	}
	if err := p.publisher.Publish(ctx, messaging.EventSalesUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("sales_record_id", sr.ID).Msg("failed to publish sales updated event")
	}
}

// PublishShopClosed publishes a shop closed event
func (p *StockEventPublisher) PublishShopClosed(ctx context.Context, s ledger.ClosingSummary) {
	if p == nil {
		return
	}
	data := messaging.ShopClosedEvent{
		Location:          string(s.Location),
		ClosedAt:          s.ClosedAt,
		RecordsClosed:     s.RecordsClosed,
		CarriedForward:    s.CarriedForward,
		CarriedPortions:   s.CarriedPortions,
		ZeroRemainingRows: s.ZeroRemaining,
	}
	if err := p.publisher.Publish(ctx, messaging.EventShopClosed, data); err != nil {
		p.logger.Error().Err(err).Str("location", string(s.Location)).Msg("failed to publish shop closed event")
	}
}

// PublishAlertGenerated publishes an alert generated event
func (p *StockEventPublisher) PublishAlertGenerated(ctx context.Context, a ledger.Alert) {
	if p == nil {
		return
	}
	data := messaging.AlertGeneratedEvent{
		AlertKey:    a.Key(),
		Kind:        string(a.Kind),
		Priority:    a.Priority,
		DishName:    a.DishName,
		Location:    string(a.Location),
		BatchNumber: a.BatchNumber,
		Portions:    a.Portions,
		Hours:       a.HoursRemaining,
		Message:     a.Message,
	}
	if err := p.publisher.Publish(ctx, messaging.EventAlertGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_key", a.Key()).Msg("failed to publish alert generated event")
	}
}
