package service

import (
	"context"
	"sync"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/events"
	"github.com/prepline/prepline-backend/pkg/logger"
)

// AlertScheduler periodically reloads the ledger and publishes alerts that
// were not present on the previous cycle.
type AlertScheduler struct {
	stock     *StockService
	publisher *events.StockEventPublisher
	interval  time.Duration
	logger    *logger.Logger
	cancel    context.CancelFunc

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewAlertScheduler creates a new alert scheduler
func NewAlertScheduler(stock *StockService, publisher *events.StockEventPublisher, interval time.Duration, log *logger.Logger) *AlertScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AlertScheduler{
		stock:     stock,
		publisher: publisher,
		interval:  interval,
		logger:    log.WithComponent("alert-scheduler"),
		seen:      make(map[string]struct{}),
	}
}

// Start starts the scheduler in a background goroutine.
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		s.RunCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.RunCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *AlertScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// RunCycle refreshes the snapshot, recomputes alerts and publishes the new
// ones. It returns how many alerts were published. An alert that clears and
// later reappears is published again.
func (s *AlertScheduler) RunCycle(ctx context.Context) int {
	start := time.Now()

	if err := s.stock.Refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to refresh ledger, alerts computed from last snapshot")
	}

	alerts := s.stock.Alerts(ctx)
	current := make(map[string]struct{}, len(alerts))

	s.mu.Lock()
	published := 0
	for _, a := range alerts {
		key := a.Key()
		current[key] = struct{}{}
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.publisher.PublishAlertGenerated(ctx, a)
		published++
	}
	s.seen = current
	s.mu.Unlock()

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("alerts", len(alerts)).
		Int("published", published).
		Msg("alert scan cycle completed")
	return published
}
