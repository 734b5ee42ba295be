package service

import (
	"context"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/cache"
	"github.com/prepline/prepline-backend/internal/stock/costing"
	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/pkg/errors"
)

// Batches reconstructs the FIFO batch list for dish at loc for today.
func (s *StockService) Batches(ctx context.Context, dish string, loc domain.Location) (ledger.Reconstruction, error) {
	if dish == "" {
		return ledger.Reconstruction{}, errors.Validation(map[string]string{"dish": "this field is required"})
	}
	if !loc.Valid() {
		return ledger.Reconstruction{}, errors.Validation(map[string]string{"location": "must be one of: Eastham, Bethnal Green"})
	}
	return s.reconstruct(ctx, dish, loc), nil
}

// Reconstructions rebuilds every dish at every shop.
func (s *StockService) Reconstructions(ctx context.Context) []ledger.Reconstruction {
	var out []ledger.Reconstruction
	for _, dish := range dishes(s.current()) {
		for _, loc := range domain.Locations() {
			out = append(out, s.reconstruct(ctx, dish, loc))
		}
	}
	return out
}

// reconstruct consults the memo before rebuilding. The memo key covers the
// event collections, the day and the tunables, so a hit is always current.
func (s *StockService) reconstruct(ctx context.Context, dish string, loc domain.Location) ledger.Reconstruction {
	s.mu.RLock()
	snap, hash := s.snap, s.snapHash
	s.mu.RUnlock()
	today := s.today()

	var key string
	if s.memo != nil && hash != "" {
		k, err := cache.Key(hash, dish, loc, today.Format(time.DateOnly), s.opts.Ledger)
		if err == nil {
			key = k
			var cached ledger.Reconstruction
			found, err := s.memo.Get(ctx, key, &cached)
			if err != nil {
				s.logger.Warn().Err(err).Msg("reconstruction memo read failed")
			}
			if found {
				return cached
			}
		}
	}

	rec := ledger.ReconstructBatches(dish, loc, snap, today, s.opts.Ledger)
	if err := ledger.CheckConservation(rec); err != nil {
		s.logger.WithDish(dish, string(loc)).Warn().Err(err).Msg("reconstruction failed conservation check")
	}

	if key != "" {
		if err := s.memo.Set(ctx, key, rec); err != nil {
			s.logger.Warn().Err(err).Msg("reconstruction memo write failed")
		}
	}
	return rec
}

// Alerts classifies current stock and unprocessed preps.
func (s *StockService) Alerts(ctx context.Context) []ledger.Alert {
	recons := s.Reconstructions(ctx)
	return ledger.ComputeAlerts(recons, s.current().PrepEvents, s.now(), ledger.AlertOptions{
		LowStockThreshold: s.opts.LowStockThreshold,
	})
}

// Summary totals stock across the fleet.
func (s *StockService) Summary(ctx context.Context) ledger.FleetSummary {
	return ledger.SummarizeFleet(s.Reconstructions(ctx), s.opts.LowStockThreshold)
}

// ColdRoomView is the cold-room holding of one dish.
type ColdRoomView struct {
	DishName string                 `json:"dish_name"`
	Total    int                    `json:"total"`
	Batches  []ledger.ColdRoomBatch `json:"batches"`
}

// ColdRoom returns the per-batch cold-room balance of dish.
func (s *StockService) ColdRoom(ctx context.Context, dish string) ColdRoomView {
	batches := ledger.ColdRoomBalance(dish, s.current())
	return ColdRoomView{DishName: dish, Total: ledger.ColdRoomTotal(batches), Batches: batches}
}

// Cost prices dish from current inventory unit costs.
func (s *StockService) Cost(ctx context.Context, dish string) (costing.DishCosting, error) {
	snap := s.current()
	if _, ok := costing.FindRecipe(dish, snap.Recipes); !ok {
		return costing.DishCosting{}, errors.NotFound("recipe")
	}
	result := costing.Cost(dish, snap.Recipes, snap.Inventory)
	s.logIssues(result.Issues)
	return result, nil
}

// Scale projects cooked weight and portions for actualRawKg of dish.
func (s *StockService) Scale(ctx context.Context, dish string, actualRawKg float64) (costing.PrepScale, error) {
	recipe, ok := costing.FindRecipe(dish, s.current().Recipes)
	if !ok {
		return costing.PrepScale{}, errors.NotFound("recipe")
	}
	return scale(recipe, actualRawKg)
}

func scale(recipe domain.Recipe, actualRawKg float64) (costing.PrepScale, error) {
	result, err := costing.ScalePrep(recipe, actualRawKg)
	switch {
	case errors.Is(err, costing.ErrZeroRawWeight):
		return costing.PrepScale{}, errors.Configuration("recipe for " + recipe.DishName + " has zero raw weight")
	case errors.Is(err, costing.ErrInvalidWeight):
		return costing.PrepScale{}, errors.Validation(map[string]string{"raw_weight_kg": "must be greater than 0"})
	case err != nil:
		return costing.PrepScale{}, errors.Internal(err.Error())
	}
	return result, nil
}

// InventoryReport derives this week's usage from preps and reports closing
// balances and procurement needs.
func (s *StockService) InventoryReport(ctx context.Context) costing.InventoryReport {
	snap := s.current()
	items, issues := costing.WithUsage(snap.Inventory, snap.Recipes, snap.PrepEvents, s.weekStart())
	report := costing.Report(items, s.opts.BufferRatio)
	report.Issues = append(report.Issues, issues...)
	s.logIssues(report.Issues)
	return report
}

// weekStart is midnight on the most recent Monday.
func (s *StockService) weekStart() time.Time {
	today := s.today()
	offset := (int(today.Weekday()) + 6) % 7
	return today.AddDate(0, 0, -offset)
}

// PrepExpiry pairs an undispatched prep with its expiry status.
type PrepExpiry struct {
	domain.PrepEvent
	Expiry ledger.ExpiryReading `json:"expiry"`
}

// PrepExpiry reports the expiry status of every unprocessed prep.
func (s *StockService) PrepExpiry(ctx context.Context) []PrepExpiry {
	now := s.now()
	out := []PrepExpiry{}
	for _, p := range s.current().PrepEvents {
		if p.Processed {
			continue
		}
		out = append(out, PrepExpiry{PrepEvent: p, Expiry: ledger.Status(p.ExpiryDate, now)})
	}
	return out
}

func (s *StockService) logIssues(issues []costing.ConfigIssue) {
	for _, issue := range issues {
		s.logger.Warn().
			Str("kind", string(issue.Kind)).
			Str("dish", issue.DishName).
			Str("item", issue.Item).
			Msg(issue.Message)
	}
}
