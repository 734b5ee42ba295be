package ledger

import (
	"fmt"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// StockSummary is the per-dish, per-shop stock picture for a day.
type StockSummary struct {
	DishName      string          `json:"dish_name"`
	Location      domain.Location `json:"location"`
	ReceivedToday int             `json:"received_today"`
	SoldToday     int             `json:"sold_today"`
	Remaining     int             `json:"remaining"`
	OldStock      int             `json:"old_stock"`
	Batches       int             `json:"batches"`
}

// FleetSummary totals stock across every dish and shop.
type FleetSummary struct {
	Dishes        []StockSummary `json:"dishes"`
	ReceivedToday int            `json:"received_today"`
	SoldToday     int            `json:"sold_today"`
	Remaining     int            `json:"remaining"`
	OldStock      int            `json:"old_stock"`
	OutOfStock    int            `json:"out_of_stock"`
	LowStock      int            `json:"low_stock"`
}

// Summarize reduces a reconstruction to its summary line.
func Summarize(r Reconstruction) StockSummary {
	return StockSummary{
		DishName:      r.DishName,
		Location:      r.Location,
		ReceivedToday: r.TotalReceivedToday,
		SoldToday:     r.SoldToday,
		Remaining:     r.TotalRemaining,
		OldStock:      r.TotalOldStock,
		Batches:       len(r.Batches),
	}
}

// SummarizeFleet totals reconstructions. Dishes with no batches are left out.
func SummarizeFleet(recons []Reconstruction, lowStockThreshold int) FleetSummary {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	fleet := FleetSummary{Dishes: []StockSummary{}}
	for _, r := range recons {
		if len(r.Batches) == 0 {
			continue
		}
		s := Summarize(r)
		fleet.Dishes = append(fleet.Dishes, s)
		fleet.ReceivedToday += s.ReceivedToday
		fleet.SoldToday += s.SoldToday
		fleet.Remaining += s.Remaining
		fleet.OldStock += s.OldStock
		switch {
		case s.Remaining == 0 && s.ReceivedToday > 0:
			fleet.OutOfStock++
		case s.Remaining > 0 && s.Remaining <= lowStockThreshold:
			fleet.LowStock++
		}
	}
	return fleet
}

// CheckConservation verifies that a reconstruction's aggregates agree with its
// batches and that no batch holds more than it received or less than zero.
func CheckConservation(r Reconstruction) error {
	var remaining, old, received, newRemaining int
	for _, b := range r.Batches {
		if b.RemainingPortions < 0 || b.RemainingPortions > b.ReceivedPortions {
			return fmt.Errorf("batch %s: remaining %d outside [0, %d]", b.BatchNumber, b.RemainingPortions, b.ReceivedPortions)
		}
		if b.CarriedPortions < 0 || b.CarriedPortions > b.ReceivedPortions {
			return fmt.Errorf("batch %s: carried %d outside [0, %d]", b.BatchNumber, b.CarriedPortions, b.ReceivedPortions)
		}
		carried, fresh := b.Split()
		remaining += b.RemainingPortions
		old += carried
		received += b.ReceivedToday()
		newRemaining += fresh
	}

	switch {
	case remaining != r.TotalRemaining:
		return fmt.Errorf("total remaining %d, batches sum to %d", r.TotalRemaining, remaining)
	case old != r.TotalOldStock:
		return fmt.Errorf("old stock %d, batches sum to %d", r.TotalOldStock, old)
	case received != r.TotalReceivedToday:
		return fmt.Errorf("received today %d, batches sum to %d", r.TotalReceivedToday, received)
	case received-newRemaining != r.SoldToday:
		return fmt.Errorf("sold today %d, expected %d", r.SoldToday, received-newRemaining)
	}
	return nil
}
