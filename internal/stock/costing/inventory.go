package costing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// DefaultBufferRatio is the share of the reorder level ordered on top of the
// shortfall.
const DefaultBufferRatio = 0.5

// ProcurementRequired returns how much of item to order. Nothing is ordered
// while the closing balance is at or above the reorder level.
func ProcurementRequired(item domain.InventoryItem, bufferRatio float64) float64 {
	closing := item.ClosingBalance()
	if closing >= item.ReorderLevel {
		return 0
	}
	return math.Max(0, item.ReorderLevel-closing+item.ReorderLevel*bufferRatio)
}

// InventoryLine is one row of the weekly inventory report.
type InventoryLine struct {
	Name                string          `json:"name"`
	Unit                string          `json:"unit"`
	OpeningStock        float64         `json:"opening_stock"`
	ReceivedThisWeek    float64         `json:"received_this_week"`
	UsedThisWeek        float64         `json:"used_this_week"`
	ClosingBalance      float64         `json:"closing_balance"`
	ReorderLevel        float64         `json:"reorder_level"`
	ProcurementRequired float64         `json:"procurement_required"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	StockValue          decimal.Decimal `json:"stock_value"`
	Low                 bool            `json:"low"`
}

// InventoryReport is the weekly inventory position.
type InventoryReport struct {
	Lines      []InventoryLine `json:"lines"`
	TotalValue decimal.Decimal `json:"total_value"`
	LowItems   int             `json:"low_items"`
	Issues     []ConfigIssue   `json:"issues"`
}

// Report builds the inventory report from items whose usage is already derived.
func Report(items []domain.InventoryItem, bufferRatio float64) InventoryReport {
	report := InventoryReport{Lines: []InventoryLine{}, TotalValue: decimal.Zero, Issues: []ConfigIssue{}}
	for _, item := range items {
		closing := item.ClosingBalance()
		value := decimal.NewFromFloat(math.Max(closing, 0)).Mul(item.UnitCost)
		line := InventoryLine{
			Name:                item.Name,
			Unit:                item.Unit,
			OpeningStock:        item.OpeningStock,
			ReceivedThisWeek:    item.ReceivedThisWeek,
			UsedThisWeek:        item.UsedThisWeek,
			ClosingBalance:      closing,
			ReorderLevel:        item.ReorderLevel,
			ProcurementRequired: ProcurementRequired(item, bufferRatio),
			UnitCost:            item.UnitCost,
			StockValue:          value,
			Low:                 closing < item.ReorderLevel,
		}
		if line.Low {
			report.LowItems++
		}
		report.TotalValue = report.TotalValue.Add(value)
		report.Lines = append(report.Lines, line)
	}
	return report
}
