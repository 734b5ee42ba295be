package domain

import (
	"github.com/shopspring/decimal"
)

// Ingredient is one line of a recipe, scaled per kilogram of cooked output.
type Ingredient struct {
	Item                 string  `db:"item" json:"item"`
	QuantityPer1kgCooked float64 `db:"quantity_per_1kg" json:"quantity_per_1kg"`
	Unit                 string  `db:"unit" json:"unit"`
}

// Recipe describes how a dish is produced. Its cost is never stored; it is
// always derived from current inventory unit costs.
type Recipe struct {
	DishName         string       `db:"dish_name" json:"dish_name"`
	RawWeightKg      float64      `db:"raw_weight_kg" json:"raw_weight_kg"`
	CookedWeightKg   float64      `db:"cooked_weight_kg" json:"cooked_weight_kg"`
	TotalPortions    int          `db:"total_portions" json:"total_portions"`
	PortionsPerKg    float64      `db:"portions_per_kg" json:"portions_per_kg"`
	PortionSizeGrams float64      `db:"portion_size_grams" json:"portion_size_grams"`
	Ingredients      []Ingredient `db:"-" json:"ingredients"`
}

// InventoryItem is a raw ingredient held by the central kitchen.
// UsedThisWeek is derived from prep history and is never persisted.
type InventoryItem struct {
	Name             string          `db:"name" json:"name"`
	Unit             string          `db:"unit" json:"unit"`
	OpeningStock     float64         `db:"opening_stock" json:"opening_stock"`
	ReceivedThisWeek float64         `db:"received_this_week" json:"received_this_week"`
	ReorderLevel     float64         `db:"reorder_level" json:"reorder_level"`
	UnitCost         decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	UsedThisWeek     float64         `db:"-" json:"used_this_week"`
}

// ClosingBalance is opening stock plus receipts minus usage.
func (i InventoryItem) ClosingBalance() float64 {
	return i.OpeningStock + i.ReceivedThisWeek - i.UsedThisWeek
}
