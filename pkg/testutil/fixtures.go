package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// FixtureFactory builds ledger records with unique IDs and batch numbers.
// All dates are relative to Day, which defaults to midnight UTC on
// 2026-03-10.
type FixtureFactory struct {
	Day time.Time
	seq int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{Day: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
}

func (f *FixtureFactory) nextSeq() int {
	f.seq++
	return f.seq
}

// On returns Day shifted by offset days.
func (f *FixtureFactory) On(offset int) time.Time {
	return f.Day.AddDate(0, 0, offset)
}

// Prep builds an unprocessed 20-portion Jollof Rice prep made on Day.
func (f *FixtureFactory) Prep(opts ...func(*domain.PrepEvent)) domain.PrepEvent {
	seq := f.nextSeq()
	expiry := f.Day.AddDate(0, 0, 3)
	p := domain.PrepEvent{
		ID:               uuid.NewString(),
		DishName:         "Jollof Rice",
		BatchNumber:      fmt.Sprintf("JOL-%s-%03d", f.Day.Format("20060102"), seq),
		QuantityCookedKg: 2,
		TotalPortions:    20,
		DateMade:         f.Day,
		ExpiryDate:       &expiry,
		PreparedBy:       "Ade",
		ContainerSize:    "1kg",
		CreatedAt:        f.Day,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithPortions sets a prep's portion count
func WithPortions(n int) func(*domain.PrepEvent) {
	return func(p *domain.PrepEvent) {
		p.TotalPortions = n
	}
}

// WithDish sets a prep's dish
func WithDish(dish string) func(*domain.PrepEvent) {
	return func(p *domain.PrepEvent) {
		p.DishName = dish
	}
}

// WithExpiry sets a prep's expiry
func WithExpiry(expiry *time.Time) func(*domain.PrepEvent) {
	return func(p *domain.PrepEvent) {
		p.ExpiryDate = expiry
	}
}

// Processed marks a prep as dispatched
func Processed() func(*domain.PrepEvent) {
	return func(p *domain.PrepEvent) {
		p.Processed = true
	}
}

// Dispatch builds a prep-type dispatch of p on Day.
func (f *FixtureFactory) Dispatch(p domain.PrepEvent, eastham, bethnal, coldRoom int) domain.DispatchEvent {
	return domain.DispatchEvent{
		ID:            uuid.NewString(),
		DishName:      p.DishName,
		BatchNumber:   p.BatchNumber,
		Date:          f.Day,
		EasthamSent:   eastham,
		BethnalSent:   bethnal,
		ColdRoomStock: coldRoom,
		DispatchType:  domain.DispatchPrep,
		DateMade:      &p.DateMade,
		ExpiryDate:    p.ExpiryDate,
		PreparedBy:    &p.PreparedBy,
		CreatedAt:     f.Day,
	}
}

// ClosedRecord builds a closed Eastham record from dayOffset days ago.
func (f *FixtureFactory) ClosedRecord(batch string, dayOffset, received, remaining int) domain.SalesRecord {
	date := f.On(dayOffset)
	closed := date.Add(22 * time.Hour)
	return domain.SalesRecord{
		ID:                uuid.NewString(),
		DishName:          "Jollof Rice",
		Location:          domain.LocationEastham,
		BatchNumber:       batch,
		Date:              date,
		ReceivedPortions:  received,
		RemainingPortions: remaining,
		EndOfDay:          true,
		ClosedDate:        &closed,
		StorageLocation:   domain.StorageFridge,
		PreparedBy:        "Ade",
		Version:           1,
		CreatedAt:         date,
		UpdatedAt:         closed,
	}
}

// JollofRecipe is a two-ingredient recipe: 10kg raw gives 9kg cooked and
// 60 portions.
func JollofRecipe() domain.Recipe {
	return domain.Recipe{
		DishName:         "Jollof Rice",
		RawWeightKg:      10,
		CookedWeightKg:   9,
		TotalPortions:    60,
		PortionsPerKg:    6.67,
		PortionSizeGrams: 150,
		Ingredients: []domain.Ingredient{
			{Item: "Rice", QuantityPer1kgCooked: 0.5, Unit: "kg"},
			{Item: "Tomato", QuantityPer1kgCooked: 0.25, Unit: "kg"},
		},
	}
}

// JollofInventory stocks the items JollofRecipe uses.
func JollofInventory() []domain.InventoryItem {
	return []domain.InventoryItem{
		{Name: "Rice", Unit: "kg", OpeningStock: 20, ReceivedThisWeek: 5, ReorderLevel: 10, UnitCost: decimal.RequireFromString("2.50")},
		{Name: "Tomato", Unit: "kg", OpeningStock: 8, ReorderLevel: 4, UnitCost: decimal.RequireFromString("2.00")},
	}
}
