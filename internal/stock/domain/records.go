package domain

import (
	"time"
)

// Table names used by the persistence collaborator.
const (
	TablePrepEvents     = "prep_events"
	TableDispatchEvents = "dispatch_events"
	TableSalesRecords   = "sales_records"
	TableRecipes        = "recipes"
	TableInventoryItems = "inventory_items"
)

// PrepEvent is a production run recorded by the kitchen.
type PrepEvent struct {
	ID               string     `db:"id" json:"id"`
	DishName         string     `db:"dish_name" json:"dish_name"`
	BatchNumber      string     `db:"batch_number" json:"batch_number"`
	QuantityCookedKg float64    `db:"quantity_cooked_kg" json:"quantity_cooked_kg"`
	RawWeightKg      *float64   `db:"raw_weight_kg" json:"raw_weight_kg,omitempty"`
	TotalPortions    int        `db:"total_portions" json:"total_portions"`
	DateMade         time.Time  `db:"date_made" json:"date_made"`
	ExpiryDate       *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	PreparedBy       string     `db:"prepared_by" json:"prepared_by"`
	ContainerSize    string     `db:"container_size" json:"container_size"`
	Processed        bool       `db:"processed" json:"processed"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// DispatchEvent records portions moved from central production to the shops
// and the cold room. Immutable once created.
type DispatchEvent struct {
	ID            string       `db:"id" json:"id"`
	DishName      string       `db:"dish_name" json:"dish_name"`
	BatchNumber   string       `db:"batch_number" json:"batch_number"`
	Date          time.Time    `db:"date" json:"date"`
	EasthamSent   int          `db:"eastham_sent" json:"eastham_sent"`
	BethnalSent   int          `db:"bethnal_sent" json:"bethnal_sent"`
	ColdRoomStock int          `db:"cold_room_stock" json:"cold_room_stock"`
	DispatchType  DispatchType `db:"dispatch_type" json:"dispatch_type"`
	DateMade      *time.Time   `db:"date_made" json:"date_made,omitempty"`
	ExpiryDate    *time.Time   `db:"expiry_date" json:"expiry_date,omitempty"`
	PreparedBy    *string      `db:"prepared_by" json:"prepared_by,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// SentTo returns the portions this dispatch delivered to a shop.
func (d DispatchEvent) SentTo(loc Location) int {
	switch loc {
	case LocationEastham:
		return d.EasthamSent
	case LocationBethnalGreen:
		return d.BethnalSent
	}
	return 0
}

// Total returns every portion the dispatch accounted for.
func (d DispatchEvent) Total() int {
	return d.EasthamSent + d.BethnalSent + d.ColdRoomStock
}

// SalesRecord is the per-location, per-batch, per-day stock line.
// Version is the optimistic concurrency token; it increments on every update.
type SalesRecord struct {
	ID                string          `db:"id" json:"id"`
	DishName          string          `db:"dish_name" json:"dish_name"`
	Location          Location        `db:"location" json:"location"`
	BatchNumber       string          `db:"batch_number" json:"batch_number"`
	Date              time.Time       `db:"date" json:"date"`
	ReceivedPortions  int             `db:"received_portions" json:"received_portions"`
	RemainingPortions int             `db:"remaining_portions" json:"remaining_portions"`
	EndOfDay          bool            `db:"end_of_day" json:"end_of_day"`
	ClosedDate        *time.Time      `db:"closed_date" json:"closed_date,omitempty"`
	StorageLocation   StorageLocation `db:"storage_location" json:"storage_location"`
	DateMade          *time.Time      `db:"date_made" json:"date_made,omitempty"`
	ExpiryDate        *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	PreparedBy        string          `db:"prepared_by" json:"prepared_by"`
	NonFood           bool            `db:"non_food" json:"non_food"`
	Version           int             `db:"version" json:"version"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Open reports whether the record still belongs to a trading day that has
// not been closed.
func (s SalesRecord) Open() bool {
	return !s.EndOfDay
}

// BatchKey is the batch number, or a key synthesized from the ID for
// records booked without one.
func (s SalesRecord) BatchKey() string {
	if s.BatchNumber != "" {
		return s.BatchNumber
	}
	return "OLD-" + s.ID
}

// Snapshot is the full event history plus catalog the ledger derives from.
// Callers treat it as copy-on-read.
type Snapshot struct {
	PrepEvents     []PrepEvent     `json:"prep_events"`
	DispatchEvents []DispatchEvent `json:"dispatch_events"`
	SalesRecords   []SalesRecord   `json:"sales_records"`
	Recipes        []Recipe        `json:"recipes"`
	Inventory      []InventoryItem `json:"inventory"`
}

// Clone returns a snapshot whose slices do not alias the receiver's.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		PrepEvents:     append([]PrepEvent(nil), s.PrepEvents...),
		DispatchEvents: append([]DispatchEvent(nil), s.DispatchEvents...),
		SalesRecords:   append([]SalesRecord(nil), s.SalesRecords...),
		Inventory:      append([]InventoryItem(nil), s.Inventory...),
	}
	for _, r := range s.Recipes {
		r.Ingredients = append([]Ingredient(nil), r.Ingredients...)
		out.Recipes = append(out.Recipes, r)
	}
	return out
}

// Write is one record mutation handed to the persistence collaborator.
type Write struct {
	Table  string
	Record any
	Delete bool
}

// Save builds an insert-or-update write.
func Save(table string, record any) Write {
	return Write{Table: table, Record: record}
}

// Remove builds a delete write. Record carries the row's ID.
func Remove(table, id string) Write {
	return Write{Table: table, Record: id, Delete: true}
}
