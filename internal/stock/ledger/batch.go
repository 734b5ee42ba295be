package ledger

import (
	"sort"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// Options tunes the fallbacks used while reconstructing batches.
type Options struct {
	// OldStockShelfLife is added to a closed record's closing date when the
	// carried-forward batch has no expiry of its own.
	OldStockShelfLife time.Duration
	// DefaultShelfLife is added to today when neither the prep event nor the
	// dispatch names an expiry.
	DefaultShelfLife time.Duration
}

// DefaultOptions returns the kitchen's standard shelf lives.
func DefaultOptions() Options {
	return Options{
		OldStockShelfLife: 2 * 24 * time.Hour,
		DefaultShelfLife:  3 * 24 * time.Hour,
	}
}

// Batch is a derived, never persisted view of one production run's
// portions at one shop.
type Batch struct {
	BatchNumber       string                 `json:"batch_number"`
	ReceivedPortions  int                    `json:"received_portions"`
	RemainingPortions int                    `json:"remaining_portions"`
	DateMade          *time.Time             `json:"date_made,omitempty"`
	ExpiryDate        *time.Time             `json:"expiry_date,omitempty"`
	IsOldStock        bool                   `json:"is_old_stock"`
	StorageLocation   domain.StorageLocation `json:"storage_location"`
	PreparedBy        string                 `json:"prepared_by,omitempty"`
	NonFood           bool                   `json:"non_food,omitempty"`
	// CarriedPortions is the part of ReceivedPortions brought forward from an
	// earlier day. Zero for batches first received today.
	CarriedPortions int `json:"carried_portions,omitempty"`
	// SalesRecordID is today's record holding the live count, if one exists.
	SalesRecordID string `json:"sales_record_id,omitempty"`
	// CarriedFromID is the closed record an old-stock batch was carried from.
	CarriedFromID string `json:"carried_from_id,omitempty"`
}

// ReceivedToday is what the shop took in for this batch today.
func (b Batch) ReceivedToday() int {
	return b.ReceivedPortions - b.CarriedPortions
}

// Split divides the remaining portions into carried and fresh stock. Carried
// portions are counted as sold first, so fresh stock is the last to go.
func (b Batch) Split() (carried, fresh int) {
	fresh = min(b.RemainingPortions, b.ReceivedToday())
	return b.RemainingPortions - fresh, fresh
}

// Reconstruction is the batch list for one dish at one shop on one day,
// in canonical FIFO order, with its aggregates.
type Reconstruction struct {
	DishName           string          `json:"dish_name"`
	Location           domain.Location `json:"location"`
	Day                time.Time       `json:"day"`
	Batches            []Batch         `json:"batches"`
	TotalOldStock      int             `json:"total_old_stock"`
	TotalReceivedToday int             `json:"total_received_today"`
	TotalRemaining     int             `json:"total_remaining"`
	SoldToday          int             `json:"sold_today"`
}

// Find returns the batch with the given number and its FIFO position.
func (r Reconstruction) Find(batchNumber string) (Batch, int, bool) {
	for i, b := range r.Batches {
		if b.BatchNumber == batchNumber {
			return b, i, true
		}
	}
	return Batch{}, -1, false
}

// ReconstructBatches rebuilds the batch list for dish at loc from the full
// event history. today is the instant the caller considers "now"; its
// calendar day and time zone define which records belong to today.
//
// Old stock (closed records from earlier days with portions left) comes first,
// then today's dispatches, each group ordered by ascending expiry. A batch the
// shop already holds as old stock keeps its single position and absorbs any
// portions of it received today. A dish with no events yields an empty list
// and zero aggregates.
func ReconstructBatches(dish string, loc domain.Location, snap *domain.Snapshot, today time.Time, opts Options) Reconstruction {
	rec := Reconstruction{
		DishName: dish,
		Location: loc,
		Day:      StartOfDay(today),
		Batches:  []Batch{},
	}
	if snap == nil {
		return rec
	}

	todays := todaysRecords(dish, loc, snap.SalesRecords, today)
	dispatched := dispatchedToday(dish, loc, snap, today, opts)
	seen := make(map[string]bool)

	for _, b := range oldStock(dish, loc, snap.SalesRecords, today, opts) {
		if live, ok := todays[b.BatchNumber]; ok {
			// Today's record holds the whole batch at the shop, carried
			// portions included.
			b.ReceivedPortions = max(live.ReceivedPortions, b.CarriedPortions)
			b.RemainingPortions = live.RemainingPortions
			b.StorageLocation = live.StorageLocation
			b.SalesRecordID = live.ID
		} else {
			for _, d := range dispatched {
				if d.BatchNumber == b.BatchNumber {
					b.ReceivedPortions += d.ReceivedPortions
					b.RemainingPortions += d.ReceivedPortions
				}
			}
		}
		seen[b.BatchNumber] = true
		rec.Batches = append(rec.Batches, b)
	}

	for _, b := range dispatched {
		if seen[b.BatchNumber] {
			continue
		}
		if live, ok := todays[b.BatchNumber]; ok {
			b.ReceivedPortions = live.ReceivedPortions
			b.RemainingPortions = live.RemainingPortions
			b.StorageLocation = live.StorageLocation
			b.SalesRecordID = live.ID
			b.NonFood = b.NonFood || live.NonFood
		}
		seen[b.BatchNumber] = true
		rec.Batches = append(rec.Batches, b)
	}

	// Non-food lines may be booked straight into a shop with no dispatch.
	for _, sr := range snap.SalesRecords {
		if !sr.NonFood || sr.DishName != dish || sr.Location != loc || !SameDay(sr.Date, today) {
			continue
		}
		key := sr.BatchKey()
		if seen[key] {
			continue
		}
		live := todays[key]
		seen[key] = true
		rec.Batches = append(rec.Batches, Batch{
			BatchNumber:       key,
			ReceivedPortions:  live.ReceivedPortions,
			RemainingPortions: live.RemainingPortions,
			StorageLocation:   live.StorageLocation,
			NonFood:           true,
			SalesRecordID:     live.ID,
		})
	}

	sortCanonical(rec.Batches)
	rec.aggregate()
	return rec
}

func (r *Reconstruction) aggregate() {
	freshRemaining := 0
	for _, b := range r.Batches {
		carried, fresh := b.Split()
		r.TotalRemaining += b.RemainingPortions
		r.TotalOldStock += carried
		r.TotalReceivedToday += b.ReceivedToday()
		freshRemaining += fresh
	}
	r.SoldToday = r.TotalReceivedToday - freshRemaining
}

// oldStock collects the latest closed record per batch from earlier days and
// keeps those that still hold portions. Deduplication happens before the
// remaining > 0 filter so a batch that sold out yesterday does not resurface
// from an older closing.
func oldStock(dish string, loc domain.Location, records []domain.SalesRecord, today time.Time, opts Options) []Batch {
	dayStart := StartOfDay(today)
	latest := make(map[string]domain.SalesRecord)
	var order []string

	for _, sr := range records {
		if sr.DishName != dish || sr.Location != loc || !sr.EndOfDay {
			continue
		}
		if !sr.Date.Before(dayStart) {
			continue
		}
		key := sr.BatchKey()
		prev, ok := latest[key]
		if !ok {
			order = append(order, key)
			latest[key] = sr
			continue
		}
		if sr.Date.After(prev.Date) || (sr.Date.Equal(prev.Date) && closedAfter(sr, prev)) {
			latest[key] = sr
		}
	}

	batches := make([]Batch, 0, len(order))
	for _, key := range order {
		sr := latest[key]
		if sr.RemainingPortions <= 0 {
			continue
		}
		b := Batch{
			BatchNumber:       key,
			ReceivedPortions:  sr.RemainingPortions,
			RemainingPortions: sr.RemainingPortions,
			CarriedPortions:   sr.RemainingPortions,
			DateMade:          sr.DateMade,
			ExpiryDate:        sr.ExpiryDate,
			IsOldStock:        true,
			StorageLocation:   sr.StorageLocation,
			PreparedBy:        sr.PreparedBy,
			NonFood:           sr.NonFood,
			CarriedFromID:     sr.ID,
		}
		if b.ExpiryDate == nil && !sr.NonFood {
			closed := sr.Date
			if sr.ClosedDate != nil {
				closed = *sr.ClosedDate
			}
			expiry := closed.Add(opts.OldStockShelfLife)
			b.ExpiryDate = &expiry
		}
		batches = append(batches, b)
	}
	return batches
}

// dispatchedToday merges today's dispatches to loc per batch number.
func dispatchedToday(dish string, loc domain.Location, snap *domain.Snapshot, today time.Time, opts Options) []Batch {
	preps := make(map[string]domain.PrepEvent)
	for _, p := range snap.PrepEvents {
		if p.DishName == dish && p.BatchNumber != "" {
			preps[p.BatchNumber] = p
		}
	}

	index := make(map[string]int)
	var batches []Batch

	for _, d := range snap.DispatchEvents {
		if d.DishName != dish || !SameDay(d.Date, today) {
			continue
		}
		sent := d.SentTo(loc)
		if sent <= 0 {
			continue
		}
		if i, ok := index[d.BatchNumber]; ok {
			batches[i].ReceivedPortions += sent
			batches[i].RemainingPortions += sent
			continue
		}

		b := Batch{
			BatchNumber:       d.BatchNumber,
			ReceivedPortions:  sent,
			RemainingPortions: sent,
			StorageLocation:   domain.StorageFridge,
		}
		if d.DispatchType == domain.DispatchInventory {
			b.NonFood = true
		} else {
			resolveProvenance(&b, d, preps, today, opts)
		}
		index[d.BatchNumber] = len(batches)
		batches = append(batches, b)
	}
	return batches
}

// resolveProvenance fills made/expiry/preparer from the prep event, then the
// dispatch, then fallbacks.
func resolveProvenance(b *Batch, d domain.DispatchEvent, preps map[string]domain.PrepEvent, today time.Time, opts Options) {
	prep, hasPrep := preps[d.BatchNumber]

	switch {
	case hasPrep:
		made := prep.DateMade
		b.DateMade = &made
	case d.DateMade != nil:
		b.DateMade = d.DateMade
	default:
		made := d.Date
		b.DateMade = &made
	}

	switch {
	case hasPrep && prep.ExpiryDate != nil:
		b.ExpiryDate = prep.ExpiryDate
	case d.ExpiryDate != nil:
		b.ExpiryDate = d.ExpiryDate
	default:
		expiry := today.Add(opts.DefaultShelfLife)
		b.ExpiryDate = &expiry
	}

	switch {
	case hasPrep && prep.PreparedBy != "":
		b.PreparedBy = prep.PreparedBy
	case d.PreparedBy != nil:
		b.PreparedBy = *d.PreparedBy
	}
}

// todaysRecords indexes today's records for dish at loc by batch number,
// preferring an open record over a closed one.
func todaysRecords(dish string, loc domain.Location, records []domain.SalesRecord, today time.Time) map[string]domain.SalesRecord {
	out := make(map[string]domain.SalesRecord)
	for _, sr := range records {
		if sr.DishName != dish || sr.Location != loc || !SameDay(sr.Date, today) {
			continue
		}
		key := sr.BatchKey()
		prev, ok := out[key]
		if !ok || (sr.Open() && !prev.Open()) || (sr.Open() == prev.Open() && sr.UpdatedAt.After(prev.UpdatedAt)) {
			out[key] = sr
		}
	}
	return out
}

func closedAfter(a, b domain.SalesRecord) bool {
	switch {
	case a.ClosedDate == nil:
		return false
	case b.ClosedDate == nil:
		return true
	}
	return a.ClosedDate.After(*b.ClosedDate)
}

// sortCanonical orders old stock first, then ascending expiry. Batches
// without an expiry sort last within their group. The sort is stable, so
// ties keep event order.
func sortCanonical(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.IsOldStock != b.IsOldStock {
			return a.IsOldStock
		}
		switch {
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		}
		return a.ExpiryDate.Before(*b.ExpiryDate)
	})
}
