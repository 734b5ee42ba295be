package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// ErrInsufficientColdRoom is returned when a drawdown asks for more portions
// than the cold room holds for the dish.
var ErrInsufficientColdRoom = errors.New("insufficient cold room stock")

// ColdRoomBatch is the cold-room balance of one batch.
type ColdRoomBatch struct {
	BatchNumber string     `json:"batch_number"`
	Portions    int        `json:"portions"`
	DateMade    *time.Time `json:"date_made,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	PreparedBy  string     `json:"prepared_by,omitempty"`
}

// ColdRoomDraw is the share of a drawdown taken from one batch.
type ColdRoomDraw struct {
	ColdRoomBatch
	EasthamSent int `json:"eastham_sent"`
	BethnalSent int `json:"bethnal_sent"`
}

// ColdRoomBalance returns the per-batch cold-room holdings of dish with a
// positive balance, oldest expiry first.
//
// A batch's balance is every portion parked in the cold room by its dispatches
// less every portion later drawn from it by coldroom dispatches.
func ColdRoomBalance(dish string, snap *domain.Snapshot) []ColdRoomBatch {
	if snap == nil {
		return []ColdRoomBatch{}
	}

	preps := make(map[string]domain.PrepEvent)
	for _, p := range snap.PrepEvents {
		if p.DishName == dish {
			preps[p.BatchNumber] = p
		}
	}

	index := make(map[string]int)
	var batches []ColdRoomBatch
	for _, d := range snap.DispatchEvents {
		if d.DishName != dish {
			continue
		}
		delta := d.ColdRoomStock
		if d.DispatchType == domain.DispatchColdRoom {
			delta -= d.EasthamSent + d.BethnalSent
		}

		i, ok := index[d.BatchNumber]
		if !ok {
			b := ColdRoomBatch{BatchNumber: d.BatchNumber, DateMade: d.DateMade, ExpiryDate: d.ExpiryDate}
			if d.PreparedBy != nil {
				b.PreparedBy = *d.PreparedBy
			}
			if p, found := preps[d.BatchNumber]; found {
				made := p.DateMade
				b.DateMade = &made
				if p.ExpiryDate != nil {
					b.ExpiryDate = p.ExpiryDate
				}
				b.PreparedBy = p.PreparedBy
			}
			i = len(batches)
			index[d.BatchNumber] = i
			batches = append(batches, b)
		}
		batches[i].Portions += delta
	}

	out := make([]ColdRoomBatch, 0, len(batches))
	for _, b := range batches {
		if b.Portions > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch {
		case out[i].ExpiryDate == nil:
			return false
		case out[j].ExpiryDate == nil:
			return true
		}
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	return out
}

// ColdRoomTotal sums the portions across batches.
func ColdRoomTotal(batches []ColdRoomBatch) int {
	total := 0
	for _, b := range batches {
		total += b.Portions
	}
	return total
}

// AllocateColdRoom splits a drawdown of eastham and bethnal portions across
// batches in the given order, filling Eastham first from each batch.
func AllocateColdRoom(batches []ColdRoomBatch, eastham, bethnal int) ([]ColdRoomDraw, error) {
	if eastham < 0 || bethnal < 0 {
		return nil, fmt.Errorf("negative drawdown: eastham=%d bethnal=%d", eastham, bethnal)
	}
	if available := ColdRoomTotal(batches); eastham+bethnal > available {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientColdRoom, eastham+bethnal, available)
	}

	var draws []ColdRoomDraw
	for _, b := range batches {
		if eastham == 0 && bethnal == 0 {
			break
		}
		left := b.Portions
		toEastham := min(left, eastham)
		left -= toEastham
		toBethnal := min(left, bethnal)
		if toEastham+toBethnal == 0 {
			continue
		}
		eastham -= toEastham
		bethnal -= toBethnal
		draws = append(draws, ColdRoomDraw{ColdRoomBatch: b, EasthamSent: toEastham, BethnalSent: toBethnal})
	}
	return draws, nil
}
