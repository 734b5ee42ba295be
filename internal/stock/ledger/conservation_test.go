package ledger_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
)

// simulation applies random prep, dispatch and sale events to a snapshot the
// same way the service does, tracking expected totals independently.
type simulation struct {
	rng       *rand.Rand
	snap      *domain.Snapshot
	available map[domain.Location]int
	sold      map[domain.Location]int
	seq       int
}

func newSimulation(seed int64) *simulation {
	s := &simulation{
		rng:       rand.New(rand.NewSource(seed)),
		snap:      &domain.Snapshot{},
		available: map[domain.Location]int{},
		sold:      map[domain.Location]int{},
	}
	// Yesterday's carry-forward at both shops.
	for _, loc := range domain.Locations() {
		rec := closedRecord(s.id(), "CARRY-"+string(loc), -1, 5)
		rec.Location = loc
		s.snap.SalesRecords = append(s.snap.SalesRecords, rec)
		s.available[loc] += 5
	}
	return s
}

func (s *simulation) id() string {
	s.seq++
	return fmt.Sprintf("id-%d", s.seq)
}

func (s *simulation) prepAndDispatch() {
	batch := fmt.Sprintf("JR-%03d", s.seq)
	expiry := onDay(1 + s.rng.Intn(3))
	portions := 5 + s.rng.Intn(30)
	s.snap.PrepEvents = append(s.snap.PrepEvents, domain.PrepEvent{
		ID: s.id(), DishName: jollof, BatchNumber: batch, TotalPortions: portions, ExpiryDate: &expiry,
	})

	eastham := s.rng.Intn(portions + 1)
	bethnal := s.rng.Intn(portions - eastham + 1)
	s.snap.DispatchEvents = append(s.snap.DispatchEvents, domain.DispatchEvent{
		ID: s.id(), DishName: jollof, BatchNumber: batch, Date: onDay(0),
		EasthamSent: eastham, BethnalSent: bethnal, ColdRoomStock: portions - eastham - bethnal,
		DispatchType: domain.DispatchPrep,
	})

	for _, loc := range domain.Locations() {
		sent := eastham
		if loc == domain.LocationBethnalGreen {
			sent = bethnal
		}
		if sent == 0 {
			continue
		}
		s.snap.SalesRecords = append(s.snap.SalesRecords, domain.SalesRecord{
			ID: s.id(), DishName: jollof, Location: loc, BatchNumber: batch, Date: onDay(0),
			ReceivedPortions: sent, RemainingPortions: sent, StorageLocation: domain.StorageFridge,
		})
		s.available[loc] += sent
	}
}

func (s *simulation) sell(loc domain.Location) {
	rec := ledger.ReconstructBatches(jollof, loc, s.snap, now, ledger.DefaultOptions())
	if len(rec.Batches) == 0 {
		return
	}
	target := rec.Batches[s.rng.Intn(len(rec.Batches))]
	if target.RemainingPortions == 0 {
		return
	}
	next := target.RemainingPortions - 1 - s.rng.Intn(target.RemainingPortions)

	if err := ledger.ValidateUpdate(rec.Batches, target.BatchNumber, next); err != nil {
		return
	}

	s.sold[loc] += target.RemainingPortions - next
	if target.SalesRecordID == "" {
		s.snap.SalesRecords = append(s.snap.SalesRecords, domain.SalesRecord{
			ID: s.id(), DishName: jollof, Location: loc, BatchNumber: target.BatchNumber, Date: onDay(0),
			ReceivedPortions: target.ReceivedPortions, RemainingPortions: next,
		})
		return
	}
	for i := range s.snap.SalesRecords {
		if s.snap.SalesRecords[i].ID == target.SalesRecordID {
			s.snap.SalesRecords[i].RemainingPortions = next
		}
	}
}

func TestConservation_RandomEventSequences(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			sim := newSimulation(seed)

			for step := 0; step < 60; step++ {
				if sim.rng.Intn(4) == 0 {
					sim.prepAndDispatch()
				} else {
					sim.sell(domain.Locations()[sim.rng.Intn(2)])
				}

				for _, loc := range domain.Locations() {
					rec := ledger.ReconstructBatches(jollof, loc, sim.snap, now, ledger.DefaultOptions())
					require.NoError(t, ledger.CheckConservation(rec), "step %d at %s", step, loc)

					sum := 0
					for _, b := range rec.Batches {
						sum += b.RemainingPortions
					}
					assert.Equal(t, sim.available[loc]-sim.sold[loc], sum, "step %d at %s", step, loc)
				}
			}
		})
	}
}

func TestConservation_RandomSalesRespectFIFO(t *testing.T) {
	sim := newSimulation(42)
	for i := 0; i < 5; i++ {
		sim.prepAndDispatch()
	}
	for i := 0; i < 200; i++ {
		sim.sell(domain.LocationEastham)
	}

	rec := ledger.ReconstructBatches(jollof, domain.LocationEastham, sim.snap, now, ledger.DefaultOptions())

	// Once a batch has been drawn down, nothing ahead of it may hold stock.
	drawn := -1
	for i, b := range rec.Batches {
		if b.RemainingPortions < b.ReceivedPortions {
			drawn = i
		}
	}
	for i := 0; i < drawn; i++ {
		assert.Zero(t, rec.Batches[i].RemainingPortions, "batch %s", rec.Batches[i].BatchNumber)
	}
}

func TestCheckConservation_DetectsDrift(t *testing.T) {
	rec := ledger.Reconstruction{
		Batches:            []ledger.Batch{{BatchNumber: "A", ReceivedPortions: 10, RemainingPortions: 4}},
		TotalReceivedToday: 10,
		TotalRemaining:     5,
		SoldToday:          6,
	}
	assert.ErrorContains(t, ledger.CheckConservation(rec), "total remaining")

	rec.Batches[0].RemainingPortions = 11
	assert.ErrorContains(t, ledger.CheckConservation(rec), "outside")
}
