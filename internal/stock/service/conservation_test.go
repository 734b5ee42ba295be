package service_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/internal/stock/service"
)

const simDish = "Jollof Rice"

// tradingSim drives the service through several trading days of random
// preps, cold-room draws, sales and closes, tracking where every portion
// should be.
type tradingSim struct {
	t    *testing.T
	h    *harness
	rng  *rand.Rand
	ctx  context.Context
	held map[domain.Location]int
	cold int
	sold int
	// carriedDraws counts cold-room draws of a batch a receiving shop already
	// held as old stock.
	carriedDraws int
}

func newTradingSim(t *testing.T, seed int64) *tradingSim {
	return &tradingSim{
		t:    t,
		h:    newHarness(t, nil),
		rng:  rand.New(rand.NewSource(seed)),
		ctx:  context.Background(),
		held: map[domain.Location]int{},
	}
}

func (s *tradingSim) prepAndDispatch() {
	portions := 5 + s.rng.Intn(30)
	expiry := s.h.clock.Add(time.Duration(5+s.rng.Intn(3)) * 24 * time.Hour)
	prep, err := s.h.svc.RecordPrep(s.ctx, service.RecordPrepInput{
		DishName: simDish, TotalPortions: portions, ExpiryDate: &expiry, PreparedBy: "Ade",
	})
	require.NoError(s.t, err)

	eastham := s.rng.Intn(portions + 1)
	bethnal := s.rng.Intn(portions - eastham + 1)
	_, err = s.h.svc.RecordDispatch(s.ctx, service.RecordDispatchInput{
		Type: domain.DispatchPrep, PrepID: prep.Prep.ID,
		EasthamSent: eastham, BethnalSent: bethnal, ColdRoomStock: portions - eastham - bethnal,
	})
	require.NoError(s.t, err)

	s.held[domain.LocationEastham] += eastham
	s.held[domain.LocationBethnalGreen] += bethnal
	s.cold += portions - eastham - bethnal
}

func (s *tradingSim) drawFromColdRoom() {
	view := s.h.svc.ColdRoom(s.ctx, simDish)
	if view.Total == 0 {
		return
	}
	eastham := s.rng.Intn(view.Total + 1)
	bethnal := s.rng.Intn(view.Total - eastham + 1)
	if eastham+bethnal == 0 {
		eastham = 1
	}

	before := map[domain.Location]ledger.Reconstruction{}
	for _, loc := range domain.Locations() {
		before[loc] = s.batches(loc)
	}

	result, err := s.h.svc.RecordDispatch(s.ctx, service.RecordDispatchInput{
		DishName: simDish, Type: domain.DispatchColdRoom, EasthamSent: eastham, BethnalSent: bethnal,
	})
	require.NoError(s.t, err)

	for _, d := range result.Dispatches {
		for _, loc := range domain.Locations() {
			if d.SentTo(loc) == 0 {
				continue
			}
			if b, _, ok := before[loc].Find(d.BatchNumber); ok && b.IsOldStock {
				s.carriedDraws++
			}
		}
	}

	s.held[domain.LocationEastham] += eastham
	s.held[domain.LocationBethnalGreen] += bethnal
	s.cold -= eastham + bethnal
}

// sell draws down the first batch in FIFO order that still has stock.
func (s *tradingSim) sell(loc domain.Location) {
	for _, b := range s.batches(loc).Batches {
		if b.RemainingPortions == 0 {
			continue
		}
		id := b.SalesRecordID
		if id == "" {
			id = b.CarriedFromID
		}
		next := s.rng.Intn(b.RemainingPortions)
		_, err := s.h.svc.UpdateStock(s.ctx, service.UpdateStockInput{RecordID: id, RemainingPortions: next})
		require.NoError(s.t, err, "selling %s at %s", b.BatchNumber, loc)

		s.held[loc] -= b.RemainingPortions - next
		s.sold += b.RemainingPortions - next
		return
	}
}

func (s *tradingSim) closeDay() {
	for _, loc := range domain.Locations() {
		_, err := s.h.svc.CloseShop(s.ctx, loc)
		require.NoError(s.t, err)
	}
	s.h.clock = s.h.clock.Add(24 * time.Hour)
}

func (s *tradingSim) batches(loc domain.Location) ledger.Reconstruction {
	rec, err := s.h.svc.Batches(s.ctx, simDish, loc)
	require.NoError(s.t, err)
	return rec
}

func (s *tradingSim) check(step string) {
	for _, loc := range domain.Locations() {
		rec := s.batches(loc)
		require.NoError(s.t, ledger.CheckConservation(rec), "%s at %s", step, loc)
		require.Equal(s.t, s.held[loc], rec.TotalRemaining, "%s at %s", step, loc)
	}
	require.Equal(s.t, s.cold, s.h.svc.ColdRoom(s.ctx, simDish).Total, "%s in the cold room", step)
}

func TestConservation_MultiDayTrading(t *testing.T) {
	carriedDraws := 0
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			sim := newTradingSim(t, seed)

			for day := 0; day < 4; day++ {
				for step := 0; step < 25; step++ {
					switch r := sim.rng.Intn(10); {
					case r < 3:
						sim.prepAndDispatch()
					case r < 5:
						sim.drawFromColdRoom()
					default:
						sim.sell(domain.Locations()[sim.rng.Intn(2)])
					}
					sim.check(fmt.Sprintf("day %d step %d", day, step))
				}
				sim.closeDay()
				sim.check(fmt.Sprintf("after closing day %d", day))
			}

			assert.Positive(t, sim.sold, "the run must record sales")
			carriedDraws += sim.carriedDraws
		})
	}
	assert.Positive(t, carriedDraws, "some runs must draw a batch a shop already carries")
}
