package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/prepline/prepline-backend/internal/stock/costing"
	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/pkg/errors"
)

// RecordPrepInput describes a production run. When RawWeightKg is set the
// cooked weight and portions default to the recipe scaled to that weight.
type RecordPrepInput struct {
	DishName         string
	BatchNumber      string
	QuantityCookedKg float64
	RawWeightKg      *float64
	TotalPortions    int
	DateMade         *time.Time
	ExpiryDate       *time.Time
	PreparedBy       string
	ContainerSize    string
}

// PrepResult is a recorded prep plus what it drew from inventory.
type PrepResult struct {
	Prep       domain.PrepEvent      `json:"prep"`
	Scale      *costing.PrepScale    `json:"scale,omitempty"`
	Deductions []costing.Deduction   `json:"deductions"`
	Issues     []costing.ConfigIssue `json:"issues"`
}

// RecordPrep records a production run.
func (s *StockService) RecordPrep(ctx context.Context, in RecordPrepInput) (PrepResult, error) {
	if strings.TrimSpace(in.DishName) == "" {
		return PrepResult{}, errors.Validation(map[string]string{"dish_name": "this field is required"})
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	snap := s.current()
	now := s.now()
	result := PrepResult{Deductions: []costing.Deduction{}, Issues: []costing.ConfigIssue{}}

	if in.RawWeightKg != nil {
		recipe, ok := costing.FindRecipe(in.DishName, snap.Recipes)
		if !ok {
			return PrepResult{}, errors.NotFound("recipe")
		}
		sc, err := scale(recipe, *in.RawWeightKg)
		if err != nil {
			return PrepResult{}, err
		}
		result.Scale = &sc
		if in.TotalPortions == 0 {
			in.TotalPortions = sc.TotalPortions
		}
		if in.QuantityCookedKg == 0 {
			in.QuantityCookedKg = sc.CookedWeightKg
		}
		deducted := costing.DeductIngredients(recipe, *in.RawWeightKg, snap.Inventory)
		result.Deductions = deducted.Deductions
		result.Issues = deducted.Issues
	}

	if in.TotalPortions <= 0 {
		return PrepResult{}, errors.Validation(map[string]string{"total_portions": "must be greater than 0"})
	}

	batch := in.BatchNumber
	switch {
	case batch == "":
		batch = nextBatchNumber(in.DishName, now, snap)
	case batchExists(snap, batch):
		return PrepResult{}, errors.Conflict("batch " + batch + " already exists")
	}

	made := now
	if in.DateMade != nil {
		made = *in.DateMade
	}
	prep := domain.PrepEvent{
		ID:               uuid.NewString(),
		DishName:         in.DishName,
		BatchNumber:      batch,
		QuantityCookedKg: in.QuantityCookedKg,
		RawWeightKg:      in.RawWeightKg,
		TotalPortions:    in.TotalPortions,
		DateMade:         made,
		ExpiryDate:       in.ExpiryDate,
		PreparedBy:       in.PreparedBy,
		ContainerSize:    in.ContainerSize,
		CreatedAt:        now,
	}

	if err := s.commit(ctx, domain.Save(domain.TablePrepEvents, prep)); err != nil {
		return PrepResult{}, err
	}

	s.logIssues(result.Issues)
	s.logger.WithDish(prep.DishName, "").Info().
		Str("batch_number", prep.BatchNumber).
		Int("portions", prep.TotalPortions).
		Int("deductions", len(result.Deductions)).
		Msg("prep recorded")
	s.publisher.PublishPrepRecorded(ctx, prep, len(result.Deductions))

	result.Prep = prep
	return result, nil
}

// DeletePrep removes a prep that has not been dispatched.
func (s *StockService) DeletePrep(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	prep, ok := findPrep(s.current(), id, "")
	if !ok {
		return errors.NotFound("prep event")
	}
	if prep.Processed {
		return errors.Conflict("prep " + prep.BatchNumber + " has been dispatched and can no longer be deleted")
	}

	if err := s.commit(ctx, domain.Remove(domain.TablePrepEvents, prep.ID)); err != nil {
		return err
	}

	s.logger.WithDish(prep.DishName, "").Info().Str("batch_number", prep.BatchNumber).Msg("prep deleted")
	s.publisher.PublishPrepDeleted(ctx, prep)
	return nil
}

// RecordDispatchInput allocates portions to the shops and the cold room.
//
// A prep dispatch names its prep by PrepID (or BatchNumber) and must account
// for every portion of it. A coldroom dispatch draws from the dish's cold-room
// balance, oldest expiry first. Manual and inventory dispatches carry their
// own provenance and must sum to TotalAvailable.
type RecordDispatchInput struct {
	DishName       string
	Type           domain.DispatchType
	PrepID         string
	BatchNumber    string
	TotalAvailable int
	EasthamSent    int
	BethnalSent    int
	ColdRoomStock  int
	DateMade       *time.Time
	ExpiryDate     *time.Time
	PreparedBy     string
}

// DispatchResult lists the rows a dispatch created or touched.
type DispatchResult struct {
	Dispatches   []domain.DispatchEvent `json:"dispatches"`
	SalesRecords []domain.SalesRecord   `json:"sales_records"`
}

// RecordDispatch records a dispatch and books the sent portions into each
// receiving shop's open record for today.
func (s *StockService) RecordDispatch(ctx context.Context, in RecordDispatchInput) (DispatchResult, error) {
	if !in.Type.Valid() {
		return DispatchResult{}, errors.Validation(map[string]string{"dispatch_type": "must be one of: prep, coldroom, manual, inventory"})
	}
	if in.EasthamSent < 0 || in.BethnalSent < 0 || in.ColdRoomStock < 0 {
		return DispatchResult{}, errors.Validation(map[string]string{"distribution": "sent quantities must not be negative"})
	}
	if in.Type != domain.DispatchPrep && strings.TrimSpace(in.DishName) == "" {
		return DispatchResult{}, errors.Validation(map[string]string{"dish_name": "this field is required"})
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	snap := s.current()
	now := s.now()
	today := ledger.StartOfDay(now)
	sum := in.EasthamSent + in.BethnalSent + in.ColdRoomStock

	var dispatches []domain.DispatchEvent
	var writes []domain.Write

	switch in.Type {
	case domain.DispatchPrep:
		prep, ok := findPrep(snap, in.PrepID, in.BatchNumber)
		if !ok {
			return DispatchResult{}, errors.NotFound("prep event")
		}
		if prep.Processed {
			return DispatchResult{}, errors.Conflict("prep " + prep.BatchNumber + " has already been dispatched")
		}
		if sum != prep.TotalPortions {
			return DispatchResult{}, distributionError(sum, prep.TotalPortions)
		}
		made, by := prep.DateMade, prep.PreparedBy
		dispatches = append(dispatches, domain.DispatchEvent{
			ID:            uuid.NewString(),
			DishName:      prep.DishName,
			BatchNumber:   prep.BatchNumber,
			Date:          today,
			EasthamSent:   in.EasthamSent,
			BethnalSent:   in.BethnalSent,
			ColdRoomStock: in.ColdRoomStock,
			DispatchType:  domain.DispatchPrep,
			DateMade:      &made,
			ExpiryDate:    prep.ExpiryDate,
			PreparedBy:    &by,
			CreatedAt:     now,
		})
		prep.Processed = true
		writes = append(writes, domain.Save(domain.TablePrepEvents, prep))

	case domain.DispatchColdRoom:
		if in.ColdRoomStock != 0 {
			return DispatchResult{}, errors.Validation(map[string]string{"cold_room_stock": "must be 0 when drawing from the cold room"})
		}
		if sum == 0 {
			return DispatchResult{}, errors.Validation(map[string]string{"distribution": "nothing to dispatch"})
		}
		if in.TotalAvailable > 0 && sum != in.TotalAvailable {
			return DispatchResult{}, distributionError(sum, in.TotalAvailable)
		}
		draws, err := ledger.AllocateColdRoom(ledger.ColdRoomBalance(in.DishName, snap), in.EasthamSent, in.BethnalSent)
		if err != nil {
			return DispatchResult{}, errors.Validation(map[string]string{"distribution": err.Error()})
		}
		for _, d := range draws {
			var by *string
			if d.PreparedBy != "" {
				preparer := d.PreparedBy
				by = &preparer
			}
			dispatches = append(dispatches, domain.DispatchEvent{
				ID:           uuid.NewString(),
				DishName:     in.DishName,
				BatchNumber:  d.BatchNumber,
				Date:         today,
				EasthamSent:  d.EasthamSent,
				BethnalSent:  d.BethnalSent,
				DispatchType: domain.DispatchColdRoom,
				DateMade:     d.DateMade,
				ExpiryDate:   d.ExpiryDate,
				PreparedBy:   by,
				CreatedAt:    now,
			})
		}

	default:
		if in.TotalAvailable <= 0 {
			return DispatchResult{}, errors.Validation(map[string]string{"total_available": "must be greater than 0"})
		}
		if sum != in.TotalAvailable {
			return DispatchResult{}, distributionError(sum, in.TotalAvailable)
		}
		batch := in.BatchNumber
		if batch == "" {
			batch = nextBatchNumber(in.DishName, now, snap)
		}
		var by *string
		if in.PreparedBy != "" {
			preparer := in.PreparedBy
			by = &preparer
		}
		dispatches = append(dispatches, domain.DispatchEvent{
			ID:            uuid.NewString(),
			DishName:      in.DishName,
			BatchNumber:   batch,
			Date:          today,
			EasthamSent:   in.EasthamSent,
			BethnalSent:   in.BethnalSent,
			ColdRoomStock: in.ColdRoomStock,
			DispatchType:  in.Type,
			DateMade:      in.DateMade,
			ExpiryDate:    in.ExpiryDate,
			PreparedBy:    by,
			CreatedAt:     now,
		})
	}

	records := bookIntoShops(snap, dispatches, today, now, s.opts.Ledger)

	for _, d := range dispatches {
		writes = append(writes, domain.Save(domain.TableDispatchEvents, d))
	}
	for _, sr := range records {
		writes = append(writes, domain.Save(domain.TableSalesRecords, sr))
	}
	if err := s.commit(ctx, writes...); err != nil {
		return DispatchResult{}, err
	}

	for _, d := range dispatches {
		s.logger.WithDish(d.DishName, "").Info().
			Str("batch_number", d.BatchNumber).
			Str("dispatch_type", string(d.DispatchType)).
			Int("eastham", d.EasthamSent).
			Int("bethnal_green", d.BethnalSent).
			Int("cold_room", d.ColdRoomStock).
			Msg("dispatch recorded")
		s.publisher.PublishDispatchRecorded(ctx, d)
	}

	return DispatchResult{Dispatches: dispatches, SalesRecords: records}, nil
}

// bookIntoShops adds each dispatch's shop portions to today's open record for
// that batch, creating one where none exists. Shops sent nothing get no record.
// A new record for a batch the shop still holds as old stock starts from the
// carried portions, since today's record replaces the carried count.
func bookIntoShops(snap *domain.Snapshot, dispatches []domain.DispatchEvent, today, now time.Time, opts ledger.Options) []domain.SalesRecord {
	pending := make(map[string]int)
	records := []domain.SalesRecord{}
	recons := make(map[string]ledger.Reconstruction)

	carried := func(dish string, loc domain.Location, batch string) (ledger.Batch, bool) {
		key := dish + "|" + string(loc)
		rec, ok := recons[key]
		if !ok {
			rec = ledger.ReconstructBatches(dish, loc, snap, today, opts)
			recons[key] = rec
		}
		b, _, found := rec.Find(batch)
		if !found || !b.IsOldStock || b.SalesRecordID != "" {
			return ledger.Batch{}, false
		}
		return b, true
	}

	for _, d := range dispatches {
		for _, loc := range domain.Locations() {
			sent := d.SentTo(loc)
			if sent <= 0 {
				continue
			}
			key := string(loc) + "|" + d.BatchNumber
			i, ok := pending[key]
			if !ok {
				sr, found := openRecord(snap, d.DishName, loc, d.BatchNumber, today)
				if found {
					sr.Version++
				} else {
					sr = domain.SalesRecord{
						ID:              uuid.NewString(),
						DishName:        d.DishName,
						Location:        loc,
						BatchNumber:     d.BatchNumber,
						Date:            today,
						StorageLocation: domain.StorageFridge,
						DateMade:        d.DateMade,
						ExpiryDate:      d.ExpiryDate,
						NonFood:         d.DispatchType == domain.DispatchInventory,
						Version:         1,
						CreatedAt:       now,
					}
					if d.PreparedBy != nil {
						sr.PreparedBy = *d.PreparedBy
					}
					if old, held := carried(d.DishName, loc, d.BatchNumber); held {
						sr.ReceivedPortions = old.ReceivedPortions
						sr.RemainingPortions = old.RemainingPortions
						sr.StorageLocation = old.StorageLocation
						if sr.ExpiryDate == nil {
							sr.ExpiryDate = old.ExpiryDate
						}
						sr.NonFood = sr.NonFood || old.NonFood
					}
				}
				sr.UpdatedAt = now
				i = len(records)
				pending[key] = i
				records = append(records, sr)
			}
			records[i].ReceivedPortions += sent
			records[i].RemainingPortions += sent
		}
	}
	return records
}

// UpdateStockInput sets a batch's remaining count at a shop. RecordID is
// today's record for the batch or, for old stock not yet touched today, the
// record it was carried from. ExpectedVersion, when set, must match the
// version of the record being changed.
type UpdateStockInput struct {
	RecordID          string
	RemainingPortions int
	StorageLocation   domain.StorageLocation
	ExpectedVersion   *int
}

// UpdateStock records a shop's count for one batch. The FIFO order is
// checked against a reconstruction of the current snapshot while commands
// are serialized, so the check holds at commit time.
func (s *StockService) UpdateStock(ctx context.Context, in UpdateStockInput) (domain.SalesRecord, error) {
	if in.RemainingPortions < 0 {
		return domain.SalesRecord{}, errors.Validation(map[string]string{"remaining_portions": "must not be negative"})
	}
	if in.StorageLocation != "" && !in.StorageLocation.Valid() {
		return domain.SalesRecord{}, errors.Validation(map[string]string{"storage_location": "must be one of: Fridge, Freezer"})
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	snap := s.current()
	today := s.today()

	sr, ok := findRecord(snap, in.RecordID)
	if !ok {
		return domain.SalesRecord{}, errors.NotFound("sales record")
	}
	if !sr.Open() && ledger.SameDay(sr.Date, today) {
		return domain.SalesRecord{}, errors.Conflict("trading day at " + string(sr.Location) + " is already closed")
	}

	rec := ledger.ReconstructBatches(sr.DishName, sr.Location, snap, today, s.opts.Ledger)
	batch, _, found := rec.Find(sr.BatchKey())
	if !found {
		return domain.SalesRecord{}, errors.Conflict("batch " + sr.BatchKey() + " is not in today's stock")
	}
	if in.RemainingPortions > batch.ReceivedPortions {
		return domain.SalesRecord{}, errors.Validation(map[string]string{
			"remaining_portions": fmt.Sprintf("must be between 0 and %d", batch.ReceivedPortions),
		})
	}
	if err := ledger.ValidateUpdate(rec.Batches, batch.BatchNumber, in.RemainingPortions); err != nil {
		var violation *ledger.FIFOViolation
		if errors.As(err, &violation) {
			b := violation.Blocking
			s.logger.WithDish(sr.DishName, string(sr.Location)).Info().
				Str("batch_number", batch.BatchNumber).
				Str("blocking_batch", b.BatchNumber).
				Msg("update rejected by FIFO order")
			return domain.SalesRecord{}, errors.FIFOViolation(b.BatchNumber, b.RemainingPortions, b.ExpiryDate)
		}
		return domain.SalesRecord{}, errors.Conflict(err.Error())
	}

	now := s.now()
	var updated domain.SalesRecord
	if batch.SalesRecordID != "" {
		live, _ := findRecord(snap, batch.SalesRecordID)
		if in.ExpectedVersion != nil && *in.ExpectedVersion != live.Version {
			return domain.SalesRecord{}, errors.StaleRecord("sales record " + live.ID)
		}
		if !live.Open() {
			return domain.SalesRecord{}, errors.Conflict("trading day at " + string(live.Location) + " is already closed")
		}
		updated = live
		updated.Version++
	} else {
		if in.ExpectedVersion != nil && *in.ExpectedVersion != sr.Version {
			return domain.SalesRecord{}, errors.StaleRecord("sales record " + sr.ID)
		}
		updated = domain.SalesRecord{
			ID:               uuid.NewString(),
			DishName:         sr.DishName,
			Location:         sr.Location,
			BatchNumber:      batch.BatchNumber,
			Date:             today,
			ReceivedPortions: batch.ReceivedPortions,
			StorageLocation:  batch.StorageLocation,
			DateMade:         batch.DateMade,
			ExpiryDate:       batch.ExpiryDate,
			PreparedBy:       batch.PreparedBy,
			NonFood:          batch.NonFood,
			Version:          1,
			CreatedAt:        now,
		}
	}
	updated.RemainingPortions = in.RemainingPortions
	if in.StorageLocation != "" {
		updated.StorageLocation = in.StorageLocation
	}
	updated.UpdatedAt = now

	if err := s.commit(ctx, domain.Save(domain.TableSalesRecords, updated)); err != nil {
		return domain.SalesRecord{}, err
	}

	s.logger.WithDish(updated.DishName, string(updated.Location)).Info().
		Str("batch_number", updated.BatchNumber).
		Int("previous", batch.RemainingPortions).
		Int("remaining", updated.RemainingPortions).
		Int("version", updated.Version).
		Msg("stock updated")
	s.publisher.PublishSalesUpdated(ctx, updated, batch.RemainingPortions)
	return updated, nil
}

// CloseShop ends the trading day at loc.
func (s *StockService) CloseShop(ctx context.Context, loc domain.Location) (ledger.ClosingSummary, error) {
	if !loc.Valid() {
		return ledger.ClosingSummary{}, errors.Validation(map[string]string{"location": "must be one of: Eastham, Bethnal Green"})
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	closed, summary := ledger.CloseShop(s.current().SalesRecords, loc, s.now())
	if len(closed) > 0 {
		writes := make([]domain.Write, 0, len(closed))
		for _, sr := range closed {
			writes = append(writes, domain.Save(domain.TableSalesRecords, sr))
		}
		if err := s.commit(ctx, writes...); err != nil {
			return ledger.ClosingSummary{}, err
		}
	}

	s.logger.Info().
		Str("location", string(loc)).
		Int("records_closed", summary.RecordsClosed).
		Int("carried_portions", summary.CarriedPortions).
		Msg("shop closed")
	s.publisher.PublishShopClosed(ctx, summary)
	return summary, nil
}

func distributionError(sum, total int) error {
	return errors.Validation(map[string]string{
		"distribution": fmt.Sprintf("distribution total %d must equal total available %d", sum, total),
	})
}

func findPrep(snap *domain.Snapshot, id, batch string) (domain.PrepEvent, bool) {
	for _, p := range snap.PrepEvents {
		if (id != "" && p.ID == id) || (id == "" && batch != "" && p.BatchNumber == batch) {
			return p, true
		}
	}
	return domain.PrepEvent{}, false
}

func findRecord(snap *domain.Snapshot, id string) (domain.SalesRecord, bool) {
	for _, sr := range snap.SalesRecords {
		if sr.ID == id {
			return sr, true
		}
	}
	return domain.SalesRecord{}, false
}

func openRecord(snap *domain.Snapshot, dish string, loc domain.Location, batch string, today time.Time) (domain.SalesRecord, bool) {
	for _, sr := range snap.SalesRecords {
		if sr.DishName == dish && sr.Location == loc && sr.BatchNumber == batch && sr.Open() && ledger.SameDay(sr.Date, today) {
			return sr, true
		}
	}
	return domain.SalesRecord{}, false
}

func batchExists(snap *domain.Snapshot, batch string) bool {
	for _, p := range snap.PrepEvents {
		if p.BatchNumber == batch {
			return true
		}
	}
	for _, d := range snap.DispatchEvents {
		if d.BatchNumber == batch {
			return true
		}
	}
	return false
}

// nextBatchNumber returns {CODE}-{YYYYMMDD}-{NNN}, numbering after the
// highest sequence already used for that dish code and day.
func nextBatchNumber(dish string, now time.Time, snap *domain.Snapshot) string {
	prefix := dishCode(dish) + "-" + now.Format("20060102") + "-"
	highest := 0
	seen := func(batch string) {
		if !strings.HasPrefix(batch, prefix) {
			return
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(batch, prefix)); err == nil && n > highest {
			highest = n
		}
	}
	for _, p := range snap.PrepEvents {
		seen(p.BatchNumber)
	}
	for _, d := range snap.DispatchEvents {
		seen(d.BatchNumber)
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

// dishCode is the first three letters of the dish name, upper-cased.
func dishCode(dish string) string {
	var b strings.Builder
	for _, r := range dish {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "BAT"
	}
	return b.String()
}
