package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/cache"
	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/events"
	"github.com/prepline/prepline-backend/internal/stock/ledger"
	"github.com/prepline/prepline-backend/pkg/config"
	"github.com/prepline/prepline-backend/pkg/errors"
	"github.com/prepline/prepline-backend/pkg/logger"
)

// Store is the persistence collaborator. Commit must apply every write or
// none of them.
type Store interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Commit(ctx context.Context, writes ...domain.Write) error
}

// Options holds the stock tunables.
type Options struct {
	Ledger            ledger.Options
	LowStockThreshold int
	BufferRatio       float64
	// Zone defines the calendar day records belong to.
	Zone *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig converts the stock config section.
func OptionsFromConfig(cfg *config.StockConfig) (Options, error) {
	zone, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Ledger: ledger.Options{
			OldStockShelfLife: time.Duration(cfg.OldStockExpiryDays) * 24 * time.Hour,
			DefaultShelfLife:  time.Duration(cfg.DefaultShelfLifeDays) * 24 * time.Hour,
		},
		LowStockThreshold: cfg.LowStockThreshold,
		BufferRatio:       cfg.ProcurementBufferRatio,
		Zone:              zone,
	}, nil
}

// StockService owns the in-memory snapshot and is the only writer to the
// store. Commands persist first and apply to the snapshot only after the
// store confirms; queries derive everything from the current snapshot.
type StockService struct {
	store     Store
	memo      cache.Memo
	publisher *events.StockEventPublisher
	logger    *logger.Logger
	opts      Options

	// cmdMu serializes commands so validation and commit see the same state.
	cmdMu sync.Mutex

	mu       sync.RWMutex
	snap     *domain.Snapshot
	snapHash string
}

// NewStockService creates a new stock service. memo and publisher may be nil.
func NewStockService(store Store, memo cache.Memo, publisher *events.StockEventPublisher, opts Options, log *logger.Logger) *StockService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Zone == nil {
		opts.Zone = time.UTC
	}
	if opts.Ledger == (ledger.Options{}) {
		opts.Ledger = ledger.DefaultOptions()
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = ledger.DefaultLowStockThreshold
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockService{
		store:     store,
		memo:      memo,
		publisher: publisher,
		logger:    log.WithComponent("stock"),
		opts:      opts,
		snap:      &domain.Snapshot{},
	}
}

// Refresh replaces the snapshot with the store's current contents. It waits
// for any running command so a load taken before a commit is never swapped
// in after it.
func (s *StockService) Refresh(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.reload(ctx)
}

// reload is Refresh for callers already holding cmdMu.
func (s *StockService) reload(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.swap(snap)
	s.logger.Debug().
		Int("prep_events", len(snap.PrepEvents)).
		Int("dispatch_events", len(snap.DispatchEvents)).
		Int("sales_records", len(snap.SalesRecords)).
		Msg("snapshot refreshed")
	return nil
}

// Snapshot returns a copy of the current snapshot.
func (s *StockService) Snapshot() *domain.Snapshot {
	return s.current().Clone()
}

// current returns the live snapshot. It is never mutated in place, so
// callers may read it without holding the lock.
func (s *StockService) current() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *StockService) swap(snap *domain.Snapshot) {
	hash, err := cache.Key(snap.PrepEvents, snap.DispatchEvents, snap.SalesRecords)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to hash snapshot, memo disabled until next change")
		hash = ""
	}
	s.mu.Lock()
	s.snap = snap
	s.snapHash = hash
	s.mu.Unlock()
}

func (s *StockService) now() time.Time {
	return s.opts.Now().In(s.opts.Zone)
}

func (s *StockService) today() time.Time {
	return ledger.StartOfDay(s.now())
}

// commit persists writes and, only once the store has accepted them, applies
// them to a copy of the snapshot and swaps it in. A stale-record rejection
// reloads the snapshot so the caller can retry against fresh state.
func (s *StockService) commit(ctx context.Context, writes ...domain.Write) error {
	if err := s.store.Commit(ctx, writes...); err != nil {
		s.logger.Error().Err(err).Int("writes", len(writes)).Msg("commit rejected")
		if errors.Is(err, errors.ErrStaleRecord) {
			if rerr := s.reload(ctx); rerr != nil {
				s.logger.Error().Err(rerr).Msg("refresh after stale write failed")
			}
		}
		return err
	}

	next := s.current().Clone()
	for _, w := range writes {
		applyWrite(next, w)
	}
	s.swap(next)
	return nil
}

func applyWrite(snap *domain.Snapshot, w domain.Write) {
	if w.Delete {
		id, _ := w.Record.(string)
		if w.Table == domain.TablePrepEvents {
			for i, p := range snap.PrepEvents {
				if p.ID == id {
					snap.PrepEvents = append(snap.PrepEvents[:i], snap.PrepEvents[i+1:]...)
					break
				}
			}
		}
		return
	}

	switch rec := w.Record.(type) {
	case domain.PrepEvent:
		snap.PrepEvents = upsert(snap.PrepEvents, rec, func(p domain.PrepEvent) bool { return p.ID == rec.ID })
	case domain.DispatchEvent:
		snap.DispatchEvents = append(snap.DispatchEvents, rec)
	case domain.SalesRecord:
		snap.SalesRecords = upsert(snap.SalesRecords, rec, func(r domain.SalesRecord) bool { return r.ID == rec.ID })
	case domain.Recipe:
		snap.Recipes = upsert(snap.Recipes, rec, func(r domain.Recipe) bool { return r.DishName == rec.DishName })
	case domain.InventoryItem:
		snap.Inventory = upsert(snap.Inventory, rec, func(i domain.InventoryItem) bool { return i.Name == rec.Name })
	}
}

func upsert[T any](items []T, v T, match func(T) bool) []T {
	for i := range items {
		if match(items[i]) {
			items[i] = v
			return items
		}
	}
	return append(items, v)
}

// dishes lists every dish the snapshot mentions, sorted.
func dishes(snap *domain.Snapshot) []string {
	set := make(map[string]struct{})
	for _, r := range snap.Recipes {
		set[r.DishName] = struct{}{}
	}
	for _, p := range snap.PrepEvents {
		set[p.DishName] = struct{}{}
	}
	for _, d := range snap.DispatchEvents {
		set[d.DishName] = struct{}{}
	}
	for _, sr := range snap.SalesRecords {
		set[sr.DishName] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
