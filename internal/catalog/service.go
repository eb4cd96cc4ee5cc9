package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shopwise/internal/cache"
	"shopwise/internal/metrics"
)

// SlotState is the lifecycle state of one entity slot.
//
// Transitions: Empty → Loading → Ready, Ready → Revalidating → Ready|Stale.
// A tagged state (rather than independent booleans) keeps illegal
// combinations unrepresentable.
type SlotState int

const (
	// StateEmpty: no data, no fetch in flight.
	StateEmpty SlotState = iota
	// StateLoading: first fetch in flight, nothing to show yet.
	StateLoading
	// StateReady: data present and fresh.
	StateReady
	// StateRevalidating: data present, refetch in flight; the previous
	// data stays visible (stale-while-revalidate).
	StateRevalidating
	// StateStale: last fetch failed; previous data, if any, is retained
	// and surfaced alongside the error.
	StateStale
)

func (s SlotState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRevalidating:
		return "revalidating"
	case StateStale:
		return "stale"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// Result is the observable state of an entity slot. Raw errors never
// escape the service: failures surface as Err, a UI-safe message.
type Result[T any] struct {
	State    SlotState
	Data     T
	HasData  bool
	Checksum uint64
	Err      string
}

// Loading reports whether a first fetch is in flight with no data to show.
func (r Result[T]) Loading() bool {
	return r.State == StateLoading
}

// Stale reports whether the last fetch failed while previous data remains
// visible.
func (r Result[T]) Stale() bool {
	return r.State == StateStale && r.HasData
}

// Fetcher is the catalog API surface the service consumes.
type Fetcher interface {
	Products(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, id int) (*Product, error)
	Categories(ctx context.Context) ([]Category, error)
}

// TTLs holds the freshness window per entity type.
type TTLs struct {
	Products   time.Duration
	Product    time.Duration
	Categories time.Duration
}

// DefaultTTLs returns the contract TTLs: 5 minutes for product data,
// 10 minutes for the category list.
func DefaultTTLs() TTLs {
	return TTLs{
		Products:   5 * time.Minute,
		Product:    5 * time.Minute,
		Categories: 10 * time.Minute,
	}
}

// slot is one entity slot. The mutex is held only for state transitions,
// never across a network fetch; the Loading/Revalidating states are the
// single-flight guard.
type slot[T any] struct {
	mu        sync.Mutex
	state     SlotState
	data      T
	hasData   bool
	checksum  uint64
	fetchedAt time.Time
	errMsg    string
}

func (sl *slot[T]) result() Result[T] {
	return Result[T]{
		State:    sl.state,
		Data:     sl.data,
		HasData:  sl.hasData,
		Checksum: sl.checksum,
		Err:      sl.errMsg,
	}
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Fetcher Fetcher
	Cache   cache.Cache
	TTLs    TTLs

	// Logger and Metrics may be nil.
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Service is the cache-aware catalog accessor. It is explicitly
// constructed and owns its cache; there are no package-level slots, so
// tests get isolation from fresh instances.
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	ttls    TTLs
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
	engine  *FilterEngine

	products   slot[[]Product]
	categories slot[[]Category]

	// productSlots holds one independent slot per product id, each with
	// its own TTL window and in-flight guard. currentID is the id the
	// caller asked for most recently; a late response for another id can
	// never leak into the current view because reads go through
	// slot[currentID].
	mu           sync.Mutex
	productSlots map[int]*slot[Product]
	currentID    int
}

// NewService creates a catalog service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ttls := cfg.TTLs
	if ttls == (TTLs{}) {
		ttls = DefaultTTLs()
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Service{
		fetcher:      cfg.Fetcher,
		cache:        c,
		ttls:         ttls,
		logger:       logger,
		metrics:      cfg.Metrics,
		clock:        clock,
		engine:       NewFilterEngine(),
		productSlots: make(map[int]*slot[Product]),
	}
}

// Products returns the product list slot, fetching when empty or expired.
func (s *Service) Products(ctx context.Context) Result[[]Product] {
	return fetchEntity(ctx, s, &s.products, cache.KeyProducts, s.ttls.Products, "products", false,
		s.fetcher.Products)
}

// RefreshProducts forces a refetch of the product list, bypassing the
// freshness check but still honoring the single-flight guard.
func (s *Service) RefreshProducts(ctx context.Context) Result[[]Product] {
	return fetchEntity(ctx, s, &s.products, cache.KeyProducts, s.ttls.Products, "products", true,
		s.fetcher.Products)
}

// Categories returns the category list slot, fetching when empty or expired.
func (s *Service) Categories(ctx context.Context) Result[[]Category] {
	return fetchEntity(ctx, s, &s.categories, cache.KeyCategories, s.ttls.Categories, "categories", false,
		s.fetcher.Categories)
}

// RefreshCategories forces a refetch of the category list.
func (s *Service) RefreshCategories(ctx context.Context) Result[[]Category] {
	return fetchEntity(ctx, s, &s.categories, cache.KeyCategories, s.ttls.Categories, "categories", true,
		s.fetcher.Categories)
}

// Product returns the slot for one product id and makes it the current
// product. Each id has an independent slot, so a response that arrives
// late for a previously requested id lands in that id's slot and never
// overwrites the current one.
func (s *Service) Product(ctx context.Context, id int) Result[Product] {
	return s.fetchProduct(ctx, id, false)
}

// RefreshProduct forces a refetch of one product.
func (s *Service) RefreshProduct(ctx context.Context, id int) Result[Product] {
	return s.fetchProduct(ctx, id, true)
}

// CurrentProduct returns the slot state of the most recently requested
// product id without triggering a fetch.
func (s *Service) CurrentProduct() Result[Product] {
	s.mu.Lock()
	sl, ok := s.productSlots[s.currentID]
	s.mu.Unlock()
	if !ok {
		return Result[Product]{State: StateEmpty}
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.result()
}

func (s *Service) fetchProduct(ctx context.Context, id int, force bool) Result[Product] {
	s.mu.Lock()
	s.currentID = id
	sl, ok := s.productSlots[id]
	if !ok {
		sl = &slot[Product]{}
		s.productSlots[id] = sl
	}
	s.mu.Unlock()

	return fetchEntity(ctx, s, sl, cache.ProductKey(id), s.ttls.Product, "product", force,
		func(ctx context.Context) (Product, error) {
			p, err := s.fetcher.Product(ctx, id)
			if err != nil {
				return Product{}, err
			}
			return *p, nil
		})
}

// FilteredProducts returns the product list filtered and sorted per f,
// via the memoizing engine. The underlying fetch follows Products.
func (s *Service) FilteredProducts(ctx context.Context, f Filters) (Result[[]Product], []Product) {
	res := s.Products(ctx)
	if !res.HasData {
		return res, nil
	}
	return res, s.engine.Apply(res.Data, res.Checksum, f)
}

// fetchEntity drives one slot through its state machine. Exactly one
// fetch may be in flight per slot; a second request while one is
// outstanding returns the current state without queueing or canceling.
// A failed fetch leaves the previous {data, fetchedAt} untouched.
func fetchEntity[T any](
	ctx context.Context,
	s *Service,
	sl *slot[T],
	key string,
	ttl time.Duration,
	entity string,
	force bool,
	fetch func(context.Context) (T, error),
) Result[T] {
	now := s.clock()

	sl.mu.Lock()
	if sl.state == StateLoading || sl.state == StateRevalidating {
		res := sl.result()
		sl.mu.Unlock()
		return res
	}

	if !force && sl.hasData && now.Sub(sl.fetchedAt) < ttl {
		s.cacheEvent(entity, metrics.EventHit)
		res := sl.result()
		sl.mu.Unlock()
		return res
	}

	// Cold slot: try the cache backend before going to the network, so
	// file/redis backends let a fresh process start warm.
	if !force && !sl.hasData {
		snap, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed", "entity", entity, "key", key, "error", err)
		} else if snap.Fresh(now, ttl) {
			var data T
			if err := snap.Decode(&data); err != nil {
				s.logger.Warn("discarding undecodable cache snapshot", "entity", entity, "key", key, "error", err)
			} else {
				sl.data = data
				sl.hasData = true
				sl.checksum = snap.Checksum
				sl.fetchedAt = snap.FetchedAt
				sl.state = StateReady
				sl.errMsg = ""
				s.cacheEvent(entity, metrics.EventHit)
				res := sl.result()
				sl.mu.Unlock()
				return res
			}
		}
	}

	if sl.hasData {
		sl.state = StateRevalidating
		s.cacheEvent(entity, metrics.EventRevalidate)
	} else {
		sl.state = StateLoading
		s.cacheEvent(entity, metrics.EventMiss)
	}
	sl.errMsg = ""
	sl.mu.Unlock()

	data, err := fetch(ctx)
	now = s.clock()

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err == nil {
		var payload []byte
		payload, err = json.Marshal(data)
		if err != nil {
			err = fmt.Errorf("encoding %s snapshot: %w", entity, err)
		} else {
			snap := cache.NewSnapshot(payload, now)
			if cerr := s.cache.Set(ctx, key, snap); cerr != nil {
				// The in-memory slot is still updated; only warm starts lose out.
				s.logger.Warn("cache write failed", "entity", entity, "key", key, "error", cerr)
			}
			sl.data = data
			sl.hasData = true
			sl.checksum = snap.Checksum
			sl.fetchedAt = now
			sl.state = StateReady
			sl.errMsg = ""
			return sl.result()
		}
	}

	// Failure: keep previous data visible, attach the message.
	sl.state = StateStale
	sl.errMsg = userMessage(err)
	if sl.hasData {
		s.cacheEvent(entity, metrics.EventStaleServed)
	}
	s.logger.Warn("fetch failed", "entity", entity, "key", key, "error", err)
	return sl.result()
}

func (s *Service) cacheEvent(entity, event string) {
	if s.metrics != nil {
		s.metrics.CacheEvents.WithLabelValues(entity, event).Inc()
	}
}

// userMessage extracts a UI-safe message from err without importing the
// client package.
func userMessage(err error) string {
	var uf interface{ UserMessage() string }
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}
	if err != nil {
		return err.Error()
	}
	return "An unexpected error occurred"
}
