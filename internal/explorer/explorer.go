// Package explorer keeps the zones shown on the map consistent with
// the user's viewport.
//
// Viewport changes are filtered and debounced before a bounds query
// is issued, so continuous panning results in a single request once
// the map settles. Requests are not cancelled when superseded; every
// request carries a sequence number taken when it is dispatched and
// only the result of the latest dispatched request is applied.
package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cicconee/nugulmap/internal/favorite"
	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/cicconee/nugulmap/internal/nugul"
	"github.com/cicconee/nugulmap/internal/pool"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the quiet interval a viewport must hold
// before its zones are fetched.
const DefaultDebounce = 700 * time.Millisecond

// persistTimeout bounds a background favorites write. Writes are not
// tied to the explorer lifetime, so Close waits for them to finish.
const persistTimeout = 5 * time.Second

// ZoneFetcher is the interface that wraps the FetchZonesByBounds
// method.
//
// FetchZonesByBounds returns the zones inside the bounds. It never
// fails; on error it returns whatever the implementation considers
// a safe list to show.
type ZoneFetcher interface {
	FetchZonesByBounds(context.Context, geometry.Bounds) []nugul.Zone
}

// Explorer is the zone explorer of a single map session.
type Explorer struct {
	Zones     ZoneFetcher
	Locator   Locator
	Favorites *favorite.Set
	Logger    *slog.Logger

	// Pool runs background fetches. Without a pool each fetch
	// gets its own goroutine.
	Pool *pool.Pool

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	mu       sync.Mutex
	region   geometry.Region
	zones    []nugul.Zone
	selected *nugul.Zone
	detail   *nugul.Zone
	inFlight int
	seq      uint64
	timer    *time.Timer
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New returns an Explorer showing the default region.
func New(zones ZoneFetcher, locator Locator, favorites *favorite.Set, logger *slog.Logger) *Explorer {
	return &Explorer{
		Zones:     zones,
		Locator:   locator,
		Favorites: favorites,
		Logger:    logger,
	}
}

func (e *Explorer) init() {
	e.once.Do(func() {
		e.ctx, e.cancel = context.WithCancel(context.Background())
		if e.region == (geometry.Region{}) {
			e.region = geometry.DefaultRegion
		}
		if e.zones == nil {
			e.zones = []nugul.Zone{}
		}
	})
}

func (e *Explorer) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}

	return e.Logger
}

func (e *Explorer) debounce() time.Duration {
	if e.Debounce <= 0 {
		return DefaultDebounce
	}

	return e.Debounce
}

// Init resolves the starting region and loads the favorites, both
// at once, then fetches the zones of the starting region. When the
// location is unavailable the default region is used. Init returns
// once the first fetch has been applied.
func (e *Explorer) Init(ctx context.Context) error {
	e.init()

	var (
		start = geometry.DefaultRegion
		g     errgroup.Group
	)

	g.Go(func() error {
		start = e.resolveRegion(ctx)
		return nil
	})

	g.Go(func() error {
		if e.Favorites == nil {
			return nil
		}
		if err := e.Favorites.Load(ctx); err != nil {
			e.logger().Warn("failed to load favorites", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	e.mu.Lock()
	e.region = start
	e.mu.Unlock()

	e.logger().Info("explorer initialized", "region", start.String(), "geohash", start.Geohash())

	e.refresh(ctx, start)
	return nil
}

func (e *Explorer) resolveRegion(ctx context.Context) geometry.Region {
	if e.Locator == nil {
		return geometry.DefaultRegion
	}

	point, err := e.Locator.Locate(ctx)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		e.logger().Info("location permission denied, using default region")
		return geometry.DefaultRegion
	case err != nil:
		e.logger().Warn("failed to resolve location, using default region", "error", err)
		return geometry.DefaultRegion
	}

	return point.Region()
}

// HandleRegionChangeComplete records a settled viewport. Changes
// below the move and zoom thresholds are ignored. Otherwise the
// region becomes current and a fetch is scheduled after the
// debounce interval; a later significant change before the timer
// fires replaces the pending fetch.
func (e *Explorer) HandleRegionChangeComplete(next geometry.Region) {
	e.init()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.region.SignificantlyDiffers(next) {
		return
	}

	e.region = next

	if e.timer != nil {
		e.timer.Stop()
	}

	e.timer = time.AfterFunc(e.debounce(), func() {
		e.dispatch(next)
	})
}

// RefreshCurrentRegion fetches the zones of the current region right
// away, skipping the debounce. It returns once the result has been
// applied.
func (e *Explorer) RefreshCurrentRegion(ctx context.Context) {
	e.init()

	e.mu.Lock()
	region := e.region
	e.mu.Unlock()

	e.refresh(ctx, region)
}

// Refresh schedules a fetch of the current region in the background,
// skipping the debounce.
func (e *Explorer) Refresh() {
	e.init()

	e.mu.Lock()
	region := e.region
	e.mu.Unlock()

	e.dispatch(region)
}

// dispatch starts a background fetch for region.
func (e *Explorer) dispatch(region geometry.Region) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	seq := e.begin()
	e.wg.Add(1)
	e.mu.Unlock()

	job := func() {
		defer e.wg.Done()
		zones := e.Zones.FetchZonesByBounds(e.ctx, region.Bounds())
		e.apply(seq, region, zones)
	}

	if e.Pool == nil || !e.Pool.Add(job) {
		go job()
	}
}

// refresh fetches region on the calling goroutine.
func (e *Explorer) refresh(ctx context.Context, region geometry.Region) {
	e.mu.Lock()
	seq := e.begin()
	e.mu.Unlock()

	zones := e.Zones.FetchZonesByBounds(ctx, region.Bounds())
	e.apply(seq, region, zones)
}

// begin issues the next sequence number and raises the loading
// flag. e.mu must be held.
func (e *Explorer) begin() uint64 {
	e.seq++
	e.inFlight++
	return e.seq
}

// apply stores zones if seq is still the latest issued request.
func (e *Explorer) apply(seq uint64, region geometry.Region, zones []nugul.Zone) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inFlight--

	if seq != e.seq {
		e.logger().Debug("dropping stale zones result", "seq", seq, "latest", e.seq, "region", region.Geohash())
		return
	}

	if zones == nil {
		zones = []nugul.Zone{}
	}
	e.zones = zones
}

// ToggleFavorite flips id in the favorite set right away and writes
// the set to storage in the background. It reports whether id is a
// favorite afterwards.
func (e *Explorer) ToggleFavorite(id int) bool {
	e.init()

	if e.Favorites == nil {
		return false
	}

	member := e.Favorites.Flip(id)

	persist := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), persistTimeout)
		defer cancel()

		if err := e.Favorites.Persist(ctx); err != nil {
			e.logger().Error("failed to persist favorites", "error", err)
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		persist()
		return member
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		persist()
	}()

	return member
}

// OpenDetail marks zone as the inspected zone.
func (e *Explorer) OpenDetail(zone nugul.Zone) {
	e.mu.Lock()
	defer e.mu.Unlock()

	selected, detail := zone, zone
	e.selected = &selected
	e.detail = &detail
}

// CloseDetail clears the inspected zone.
func (e *Explorer) CloseDetail() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = nil
	e.detail = nil
}

// PrependZone puts zone at the front of the list, replacing any zone
// with the same id. It is used right after a zone was created.
func (e *Explorer) PrependZone(zone nugul.Zone) {
	e.init()

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]nugul.Zone, 0, len(e.zones)+1)
	next = append(next, zone)
	for _, z := range e.zones {
		if z.ID != zone.ID {
			next = append(next, z)
		}
	}

	e.zones = next
}

// Zone returns the zone with id from the current list.
func (e *Explorer) Zone(id int) (nugul.Zone, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, z := range e.zones {
		if z.ID == id {
			return z, true
		}
	}

	return nugul.Zone{}, false
}

// RemoveZone drops the zone with id from the current list and closes
// its detail if it is the inspected zone.
func (e *Explorer) RemoveZone(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detail != nil && e.detail.ID == id {
		e.selected = nil
		e.detail = nil
	}

	next := make([]nugul.Zone, 0, len(e.zones))
	for _, z := range e.zones {
		if z.ID != id {
			next = append(next, z)
		}
	}

	e.zones = next
}

// Close cancels a pending debounced fetch and waits for background
// work to finish. The Explorer ignores viewport changes afterwards.
func (e *Explorer) Close() {
	e.init()

	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}
