package explorer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cicconee/nugulmap/internal/favorite"
	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/cicconee/nugulmap/internal/nugul"
	"github.com/cicconee/nugulmap/internal/pool"
	"github.com/cicconee/nugulmap/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 60 * time.Millisecond

type fakeFetcher struct {
	mu    sync.Mutex
	calls []geometry.Bounds
	fn    func(geometry.Bounds) []nugul.Zone
}

func (f *fakeFetcher) FetchZonesByBounds(_ context.Context, b geometry.Bounds) []nugul.Zone {
	f.mu.Lock()
	f.calls = append(f.calls, b)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return []nugul.Zone{{ID: len(f.Calls())}}
	}

	return fn(b)
}

func (f *fakeFetcher) Calls() []geometry.Bounds {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]geometry.Bounds{}, f.calls...)
}

func newTestExplorer(f *fakeFetcher, locator Locator) (*Explorer, storage.Store) {
	store := storage.NewMemoryStore()
	e := New(f, locator, favorite.New(store, nil), nil)
	e.Debounce = testDebounce
	return e, store
}

func moved(r geometry.Region, dLat float64) geometry.Region {
	r.Latitude += dLat
	return r
}

func TestInitPermissionDenied(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, StaticLocator{})
	defer e.Close()

	require.NoError(t, e.Init(context.Background()))

	s := e.Snapshot()
	assert.Equal(t, geometry.Region{
		Latitude:       37.5665,
		Longitude:      126.978,
		LatitudeDelta:  0.05,
		LongitudeDelta: 0.05,
	}, s.Region)
	assert.Equal(t, []geometry.Bounds{geometry.DefaultRegion.Bounds()}, f.Calls())
	assert.Len(t, s.Zones, 1)
	assert.False(t, s.Loading)
}

func TestInitWithoutLocator(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	require.NoError(t, e.Init(context.Background()))

	assert.Equal(t, geometry.DefaultRegion, e.Snapshot().Region)
	assert.Len(t, f.Calls(), 1)
}

func TestInitWithLocation(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, StaticLocator{Point: geometry.NewPoint(129.0756, 35.1796)})
	defer e.Close()

	require.NoError(t, e.Init(context.Background()))

	want := geometry.RegionAround(35.1796, 129.0756)
	assert.Equal(t, want, e.Snapshot().Region)
	assert.Equal(t, []geometry.Bounds{want.Bounds()}, f.Calls())
}

func TestInitLoadsFavoritesBeforeFirstFetch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.FavoritesKey, "[4,8]"))

	favorites := favorite.New(store, nil)
	var loadedAtFetch []int
	f := &fakeFetcher{fn: func(geometry.Bounds) []nugul.Zone {
		loadedAtFetch = favorites.IDs()
		return []nugul.Zone{{ID: 4}, {ID: 5}}
	}}

	e := New(f, StaticLocator{}, favorites, nil)
	defer e.Close()

	require.NoError(t, e.Init(ctx))

	assert.Equal(t, []int{4, 8}, loadedAtFetch)
	assert.Equal(t, []int{4, 8}, e.Snapshot().FavoriteIDs)
	assert.Equal(t, []nugul.Zone{{ID: 4}}, e.FavoriteZones())
}

func TestRegionChangeBelowThresholdIsIgnored(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	jitter := geometry.DefaultRegion
	jitter.Latitude += 0.0001
	jitter.Longitude -= 0.0001
	jitter.LatitudeDelta += 0.00005
	jitter.LongitudeDelta -= 0.00005

	e.HandleRegionChangeComplete(jitter)
	time.Sleep(3 * testDebounce)

	assert.Empty(t, f.Calls())
	assert.Equal(t, geometry.DefaultRegion, e.Snapshot().Region)
}

func TestRegionChangeIsDebounced(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	first := moved(geometry.DefaultRegion, 0.01)
	second := moved(geometry.DefaultRegion, 0.02)

	e.HandleRegionChangeComplete(first)
	time.Sleep(testDebounce / 4)
	e.HandleRegionChangeComplete(second)

	assert.Equal(t, second, e.Snapshot().Region)

	assert.Eventually(t, func() bool {
		return len(f.Calls()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(3 * testDebounce)

	assert.Equal(t, []geometry.Bounds{second.Bounds()}, f.Calls())
}

func TestRegionChangeFetchesOnEachSettledViewport(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	e.Pool = pool.New(2, 4)
	e.Pool.Start()
	defer e.Pool.Stop()
	defer e.Close()

	first := moved(geometry.DefaultRegion, 0.01)
	second := moved(geometry.DefaultRegion, 0.02)

	e.HandleRegionChangeComplete(first)
	assert.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	e.HandleRegionChangeComplete(second)
	assert.Eventually(t, func() bool { return len(f.Calls()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []geometry.Bounds{first.Bounds(), second.Bounds()}, f.Calls())
}

func TestStaleResultIsDropped(t *testing.T) {
	slow := moved(geometry.DefaultRegion, 0.01)
	fast := moved(geometry.DefaultRegion, 0.02)
	release := make(chan struct{})

	f := &fakeFetcher{fn: func(b geometry.Bounds) []nugul.Zone {
		if b == slow.Bounds() {
			<-release
			return []nugul.Zone{{ID: 1}}
		}
		return []nugul.Zone{{ID: 2}}
	}}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	e.HandleRegionChangeComplete(slow)
	assert.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, e.Snapshot().Loading)

	e.HandleRegionChangeComplete(fast)
	assert.Eventually(t, func() bool {
		zones := e.Snapshot().Zones
		return len(zones) == 1 && zones[0].ID == 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, e.Snapshot().Loading)

	close(release)
	assert.Eventually(t, func() bool { return !e.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []nugul.Zone{{ID: 2}}, e.Snapshot().Zones)
}

func TestRefreshCurrentRegion(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	e.RefreshCurrentRegion(context.Background())

	assert.Equal(t, []geometry.Bounds{geometry.DefaultRegion.Bounds()}, f.Calls())
	assert.Len(t, e.Snapshot().Zones, 1)
}

func TestRefreshInBackground(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()

	e.Refresh()

	assert.Eventually(t, func() bool {
		return len(e.Snapshot().Zones) == 1 && !e.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []geometry.Bounds{geometry.DefaultRegion.Bounds()}, f.Calls())
}

func TestCloseCancelsPendingFetch(t *testing.T) {
	f := &fakeFetcher{}
	e, _ := newTestExplorer(f, nil)

	e.HandleRegionChangeComplete(moved(geometry.DefaultRegion, 0.01))
	e.Close()
	time.Sleep(3 * testDebounce)

	assert.Empty(t, f.Calls())

	e.HandleRegionChangeComplete(moved(geometry.DefaultRegion, 0.02))
	time.Sleep(3 * testDebounce)

	assert.Empty(t, f.Calls())
}

func TestToggleFavorite(t *testing.T) {
	ctx := context.Background()
	e, store := newTestExplorer(&fakeFetcher{}, nil)

	assert.True(t, e.ToggleFavorite(3))
	assert.Equal(t, []int{3}, e.Snapshot().FavoriteIDs)

	assert.False(t, e.ToggleFavorite(3))
	assert.Empty(t, e.Snapshot().FavoriteIDs)

	assert.True(t, e.ToggleFavorite(3))
	e.Close()

	saved, ok, err := store.Get(ctx, storage.FavoritesKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[3]", saved)
}

// slowStore delays every write and fails it if ctx is done first.
type slowStore struct {
	*storage.MemoryStore
	delay time.Duration
}

func (s *slowStore) Set(ctx context.Context, key string, value string) error {
	select {
	case <-time.After(s.delay):
		return s.MemoryStore.Set(ctx, key, value)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestToggleFavoritePersistsAcrossClose(t *testing.T) {
	store := &slowStore{MemoryStore: storage.NewMemoryStore(), delay: 20 * time.Millisecond}
	e := New(&fakeFetcher{}, nil, favorite.New(store, nil), nil)

	assert.True(t, e.ToggleFavorite(7))
	e.Close()

	saved, ok, err := store.Get(context.Background(), storage.FavoritesKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[7]", saved)
}

func TestDebounceDefault(t *testing.T) {
	var e Explorer
	assert.Equal(t, DefaultDebounce, e.debounce())
	assert.Equal(t, 700*time.Millisecond, e.debounce())

	e.Debounce = -time.Second
	assert.Equal(t, DefaultDebounce, e.debounce())

	e.Debounce = testDebounce
	assert.Equal(t, testDebounce, e.debounce())
}

func TestRemoveZoneClosesDetail(t *testing.T) {
	f := &fakeFetcher{fn: func(geometry.Bounds) []nugul.Zone {
		return []nugul.Zone{{ID: 1}, {ID: 2}}
	}}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()
	e.RefreshCurrentRegion(context.Background())

	e.OpenDetail(nugul.Zone{ID: 2})
	e.RemoveZone(1)
	require.NotNil(t, e.Snapshot().Detail)

	e.RemoveZone(2)
	s := e.Snapshot()
	assert.Nil(t, s.Detail)
	assert.Nil(t, s.Selected)
	assert.Empty(t, s.Zones)
}

func TestDetail(t *testing.T) {
	e, _ := newTestExplorer(&fakeFetcher{}, nil)
	defer e.Close()

	zone := nugul.Zone{ID: 9, Address: "서울 중구"}
	e.OpenDetail(zone)

	s := e.Snapshot()
	require.NotNil(t, s.Detail)
	require.NotNil(t, s.Selected)
	assert.Equal(t, zone, *s.Detail)
	assert.Equal(t, zone, *s.Selected)

	e.CloseDetail()

	s = e.Snapshot()
	assert.Nil(t, s.Detail)
	assert.Nil(t, s.Selected)
}

func TestPrependZone(t *testing.T) {
	f := &fakeFetcher{fn: func(geometry.Bounds) []nugul.Zone {
		return []nugul.Zone{{ID: 1}, {ID: 2, Address: "old"}, {ID: 3}}
	}}
	e, _ := newTestExplorer(f, nil)
	defer e.Close()
	e.RefreshCurrentRegion(context.Background())

	e.PrependZone(nugul.Zone{ID: 2, Address: "new"})
	e.PrependZone(nugul.Zone{ID: 4})

	assert.Equal(t, []nugul.Zone{{ID: 4}, {ID: 2, Address: "new"}, {ID: 1}, {ID: 3}}, e.Snapshot().Zones)

	z, ok := e.Zone(2)
	assert.True(t, ok)
	assert.Equal(t, "new", z.Address)

	e.RemoveZone(2)
	_, ok = e.Zone(2)
	assert.False(t, ok)
}
