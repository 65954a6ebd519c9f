package explorer

import (
	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/cicconee/nugulmap/internal/nugul"
)

// State is a point-in-time copy of what the map should render.
type State struct {
	Region      geometry.Region `json:"region"`
	Geohash     string          `json:"geohash"`
	Zones       []nugul.Zone    `json:"zones"`
	Selected    *nugul.Zone     `json:"selectedZone"`
	Detail      *nugul.Zone     `json:"detailZone"`
	Loading     bool            `json:"isLoading"`
	FavoriteIDs []int           `json:"favoriteIds"`
}

// Snapshot returns a copy of the current explorer state.
func (e *Explorer) Snapshot() State {
	e.init()

	e.mu.Lock()
	s := State{
		Region:   e.region,
		Geohash:  e.region.Geohash(),
		Zones:    append([]nugul.Zone{}, e.zones...),
		Selected: copyZone(e.selected),
		Detail:   copyZone(e.detail),
		Loading:  e.inFlight > 0,
	}
	e.mu.Unlock()

	s.FavoriteIDs = []int{}
	if e.Favorites != nil {
		s.FavoriteIDs = e.Favorites.IDs()
	}

	return s
}

// FavoriteZones returns the zones of the current list that are
// favorites. Favorites outside the list are not returned.
func (e *Explorer) FavoriteZones() []nugul.Zone {
	e.init()

	e.mu.Lock()
	zones := append([]nugul.Zone{}, e.zones...)
	e.mu.Unlock()

	favorites := []nugul.Zone{}
	if e.Favorites == nil {
		return favorites
	}

	for _, z := range zones {
		if e.Favorites.Has(z.ID) {
			favorites = append(favorites, z)
		}
	}

	return favorites
}

func copyZone(z *nugul.Zone) *nugul.Zone {
	if z == nil {
		return nil
	}

	c := *z
	return &c
}
