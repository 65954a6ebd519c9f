package geometry

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// DefaultSpan is the latitude and longitude delta used
	// for a region built around a single coordinate.
	DefaultSpan = 0.05

	// MoveThreshold is the smallest change of a region
	// center, on either axis, that counts as a move.
	MoveThreshold = 0.00015

	// SpanThreshold is the smallest change of a region
	// span, on either axis, that counts as a zoom.
	SpanThreshold = 0.00008

	geohashPrecision = 7
)

// DefaultRegion is the viewport used when the device location
// is unavailable. It is centered on Seoul city hall.
var DefaultRegion = Region{
	Latitude:       37.5665,
	Longitude:      126.978,
	LatitudeDelta:  DefaultSpan,
	LongitudeDelta: DefaultSpan,
}

// Region is the center and span of a map viewport.
type Region struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

// RegionAround returns a region centered on lat, lng with
// the default span.
func RegionAround(lat, lng float64) Region {
	return Region{
		Latitude:       lat,
		Longitude:      lng,
		LatitudeDelta:  DefaultSpan,
		LongitudeDelta: DefaultSpan,
	}
}

// Center returns the center of the region as a Point.
func (r Region) Center() Point {
	return NewPoint(r.Longitude, r.Latitude)
}

// Bounds returns the rectangle covered by the region,
// computed as center ± delta/2.
func (r Region) Bounds() Bounds {
	return Bounds{
		MinLat: r.Latitude - r.LatitudeDelta/2,
		MaxLat: r.Latitude + r.LatitudeDelta/2,
		MinLng: r.Longitude - r.LongitudeDelta/2,
		MaxLng: r.Longitude + r.LongitudeDelta/2,
	}
}

// SignificantlyDiffers reports whether next moved or zoomed
// far enough away from r to be worth a new fetch. Each axis
// is tested on its own. Map engines report sub-pixel jitter
// on every gesture and those changes stay below the thresholds.
func (r Region) SignificantlyDiffers(next Region) bool {
	return math.Abs(r.Latitude-next.Latitude) > MoveThreshold ||
		math.Abs(r.Longitude-next.Longitude) > MoveThreshold ||
		math.Abs(r.LatitudeDelta-next.LatitudeDelta) > SpanThreshold ||
		math.Abs(r.LongitudeDelta-next.LongitudeDelta) > SpanThreshold
}

// Geohash returns the geohash of the region center. Two regions
// with the same geohash look at roughly the same block.
func (r Region) Geohash() string {
	return geohash.EncodeWithPrecision(r.Latitude, r.Longitude, geohashPrecision)
}

func (r Region) String() string {
	return fmt.Sprintf("center=(%f,%f) span=(%f,%f)",
		r.Latitude, r.Longitude, r.LatitudeDelta, r.LongitudeDelta)
}

// Bounds is a rectangular lat/lng area. It is always derived
// from a Region and has no lifecycle of its own.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether the point lies inside the bounds,
// edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat() >= b.MinLat && p.Lat() <= b.MaxLat &&
		p.Lon() >= b.MinLng && p.Lon() <= b.MaxLng
}
