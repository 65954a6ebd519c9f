package geometry

import (
	"fmt"
	"math"
)

// Point is a lon-lat coordinate. It is stored
// latitude first to match the order the NugulMap
// API uses on the wire.
type Point []float64

func NewPoint(lon, lat float64) Point {
	return Point{lat, lon}
}

func (p Point) Lon() float64 {
	return p[1]
}

func (p Point) Lat() float64 {
	return p[0]
}

// RoundedLon returns the longitude rounded to the 6th
// decimal place.
func (p Point) RoundedLon() float64 {
	return round(p.Lon(), 6)
}

// RoundedLat returns the latitude rounded to the 6th
// decimal place.
func (p Point) RoundedLat() float64 {
	return round(p.Lat(), 6)
}

func round(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func (p Point) String() string {
	if len(p) < 2 {
		return ""
	}

	return fmt.Sprintf("(%f,%f)", p.Lat(), p.Lon())
}

// Region returns a region centered on this point with
// the default span.
func (p Point) Region() Region {
	return RegionAround(p.Lat(), p.Lon())
}
