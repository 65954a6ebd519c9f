package explorer

import (
	"context"
	"errors"

	"github.com/cicconee/nugulmap/internal/geometry"
)

// ErrPermissionDenied is returned by a Locator when the user did
// not grant access to the device location.
var ErrPermissionDenied = errors.New("location permission denied")

// Locator is the interface that wraps the Locate method.
//
// Locate asks for location permission and, when granted, returns
// the current position of the device. It returns
// ErrPermissionDenied when permission is refused.
type Locator interface {
	Locate(ctx context.Context) (geometry.Point, error)
}

// StaticLocator reports a fixed position. A StaticLocator without
// a point behaves like a device where permission was refused.
type StaticLocator struct {
	Point geometry.Point
}

func (l StaticLocator) Locate(context.Context) (geometry.Point, error) {
	if len(l.Point) != 2 {
		return nil, ErrPermissionDenied
	}

	return l.Point, nil
}
