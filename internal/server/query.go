package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cicconee/nugulmap/internal/geometry"
)

type QueryParameterError struct {
	Msg string
	error
}

func (p *QueryParameterError) ServerErrorResponse() (int, string) {
	return http.StatusBadRequest, p.Msg
}

func (p *QueryParameterError) Unwrap() error {
	return p.error
}

// ParsePoint takes longitude and latitude as strings (lonStr, latStr)
// and returns them as a geometry.Point.
//
// If parsing fails, or a coordinate is out of range, an error is
// returned as a QueryParameterError.
func ParsePoint(lonStr string, latStr string) (geometry.Point, error) {
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, &QueryParameterError{
			Msg:   "Invalid longitude",
			error: fmt.Errorf("failed to parse lon %q: %v", lonStr, err),
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, &QueryParameterError{
			Msg:   "Invalid latitude",
			error: fmt.Errorf("failed to parse lat %q: %v", latStr, err),
		}
	}

	return geometry.NewPoint(lon, lat), nil
}

// ParseOptionalPoint is ParsePoint for a point that may be left out.
// It returns nil when both coordinates are empty. A single coordinate
// is an error.
func ParseOptionalPoint(lonStr string, latStr string) (geometry.Point, error) {
	if lonStr == "" && latStr == "" {
		return nil, nil
	}

	if lonStr == "" || latStr == "" {
		return nil, &QueryParameterError{
			Msg:   "Both lat and lng are required",
			error: errors.New("only one coordinate given"),
		}
	}

	return ParsePoint(lonStr, latStr)
}

// ParseID parses a positive zone id from a path parameter.
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, &QueryParameterError{
			Msg:   "Invalid zone id",
			error: fmt.Errorf("failed to parse id %q: %v", s, err),
		}
	}

	return id, nil
}
