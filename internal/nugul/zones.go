package nugul

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cicconee/nugulmap/internal/geometry"
)

// FetchZonesByBounds returns the zones inside b.
//
// FetchZonesByBounds never fails. When the API cannot be reached
// or answers with a non-2xx status it returns the fallback sample
// zones so the map is never empty. A 2xx response whose body is
// not JSON yields an empty list.
func (c *Client) FetchZonesByBounds(ctx context.Context, b geometry.Bounds) []Zone {
	query := url.Values{}
	query.Set("minLat", formatFloat(b.MinLat))
	query.Set("maxLat", formatFloat(b.MaxLat))
	query.Set("minLng", formatFloat(b.MinLng))
	query.Set("maxLng", formatFloat(b.MaxLng))

	status, body, err := c.fetch(ctx, request{
		method: http.MethodGet,
		path:   "/api/zones/bounds",
		query:  query,
	})
	if err != nil {
		c.logger().Warn("zones fetch failed, using fallback zones", "error", err)
		return FallbackZones()
	}

	if !isSuccess(status) {
		c.logger().Warn("zones fetch returned non-2xx status, using fallback zones", "status", status)
		return FallbackZones()
	}

	zones, err := zoneList(body)
	if err != nil {
		c.logger().Warn("zones fetch returned an unparsable body", "error", err)
		return []Zone{}
	}

	return zones
}

// SearchZones returns the zones matching keyword. When near is
// not nil its coordinates are sent to bias the results. Any
// failure yields an empty list.
func (c *Client) SearchZones(ctx context.Context, keyword string, near geometry.Point) []Zone {
	query := url.Values{}
	query.Set("keyword", keyword)
	if len(near) == 2 {
		query.Set("lat", formatFloat(near.Lat()))
		query.Set("lng", formatFloat(near.Lon()))
	}

	return c.zoneListOrEmpty(ctx, request{
		method: http.MethodGet,
		path:   "/api/zones/search",
		query:  query,
	})
}

// FetchMyZones returns the zones reported by the owner of token.
// Without a token, or on any failure, the list is empty.
func (c *Client) FetchMyZones(ctx context.Context, token string) []Zone {
	if token == "" {
		return []Zone{}
	}

	return c.zoneListOrEmpty(ctx, request{
		method: http.MethodGet,
		path:   "/api/zones/my",
		token:  token,
	})
}

func (c *Client) zoneListOrEmpty(ctx context.Context, r request) []Zone {
	status, body, err := c.fetch(ctx, r)
	if err != nil {
		c.logger().Debug("zone list request failed", "path", r.path, "error", err)
		return []Zone{}
	}

	if !isSuccess(status) {
		c.logger().Debug("zone list request returned non-2xx status", "path", r.path, "status", status)
		return []Zone{}
	}

	zones, err := zoneList(body)
	if err != nil {
		return []Zone{}
	}

	return zones
}

// FetchZone returns a single zone, or nil when it cannot be
// fetched.
func (c *Client) FetchZone(ctx context.Context, id int) *Zone {
	status, body, err := c.fetch(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/zones/%d", id),
	})
	if err != nil || !isSuccess(status) {
		return nil
	}

	payload, err := parsePayload(body)
	if err != nil {
		return nil
	}

	zone, ok := singleZone(payload)
	if !ok {
		return nil
	}

	return &zone
}

// CreateZone registers a new zone. The payload is sent as the
// JSON data part of a multipart request, with the image as a
// second part when given. The token is optional on the client;
// the server decides whether an anonymous report is accepted.
//
// A non-2xx response is returned as a *StatusCodeError.
func (c *Client) CreateZone(ctx context.Context, payload CreateZonePayload, image *Upload, token string) (Zone, error) {
	f := newForm()
	if err := f.jsonPart("data", payload); err != nil {
		return Zone{}, fmt.Errorf("failed encoding zone payload: %w", err)
	}
	if err := f.filePart("image", image); err != nil {
		return Zone{}, fmt.Errorf("failed encoding zone image: %w", err)
	}

	body, contentType, err := f.close()
	if err != nil {
		return Zone{}, err
	}

	res, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/api/zones",
		body:        body,
		contentType: contentType,
		token:       token,
	})
	if err != nil {
		return Zone{}, err
	}

	parsed, err := parsePayload(res)
	if err != nil {
		return Zone{}, fmt.Errorf("failed decoding created zone: %w", err)
	}

	zone, ok := singleZone(parsed)
	if !ok {
		return Zone{}, errors.New("created zone missing from response")
	}

	return zone, nil
}

// DeleteZone deletes a zone owned by the holder of token. It fails
// with ErrAuthTokenRequired, without touching the network, when
// token is empty.
func (c *Client) DeleteZone(ctx context.Context, id int, token string) error {
	if token == "" {
		return ErrAuthTokenRequired
	}

	_, err := c.send(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/api/zones/%d", id),
		token:  token,
	})

	return err
}

// zoneList extracts the zone list from a list response body.
func zoneList(body []byte) ([]Zone, error) {
	payload, err := parsePayload(body)
	if err != nil {
		return nil, err
	}

	return decodeEnvelope(unwrapData(payload)).zones(), nil
}

// singleZone extracts one zone from a single-zone response. It
// looks at data.zone, then zone, then the first element of any
// zone list shape.
func singleZone(payload json.RawMessage) (Zone, bool) {
	for _, path := range [][]string{{"data", "zone"}, {"zone"}} {
		if raw, ok := member(payload, path...); ok {
			return normalizeZone(raw)
		}
	}

	zones := decodeEnvelope(unwrapData(payload)).zones()
	if len(zones) == 0 {
		return Zone{}, false
	}

	return zones[0], true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
