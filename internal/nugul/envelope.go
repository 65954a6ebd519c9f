package nugul

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errUnparsableBody = errors.New("response body is not valid JSON")

// envelopeKind names the response shape a zone list was found in.
type envelopeKind int

const (
	// envelopeNone is the terminal case: no known shape
	// matched and the list is empty.
	envelopeNone envelopeKind = iota

	// envelopeArray is a bare JSON array of zones.
	envelopeArray

	// envelopeZones is an object with a zones array.
	envelopeZones

	// envelopeDataZones is an object with a data object
	// holding a zones array.
	envelopeDataZones
)

func (k envelopeKind) String() string {
	switch k {
	case envelopeArray:
		return "array"
	case envelopeZones:
		return "zones"
	case envelopeDataZones:
		return "data.zones"
	default:
		return "none"
	}
}

// envelope is a decoded zone list together with the shape it
// was extracted from.
type envelope struct {
	kind    envelopeKind
	records []json.RawMessage
}

// zones normalizes every record. Records that are not objects
// are dropped.
func (e envelope) zones() []Zone {
	zones := make([]Zone, 0, len(e.records))
	for _, raw := range e.records {
		if z, ok := normalizeZone(raw); ok {
			zones = append(zones, z)
		}
	}

	return zones
}

// decodeEnvelope finds the zone list inside payload. The shapes
// are tried in a fixed order: bare array, then {zones}, then
// {data:{zones}}. A payload matching none of them decodes to
// envelopeNone with no records.
func decodeEnvelope(payload json.RawMessage) envelope {
	if records, ok := asArray(payload); ok {
		return envelope{kind: envelopeArray, records: records}
	}

	obj, ok := asObject(payload)
	if !ok {
		return envelope{kind: envelopeNone}
	}

	if records, ok := asArray(obj["zones"]); ok {
		return envelope{kind: envelopeZones, records: records}
	}

	if data, ok := asObject(obj["data"]); ok {
		if records, ok := asArray(data["zones"]); ok {
			return envelope{kind: envelopeDataZones, records: records}
		}
	}

	return envelope{kind: envelopeNone}
}

// parsePayload turns a response body into raw JSON. An empty
// body is a null payload. A body that is not JSON returns
// errUnparsableBody.
func parsePayload(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}

	if !json.Valid(body) {
		return nil, errUnparsableBody
	}

	return json.RawMessage(body), nil
}

// unwrapData returns the payload's data member when it holds a
// truthy value and the payload itself otherwise.
func unwrapData(payload json.RawMessage) json.RawMessage {
	obj, ok := asObject(payload)
	if !ok {
		return payload
	}

	if data, ok := obj["data"]; ok && truthy(data) {
		return data
	}

	return payload
}

// member walks a path of object keys and returns the value at
// the end of it.
func member(payload json.RawMessage, path ...string) (json.RawMessage, bool) {
	cur := payload
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}

		next, ok := obj[key]
		if !ok || isNull(next) {
			return nil, false
		}
		cur = next
	}

	return cur, true
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}

	return records, true
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if !isObject(raw) {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	return obj, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// truthy follows the JSON values a JavaScript client would treat
// as set: everything except null, false, 0 and "".
func truthy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	default:
		return true
	}
}
