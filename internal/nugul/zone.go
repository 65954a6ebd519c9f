package nugul

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Zone is a reported smoking-permitted location.
type Zone struct {
	ID          int     `json:"id"`
	Region      string  `json:"region"`
	Type        string  `json:"type"`
	Subtype     string  `json:"subtype"`
	Description string  `json:"description"`
	Size        string  `json:"size,omitempty"`
	Date        string  `json:"date,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
	User        string  `json:"user"`
	Image       *string `json:"image"`
}

// CreateZonePayload is the JSON document sent in the data part
// of a zone creation request.
type CreateZonePayload struct {
	Region      string  `json:"region"`
	Type        string  `json:"type"`
	Subtype     string  `json:"subtype"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
	User        string  `json:"user"`
}

// zoneRecord is a zone as the server sends it. Numbers may
// arrive as JSON numbers or strings, text may be missing or
// null.
type zoneRecord struct {
	ID          number `json:"id"`
	Region      text   `json:"region"`
	Type        text   `json:"type"`
	Subtype     text   `json:"subtype"`
	Description text   `json:"description"`
	Size        text   `json:"size"`
	Date        text   `json:"date"`
	Latitude    number `json:"latitude"`
	Longitude   number `json:"longitude"`
	Address     text   `json:"address"`
	User        text   `json:"user"`
	Image       text   `json:"image"`
}

func (r zoneRecord) zone() Zone {
	z := Zone{
		ID:          int(r.ID),
		Region:      string(r.Region),
		Type:        string(r.Type),
		Subtype:     string(r.Subtype),
		Description: string(r.Description),
		Size:        string(r.Size),
		Date:        string(r.Date),
		Latitude:    float64(r.Latitude),
		Longitude:   float64(r.Longitude),
		Address:     string(r.Address),
		User:        string(r.User),
	}

	if r.Image != "" {
		img := string(r.Image)
		z.Image = &img
	}

	return z
}

// normalizeZone decodes a single raw record into a Zone. ok is
// false when the record is not a JSON object.
func normalizeZone(raw json.RawMessage) (Zone, bool) {
	if !isObject(raw) {
		return Zone{}, false
	}

	var r zoneRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return Zone{}, false
	}

	return r.zone(), true
}

// number accepts a JSON number, a numeric string, or null.
// Anything that does not parse as a number becomes 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}

	*n = number(f)
	return nil
}

// text accepts a JSON string or null. Numbers and booleans
// are kept in their literal form.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		*t = ""
	default:
		*t = text(b)
	}

	return nil
}
