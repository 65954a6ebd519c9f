package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Poster is the interface that wraps the Post method of a fluent
// client. *fluent.Fluent implements it.
type Poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler is a slog.Handler that posts each record to Fluent
// Bit as a flat map tagged with its lowercase level. Attributes in
// groups are keyed as group.key.
type FluentHandler struct {
	client Poster
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

func NewFluentHandler(client Poster, level slog.Leveler) *FluentHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &FluentHandler{client: client, level: level}
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		addAttr(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, h.group, a)
		return true
	})

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	data["level"] = r.Level.String()
	data["message"] = r.Message
	data["timestamp"] = t.UTC().Format(time.RFC3339Nano)

	return h.client.Post(strings.ToLower(r.Level.String()), data)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}

	return &c
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.group = prefixed(h.group, name)
	return &c
}

func addAttr(data map[string]interface{}, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g = prefixed(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			addAttr(data, g, ga)
		}
		return
	}

	key := prefixed(group, a.Key)
	switch v := a.Value.Any().(type) {
	case error:
		data[key] = v.Error()
	case time.Duration:
		data[key] = v.String()
	case time.Time:
		data[key] = v.UTC().Format(time.RFC3339Nano)
	default:
		data[key] = v
	}
}

func prefixed(group, key string) string {
	if group == "" {
		return key
	}

	return group + "." + key
}
