// Package logging builds the slog.Logger shared by the binary. Console
// output goes through tint, or a JSON or text handler, and can be
// fanned out to Fluent Bit.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

const timeFormat = "2006-01-02 15:04:05"

type ConsoleConfig struct {
	// Writer defaults to os.Stdout.
	Writer    io.Writer
	Level     slog.Leveler
	AddSource bool
	IsJSON    bool
	UseColor  bool
}

// NewConsoleHandler returns a JSON handler when IsJSON is set, a tint
// handler when UseColor is set and a plain text handler otherwise.
func NewConsoleHandler(cfg ConsoleConfig) slog.Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.AddSource,
		Level:     cfg.Level,
	}

	switch {
	case cfg.IsJSON:
		return slog.NewJSONHandler(cfg.Writer, opts)
	case cfg.UseColor:
		return tint.NewHandler(cfg.Writer, &tint.Options{
			Level:      cfg.Level,
			AddSource:  cfg.AddSource,
			TimeFormat: timeFormat,
		})
	default:
		return slog.NewTextHandler(cfg.Writer, opts)
	}
}

type FluentConfig struct {
	Host string
	Port int

	// TagPrefix is prepended to the level of every record to form
	// the fluent tag, e.g. nugulmap.info.
	TagPrefix string
	Level     slog.Leveler
}

// NewFluentClient connects to a Fluent Bit forward input. The client
// connects lazily, so a bad host only shows up on the first Post.
func NewFluentClient(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, errors.New("fluent tag prefix is required")
	}

	f, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
		Async:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating fluent client: %w", err)
	}

	return f, nil
}

// Fanout is a slog.Handler that passes every record to each of its
// handlers that accepts the record's level.
type Fanout []slog.Handler

func NewFanout(handlers ...slog.Handler) Fanout {
	return Fanout(handlers)
}

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}

	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}

	return out
}
