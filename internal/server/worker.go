package server

import (
	"context"
	"log/slog"
	"time"
)

// Refresher is the interface that wraps the RefreshCurrentRegion
// method. *explorer.Explorer implements it.
type Refresher interface {
	RefreshCurrentRegion(ctx context.Context)
}

// worker fetches the current region again every d, so zones
// reported by other users show up without the map moving.
type worker struct {
	explorer Refresher
	logger   *slog.Logger
	d        time.Duration
	killCh   <-chan struct{}
}

func (w *worker) start() {
	ticker := time.NewTicker(w.d)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-w.killCh
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			w.explorer.RefreshCurrentRegion(ctx)
			w.logger.Debug("refreshed current region", "duration_ms", time.Since(start).Milliseconds())
		case <-ctx.Done():
			return
		}
	}
}
