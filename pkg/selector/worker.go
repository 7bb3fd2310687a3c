package selector

import (
	"context"
	"time"

	"github.com/relayforge/taskmesh/pkg/utils/logging"
)

// RefreshWorker re-probes provider availability on an interval so a backend
// that recovers (or degrades) after startup is picked up without a restart.
//
// Single server instance assumed; no distributed coordination.
type RefreshWorker struct {
	registry *Registry
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRefreshWorker creates a worker that refreshes the registry's
// availability state every interval.
func NewRefreshWorker(registry *Registry, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		registry: registry,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. Does not block.
func (w *RefreshWorker) Start(ctx context.Context) {
	logging.Default().Info("provider refresh worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for completion
func (w *RefreshWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("provider refresh worker stopped")
}

func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.registry.Init(ctx); err != nil {
				logging.Default().Error("provider refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}
