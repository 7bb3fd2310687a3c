package selector

import (
	"context"
	"net/http"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
	"github.com/relayforge/taskmesh/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 3 * time.Second

// prober checks whether one provider endpoint is reachable
type prober interface {
	Probe(ctx context.Context, provider *model.Provider) bool
}

type httpProber struct {
	client *http.Client
}

func newHTTPProber() *httpProber {
	return &httpProber{
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Probe issues a GET against the provider endpoint. Any response counts as
// reachable unless the server itself is failing.
func (p *httpProber) Probe(ctx context.Context, provider *model.Provider) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.Endpoint, nil)
	if err != nil {
		return false
	}
	if provider.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+provider.Credential)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer safe.Close(ctx, resp.Body)

	return resp.StatusCode < http.StatusInternalServerError
}

// Init probes every provider concurrently and records availability. Probe
// failures mark the provider unavailable; Init itself never fails — with
// nothing available the process stays up and Choose rejects every task.
func (r *Registry) Init(ctx context.Context) error {
	logger := logging.From(ctx)

	var eg errgroup.Group
	for _, p := range r.Providers() {
		eg.Go(func() error {
			available := r.prober.Probe(ctx, p)
			r.setAvailable(p.Name, available)
			if !available {
				logger.Warn("provider probe failed, marked unavailable",
					"provider", p.Name, "endpoint", p.Endpoint)
			} else {
				logger.Debug("provider probe succeeded", "provider", p.Name)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logger.Info("provider registry initialized",
		"providers", len(r.Providers()),
		"available", r.AvailableCount(),
		"strategy", r.strategy.String())
	return nil
}
