// Package selector owns the provider registry: descriptors, availability
// state and the routing strategies that pick a provider per task.
package selector

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/metrics"
)

// ErrNoProviderAvailable is returned when the ranked/available intersection
// is empty for a task's policy.
var ErrNoProviderAvailable = goerr.New("no provider available")

const hybridEpsilon = 1e-9

// Registry holds the provider descriptors for the process lifetime. The
// descriptor set is fixed after construction; only Available is mutated, by
// health probes. Concurrent Choose calls are independent — two tasks may
// pick the same provider, there is no admission control.
type Registry struct {
	mu        sync.RWMutex
	providers []*model.Provider
	index     map[types.ProviderName]int
	strategy  types.RouteStrategy

	lastChosen types.ProviderName

	prober prober
}

var _ interfaces.ProviderSelector = &Registry{}

// Option configures a Registry
type Option func(*Registry)

// WithProber overrides the availability probe, mainly for tests
func WithProber(p prober) Option {
	return func(r *Registry) {
		r.prober = p
	}
}

// New builds a registry from provider descriptors, preserving their order
// as the tie-break rank. Duplicate names and invalid descriptors are
// rejected.
func New(strategy types.RouteStrategy, providers []*model.Provider, opts ...Option) (*Registry, error) {
	if !strategy.IsValid() {
		return nil, goerr.New("invalid routing strategy", goerr.V("strategy", strategy))
	}
	if len(providers) == 0 {
		return nil, goerr.New("at least one provider is required")
	}

	r := &Registry{
		index:    make(map[types.ProviderName]int, len(providers)),
		strategy: strategy,
		prober:   newHTTPProber(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid provider descriptor")
		}
		if _, ok := r.index[p.Name]; ok {
			return nil, goerr.New("duplicate provider name", goerr.V("name", p.Name))
		}
		r.index[p.Name] = len(r.providers)
		r.providers = append(r.providers, p.Clone())
	}

	return r, nil
}

// Strategy returns the process-wide routing strategy
func (r *Registry) Strategy() types.RouteStrategy {
	return r.strategy
}

// Providers returns a snapshot of all descriptors in rank order
func (r *Registry) Providers() []*model.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p.Clone())
	}
	return result
}

// LastChosen returns the most recently selected provider name. This is
// observability only; it reserves nothing.
func (r *Registry) LastChosen() types.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastChosen
}

// Choose picks a provider for the policy. It intersects the ranked list
// with available providers preserving rank order, then applies the
// configured strategy. The result is a pure function of provider state and
// the policy, so identical inputs always yield the same provider.
func (r *Registry) Choose(policy model.TaskPolicy) (*model.Provider, error) {
	r.mu.RLock()
	candidates := make([]*model.Provider, 0, len(policy.Ranking))
	for _, name := range policy.Ranking {
		idx, ok := r.index[name]
		if !ok {
			continue
		}
		if p := r.providers[idx]; p.Available {
			candidates = append(candidates, p.Clone())
		}
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, goerr.Wrap(ErrNoProviderAvailable, "no ranked provider is available",
			goerr.V("ranking", policy.Ranking))
	}

	var chosen *model.Provider
	switch r.strategy {
	case types.RouteStrategyCost:
		chosen = chooseByCost(candidates, policy.CostBudget)
	case types.RouteStrategyLatency:
		chosen = chooseByLatency(candidates)
	case types.RouteStrategyQuality:
		chosen = chooseByQuality(candidates)
	case types.RouteStrategyHybrid:
		chosen = chooseByHybrid(candidates, policy.CostBudget)
	default:
		return nil, goerr.New("invalid routing strategy", goerr.V("strategy", r.strategy))
	}

	r.mu.Lock()
	r.lastChosen = chosen.Name
	r.mu.Unlock()

	metrics.ProviderSelected.WithLabelValues(string(chosen.Name), r.strategy.String()).Inc()

	return chosen, nil
}

// chooseByCost picks the cheapest candidate within budget. The budget is
// advisory: when nothing fits, the first ranked candidate wins.
func chooseByCost(candidates []*model.Provider, budget float64) *model.Provider {
	var best *model.Provider
	for _, p := range candidates {
		if p.CostPerToken > budget {
			continue
		}
		if best == nil || p.CostPerToken < best.CostPerToken {
			best = p
		}
	}
	if best == nil {
		return candidates[0]
	}
	return best
}

func chooseByLatency(candidates []*model.Provider) *model.Provider {
	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.LatencyEstimate < best.LatencyEstimate {
			best = p
		}
	}
	return best
}

// chooseByQuality treats unit cost as the quality proxy and picks the most
// expensive candidate. A simplification, not a real quality metric.
func chooseByQuality(candidates []*model.Provider) *model.Provider {
	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.CostPerToken > best.CostPerToken {
			best = p
		}
	}
	return best
}

// chooseByHybrid scores cost, latency and budget fit. Ties resolve to the
// earlier-ranked candidate.
func chooseByHybrid(candidates []*model.Provider, budget float64) *model.Provider {
	best := candidates[0]
	bestScore := hybridScore(best, budget)
	for _, p := range candidates[1:] {
		if score := hybridScore(p, budget); score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

func hybridScore(p *model.Provider, budget float64) float64 {
	budgetFactor := 0.1
	if p.CostPerToken <= budget {
		budgetFactor = 1.0
	}
	return 0.4*(1/(p.CostPerToken+hybridEpsilon)) +
		0.4*(1/(float64(p.LatencyEstimate)+1)) +
		0.2*budgetFactor
}

// HealthCheck reports whether the registry itself responds. Individual
// provider availability is state, not an error.
func (r *Registry) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.providers) == 0 {
		return goerr.New("provider registry is empty")
	}
	return nil
}

// AvailableCount returns how many providers are currently marked available
func (r *Registry) AvailableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.providers {
		if p.Available {
			count++
		}
	}
	return count
}

func (r *Registry) setAvailable(name types.ProviderName, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[name]; ok {
		r.providers[idx].Available = available
	}
}
