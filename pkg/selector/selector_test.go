package selector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/selector"
)

// staticProber marks providers available by name
type staticProber struct {
	up map[types.ProviderName]bool
}

func (p *staticProber) Probe(ctx context.Context, provider *model.Provider) bool {
	return p.up[provider.Name]
}

func testProviders() []*model.Provider {
	return []*model.Provider{
		{Name: "local", Endpoint: "http://localhost:9000", CostPerToken: 0.001, LatencyEstimate: 50},
		{Name: "gpt4", Endpoint: "http://gpt4.example.com", CostPerToken: 0.03, LatencyEstimate: 800},
		{Name: "claude", Endpoint: "http://claude.example.com", CostPerToken: 0.02, LatencyEstimate: 600},
	}
}

func newRegistry(t *testing.T, strategy types.RouteStrategy, up ...types.ProviderName) *selector.Registry {
	t.Helper()

	prober := &staticProber{up: map[types.ProviderName]bool{}}
	for _, name := range up {
		prober.up[name] = true
	}

	registry, err := selector.New(strategy, testProviders(), selector.WithProber(prober))
	gt.NoError(t, err).Required()
	gt.NoError(t, registry.Init(context.Background())).Required()
	return registry
}

func allRanked() []types.ProviderName {
	return []types.ProviderName{"local", "gpt4", "claude"}
}

func TestChooseIntersectsRankingWithAvailability(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyCost, "gpt4")

	chosen, err := registry.Choose(model.TaskPolicy{
		Ranking:    allRanked(),
		CostBudget: 0.5,
	})
	gt.NoError(t, err).Required()
	gt.Value(t, chosen.Name).Equal(types.ProviderName("gpt4"))
}

func TestChooseFailsWhenNothingAvailable(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyCost)

	_, err := registry.Choose(model.TaskPolicy{Ranking: allRanked()})
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, selector.ErrNoProviderAvailable)).True()
}

func TestChooseIgnoresUnknownRankedNames(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyLatency, "local")

	chosen, err := registry.Choose(model.TaskPolicy{
		Ranking: []types.ProviderName{"no-such-provider", "local"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, chosen.Name).Equal(types.ProviderName("local"))
}

func TestCostStrategy(t *testing.T) {
	t.Run("picks minimum cost within budget", func(t *testing.T) {
		registry := newRegistry(t, types.RouteStrategyCost, "local", "gpt4", "claude")

		chosen, err := registry.Choose(model.TaskPolicy{
			Ranking:    []types.ProviderName{"gpt4", "claude", "local"},
			CostBudget: 0.5,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, chosen.Name).Equal(types.ProviderName("local"))
	})

	t.Run("budget is advisory, falls back to first ranked", func(t *testing.T) {
		registry := newRegistry(t, types.RouteStrategyCost, "gpt4", "claude")

		chosen, err := registry.Choose(model.TaskPolicy{
			Ranking:    []types.ProviderName{"gpt4", "claude"},
			CostBudget: 0.0001,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, chosen.Name).Equal(types.ProviderName("gpt4"))
	})
}

func TestLatencyStrategy(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyLatency, "local", "gpt4", "claude")

	chosen, err := registry.Choose(model.TaskPolicy{Ranking: allRanked()})
	gt.NoError(t, err).Required()
	gt.Value(t, chosen.Name).Equal(types.ProviderName("local"))
}

func TestQualityStrategy(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyQuality, "local", "gpt4", "claude")

	chosen, err := registry.Choose(model.TaskPolicy{Ranking: allRanked()})
	gt.NoError(t, err).Required()
	gt.Value(t, chosen.Name).Equal(types.ProviderName("gpt4"))
}

func TestHybridStrategy(t *testing.T) {
	t.Run("prefers cheap fast providers within budget", func(t *testing.T) {
		registry := newRegistry(t, types.RouteStrategyHybrid, "local", "gpt4", "claude")

		chosen, err := registry.Choose(model.TaskPolicy{
			Ranking:    allRanked(),
			CostBudget: 0.5,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, chosen.Name).Equal(types.ProviderName("local"))
	})

	t.Run("ties resolve to the earlier ranked candidate", func(t *testing.T) {
		providers := []*model.Provider{
			{Name: "alpha", Endpoint: "http://alpha.example.com", CostPerToken: 0.01, LatencyEstimate: 100},
			{Name: "beta", Endpoint: "http://beta.example.com", CostPerToken: 0.01, LatencyEstimate: 100},
		}
		prober := &staticProber{up: map[types.ProviderName]bool{"alpha": true, "beta": true}}
		registry, err := selector.New(types.RouteStrategyHybrid, providers, selector.WithProber(prober))
		gt.NoError(t, err).Required()
		gt.NoError(t, registry.Init(context.Background())).Required()

		chosen, err := registry.Choose(model.TaskPolicy{
			Ranking:    []types.ProviderName{"beta", "alpha"},
			CostBudget: 1,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, chosen.Name).Equal(types.ProviderName("beta"))
	})
}

func TestChooseIsDeterministic(t *testing.T) {
	for _, strategy := range types.AllRouteStrategies() {
		t.Run(strategy.String(), func(t *testing.T) {
			registry := newRegistry(t, strategy, "local", "gpt4", "claude")
			policy := model.TaskPolicy{Ranking: allRanked(), CostBudget: 0.025}

			first, err := registry.Choose(policy)
			gt.NoError(t, err).Required()
			second, err := registry.Choose(policy)
			gt.NoError(t, err).Required()

			gt.Value(t, second.Name).Equal(first.Name)
		})
	}
}

func TestLastChosenIsRecorded(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyLatency, "claude")

	gt.Value(t, registry.LastChosen()).Equal(types.ProviderName(""))

	_, err := registry.Choose(model.TaskPolicy{Ranking: allRanked()})
	gt.NoError(t, err).Required()
	gt.Value(t, registry.LastChosen()).Equal(types.ProviderName("claude"))
}

func TestInitNeverFails(t *testing.T) {
	registry := newRegistry(t, types.RouteStrategyCost)

	gt.Value(t, registry.AvailableCount()).Equal(0)
	gt.NoError(t, registry.HealthCheck(context.Background()))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Run("invalid strategy", func(t *testing.T) {
		_, err := selector.New(types.RouteStrategy("random"), testProviders())
		gt.Value(t, err).NotNil()
	})

	t.Run("duplicate provider name", func(t *testing.T) {
		providers := []*model.Provider{
			{Name: "dup", Endpoint: "http://a.example.com"},
			{Name: "dup", Endpoint: "http://b.example.com"},
		}
		_, err := selector.New(types.RouteStrategyCost, providers)
		gt.Value(t, err).NotNil()
	})

	t.Run("empty provider list", func(t *testing.T) {
		_, err := selector.New(types.RouteStrategyCost, nil)
		gt.Value(t, err).NotNil()
	})
}
