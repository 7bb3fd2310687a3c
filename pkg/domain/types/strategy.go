package types

// RouteStrategy selects how the provider selector ranks candidates.
// Exactly one strategy is configured process-wide.
type RouteStrategy string

const (
	// RouteStrategyCost picks the cheapest candidate within budget,
	// falling back to the first ranked candidate (budget is advisory).
	RouteStrategyCost RouteStrategy = "cost"

	// RouteStrategyLatency picks the candidate with the lowest latency estimate.
	RouteStrategyLatency RouteStrategy = "latency"

	// RouteStrategyQuality picks the candidate with the highest unit cost.
	// Cost is the sole quality proxy here; it is a simplification, not a
	// real quality metric.
	RouteStrategyQuality RouteStrategy = "quality"

	// RouteStrategyHybrid scores candidates on cost, latency and budget fit.
	RouteStrategyHybrid RouteStrategy = "hybrid"
)

// AllRouteStrategies returns all valid routing strategies
func AllRouteStrategies() []RouteStrategy {
	return []RouteStrategy{
		RouteStrategyCost,
		RouteStrategyLatency,
		RouteStrategyQuality,
		RouteStrategyHybrid,
	}
}

// IsValid checks if the routing strategy is valid
func (s RouteStrategy) IsValid() bool {
	switch s {
	case RouteStrategyCost, RouteStrategyLatency, RouteStrategyQuality, RouteStrategyHybrid:
		return true
	default:
		return false
	}
}

// String returns the string representation of the routing strategy
func (s RouteStrategy) String() string {
	return string(s)
}
