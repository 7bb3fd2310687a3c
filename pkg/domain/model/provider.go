package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Provider describes one interchangeable backend. The descriptor set is
// owned by the selector registry; Available is mutated only by health checks.
type Provider struct {
	Name            types.ProviderName `json:"name" toml:"name"`
	Endpoint        string             `json:"endpoint" toml:"endpoint"`
	Credential      string             `json:"-" toml:"credential" masq:"secret"`
	Models          []string           `json:"models" toml:"models"`
	CostPerToken    float64            `json:"cost_per_token" toml:"cost_per_token"`
	LatencyEstimate int64              `json:"latency_estimate_ms" toml:"latency_estimate_ms"`
	Available       bool               `json:"available" toml:"-"`
}

// Validate checks required descriptor fields
func (p *Provider) Validate() error {
	if p.Name == "" {
		return goerr.New("provider name is required")
	}
	if p.Endpoint == "" {
		return goerr.New("provider endpoint is required", goerr.V("name", p.Name))
	}
	if p.CostPerToken < 0 {
		return goerr.New("provider cost_per_token must not be negative",
			goerr.V("name", p.Name), goerr.V("cost_per_token", p.CostPerToken))
	}
	if p.LatencyEstimate < 0 {
		return goerr.New("provider latency_estimate_ms must not be negative",
			goerr.V("name", p.Name), goerr.V("latency_estimate_ms", p.LatencyEstimate))
	}
	return nil
}

// Clone returns a deep copy of the provider descriptor
func (p *Provider) Clone() *Provider {
	copied := *p
	if p.Models != nil {
		copied.Models = make([]string, len(p.Models))
		copy(copied.Models, p.Models)
	}
	return &copied
}
