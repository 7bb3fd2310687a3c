package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Providers holds CLI flags for the provider registry configuration
type Providers struct {
	path     string
	strategy string
}

// ProvidersFile is the TOML document describing the provider registry
type ProvidersFile struct {
	Strategy        string            `toml:"strategy"`
	VectorDimension int               `toml:"vector_dimension"`
	Providers       []*model.Provider `toml:"provider"`
}

// Flags returns CLI flags for provider configuration
func (p *Providers) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "providers-config",
			Usage:       "Path to the TOML file listing provider descriptors and routing strategy",
			Required:    true,
			Sources:     cli.EnvVars("TASKMESH_PROVIDERS_CONFIG"),
			Destination: &p.path,
		},
		&cli.StringFlag{
			Name:        "route-strategy",
			Usage:       "Routing strategy override (cost, latency, quality or hybrid)",
			Sources:     cli.EnvVars("TASKMESH_ROUTE_STRATEGY"),
			Destination: &p.strategy,
		},
	}
}

// Load reads and validates the provider configuration file. A non-empty
// --route-strategy flag overrides the file's strategy.
func (p *Providers) Load() (*ProvidersFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read providers config", goerr.V("path", p.path))
	}

	var file ProvidersFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse providers config", goerr.V("path", p.path))
	}

	if p.strategy != "" {
		file.Strategy = p.strategy
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid providers config", goerr.V("path", p.path))
	}

	return &file, nil
}

// Validate checks the strategy, dimensionality and every provider entry
func (f *ProvidersFile) Validate() error {
	if !types.RouteStrategy(f.Strategy).IsValid() {
		return goerr.New("invalid routing strategy", goerr.V("strategy", f.Strategy))
	}
	if f.VectorDimension < 0 {
		return goerr.New("vector_dimension must not be negative",
			goerr.V("vector_dimension", f.VectorDimension))
	}
	if len(f.Providers) == 0 {
		return goerr.New("at least one provider entry is required")
	}

	names := make(map[types.ProviderName]bool)
	for _, provider := range f.Providers {
		if err := provider.Validate(); err != nil {
			return goerr.Wrap(err, "invalid provider entry")
		}
		if names[provider.Name] {
			return goerr.New("duplicate provider name", goerr.V("name", provider.Name))
		}
		names[provider.Name] = true
	}
	return nil
}

// RouteStrategy returns the validated strategy as its domain type
func (f *ProvidersFile) RouteStrategy() types.RouteStrategy {
	return types.RouteStrategy(f.Strategy)
}
