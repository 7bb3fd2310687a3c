package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/cli/config"
	"github.com/relayforge/taskmesh/pkg/selector"
	"github.com/urfave/cli/v3"
)

// cmdProbe checks every configured provider endpoint and prints its
// availability. Exits non-zero when nothing is available.
func cmdProbe() *cli.Command {
	var providersCfg config.Providers

	return &cli.Command{
		Name:  "probe",
		Usage: "Probe configured providers and report availability",
		Flags: providersCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			providersFile, err := providersCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load provider configuration")
			}

			registry, err := selector.New(providersFile.RouteStrategy(), providersFile.Providers)
			if err != nil {
				return goerr.Wrap(err, "failed to build provider registry")
			}
			if err := registry.Init(ctx); err != nil {
				return goerr.Wrap(err, "failed to probe providers")
			}

			available := color.New(color.FgGreen).SprintFunc()
			unavailable := color.New(color.FgRed).SprintFunc()

			for _, p := range registry.Providers() {
				status := unavailable("unavailable")
				if p.Available {
					status = available("available")
				}
				fmt.Printf("%-20s %-12s cost=%.4f latency=%dms endpoint=%s\n",
					p.Name, status, p.CostPerToken, p.LatencyEstimate, p.Endpoint)
			}

			if registry.AvailableCount() == 0 {
				return goerr.New("no provider is available")
			}
			return nil
		},
	}
}
