package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/relayforge/taskmesh/pkg/agent"
	"github.com/relayforge/taskmesh/pkg/cli/config"
	httpctrl "github.com/relayforge/taskmesh/pkg/controller/http"
	"github.com/relayforge/taskmesh/pkg/dispatcher"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/selector"
	"github.com/relayforge/taskmesh/pkg/utils/async"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var agentID string
	var probeInterval time.Duration
	var storeCfg config.Store
	var providersCfg config.Providers

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TASKMESH_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "agent-id",
			Usage:       "ID under which the built-in intelligence agent is registered",
			Value:       "intel",
			Sources:     cli.EnvVars("TASKMESH_AGENT_ID"),
			Destination: &agentID,
		},
		&cli.DurationFlag{
			Name:        "probe-interval",
			Usage:       "Interval between provider availability re-probes (0 disables)",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("TASKMESH_PROBE_INTERVAL"),
			Destination: &probeInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, providersCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
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

			var refreshWorker *selector.RefreshWorker
			stopSelector := func() {}
			if probeInterval > 0 {
				refreshWorker = selector.NewRefreshWorker(registry, probeInterval)
				refreshWorker.Start(ctx)
				stopSelector = refreshWorker.Stop
			}

			store, err := storeCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize store")
			}

			// Shutdown closes the store and stops the refresh worker
			dsp := dispatcher.New(store, registry,
				dispatcher.WithSelectorStop(stopSelector),
			)

			if err := dsp.RegisterAgent(agent.NewIntelligence(types.AgentID(agentID))); err != nil {
				return goerr.Wrap(err, "failed to register intelligence agent")
			}

			// Drain lifecycle events into the log so the channel never fills
			async.Dispatch(ctx, func(ctx context.Context) error {
				for ev := range dsp.Events() {
					logging.From(ctx).Debug("dispatcher event",
						"type", ev.Type, "task_id", ev.TaskID, "agent_id", ev.AgentID)
				}
				return nil
			})

			httpHandler := httpctrl.New(dsp, store,
				httpctrl.WithVectorDimension(providersFile.VectorDimension),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"strategy", providersFile.Strategy,
					"providers", len(providersFile.Providers),
					"store", storeCfg.Backend(),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				_ = dsp.Shutdown(ctx)
				return err

			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					_ = dsp.Shutdown(shutdownCtx)
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				if err := dsp.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown dispatcher")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
