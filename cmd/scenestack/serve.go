package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/scenestack"
	"github.com/aretw0/scenestack/internal/cli"
	httpAdapter "github.com/aretw0/scenestack/pkg/adapters/http"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <script.yaml>",
	Short: "Start the HTTP debug server",
	Long: `Builds a director over the scene catalog declared by the script and exposes it over
HTTP: stack introspection, transitions, an SSE stream of scene changes and /metrics.
The script steps are not executed; --start enters an initial scene.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		b, err := openBackends(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		metrics := observability.NewMetrics()
		env, err := cli.NewEnvironment(script, b.masterData,
			scenestack.WithLogger(logger),
			scenestack.WithMetrics(metrics),
			scenestack.WithSnapshotStore(b.store),
			scenestack.WithLifecycleHooks(observability.LoggingHooks(logger).Merge(observability.TracingHooks())),
			scenestack.WithName(script.Name),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := env.Director.Shutdown(context.Background()); err != nil {
				logger.Warn("director shutdown failed", "error", err)
			}
		}()

		if start, _ := cmd.Flags().GetString("start"); start != "" {
			if err := env.Director.TransitionTo(ctx, domain.SceneType(start), nil); err != nil {
				return fmt.Errorf("failed to enter %s: %w", start, err)
			}
		}

		server, err := httpAdapter.NewServer(env.Director,
			httpAdapter.WithMetrics(metrics),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithSlots(b.store),
		)
		if err != nil {
			return err
		}
		defer server.Close()

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: server.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting debug server", "addr", srv.Addr, "script", args[0])
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", cfg.HTTP.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("debug server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
	serveCmd.Flags().String("masterdata", "", "Path to a YAML master data snapshot")
	serveCmd.Flags().String("start", "", "Scene type to enter before serving")
}
