package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/tagml"
	httpAdapter "github.com/aretw0/tagml/pkg/adapters/http"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the import engine as a JSON API over HTTP (see /openapi.yaml),
with the document library, Server-Sent Events for source changes and
Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		engine, err := a.engine(a.dir, tagml.WithLifecycleHooks(observability.Compose(
			metrics.Hooks(),
			observability.LoggingHooks(a.logger),
		)))
		if err != nil {
			return fmt.Errorf("error initializing tagml: %w", err)
		}

		lib, closeLib, err := a.library(cmd.Context())
		if err != nil {
			return err
		}
		defer closeLib()

		handler, err := httpAdapter.NewHandler(observedEngine{engine, metrics},
			httpAdapter.WithDocuments(lib),
			httpAdapter.WithMetrics(reg),
			httpAdapter.WithLogger(a.logger),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			a.logger.Info("starting tagml server", "addr", srv.Addr, "dir", a.dir, "store", a.cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			a.logger.Info("start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Error("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			a.logger.Info("tagml server stopped gracefully")
			return nil
		}
	},
}

// observedEngine records import outcomes and durations.
type observedEngine struct {
	*tagml.Engine
	metrics *observability.Metrics
}

func (e observedEngine) Import(ctx context.Context, name string, src []byte) (*tagml.Result, error) {
	start := time.Now()
	res, err := e.Engine.Import(ctx, name, src)
	var diags domain.Diagnostics
	if res != nil {
		diags = res.Diagnostics
	}
	e.metrics.ObserveImport(start, diags, err)
	return res, err
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
