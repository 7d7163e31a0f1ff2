// Package app provides the medrag server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/medrag/cmd/medrag/app/options"
	medrag "github.com/kart-io/medrag/internal/medrag"
	"github.com/kart-io/medrag/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `medrag inference service

Classifies medical statements as true or false and assigns each one a topic,
grounded on chunks retrieved from the local knowledge base.

Endpoints:
  GET  /         service identity
  GET  /api      uptime
  POST /predict  {"statement": "..."} -> {"statement_is_true", "statement_topic"}
  GET  /metrics  Prometheus metrics

The knowledge base must be built first with medrag-ingest.`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(medrag.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithEnvAliases(options.EnvAliases),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
