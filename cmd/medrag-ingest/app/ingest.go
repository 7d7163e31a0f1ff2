// Package app provides the medrag ingestion application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/medrag/cmd/medrag-ingest/app/options"
	"github.com/kart-io/medrag/internal/ingest"
	"github.com/kart-io/medrag/internal/medrag/biz"
	"github.com/kart-io/medrag/pkg/infra/app"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// commandDesc is the description of the command.
const commandDesc = `medrag knowledge base builder

Reads the topic map and one folder of Markdown documents per topic, splits
the documents into overlapping chunks, embeds them and stores them in the
vector store. The store is cleared before every run; a manifest is written
only when the run completes, and the inference service refuses to start
without it.

Use --ingest.dry-run to report chunk counts without embedding or writing.`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewIngestOptions()
	return app.NewApp(
		app.WithName(ingest.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithEnvAliases(options.EnvAliases),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.IngestOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := cfg.Run(ctx)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		return printReport(report)
	}
}

// printReport writes the run summary to stdout as JSON.
func printReport(report *biz.IngestReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
