// Package options contains flags and options for the ingestion command.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/medrag/internal/ingest"
	cliflag "github.com/kart-io/medrag/pkg/app/cliflag"
	cacheopts "github.com/kart-io/medrag/pkg/options/cache"
	llmopts "github.com/kart-io/medrag/pkg/options/llm"
	logopts "github.com/kart-io/medrag/pkg/options/logger"
	storeopts "github.com/kart-io/medrag/pkg/options/store"
)

// EnvAliases maps config keys to the unprefixed variable names used by
// existing deployments.
var EnvAliases = map[string]string{
	"store.dir":        "DATABASE_LOCATION",
	"store.collection": "COLLECTION_NAME",
	"llm.embed-model":  "EMBEDDING_MODEL",
}

// IngestOptions contains the configuration options for ingestion.
type IngestOptions struct {
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// LLMOptions contains model provider configuration.
	LLMOptions *llmopts.Options `json:"llm" mapstructure:"llm"`

	// StoreOptions contains vector store configuration.
	StoreOptions *storeopts.Options `json:"store" mapstructure:"store"`

	// CacheOptions contains cache configuration; only the embedding cache applies.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// Ingest contains corpus and chunking configuration.
	Ingest *ingest.Options `json:"ingest" mapstructure:"ingest"`
}

// NewIngestOptions creates an IngestOptions instance with default values.
func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		LogOptions:   logopts.NewOptions(),
		LLMOptions:   llmopts.NewOptions(),
		StoreOptions: storeopts.NewOptions(),
		CacheOptions: cacheopts.NewOptions(),
		Ingest:       ingest.NewOptions(),
	}
}

// Flags returns flags grouped by section name.
func (o *IngestOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.Ingest.AddFlags(fss.FlagSet("ingest"), "ingest")
	o.LLMOptions.AddFlags(fss.FlagSet("llm"), "llm")
	o.StoreOptions.AddFlags(fss.FlagSet("store"), "store")
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log")
	return fss
}

// Complete completes all the required options.
func (o *IngestOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.LLMOptions.Complete(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := o.StoreOptions.Complete(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return o.Ingest.Complete()
}

// Validate checks whether the options are valid. The chat model is not
// needed for ingestion and is not validated.
func (o *IngestOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.Ingest.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds an ingest.Config based on IngestOptions.
func (o *IngestOptions) Config() (*ingest.Config, error) {
	return &ingest.Config{
		LogOptions:    o.LogOptions,
		LLMOptions:    o.LLMOptions,
		StoreOptions:  o.StoreOptions,
		CacheOptions:  o.CacheOptions,
		IngestOptions: o.Ingest,
	}, nil
}
