// Package options contains flags and options for initializing the medrag server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	medrag "github.com/kart-io/medrag/internal/medrag"
	cliflag "github.com/kart-io/medrag/pkg/app/cliflag"
	cacheopts "github.com/kart-io/medrag/pkg/options/cache"
	httpopts "github.com/kart-io/medrag/pkg/options/http"
	llmopts "github.com/kart-io/medrag/pkg/options/llm"
	logopts "github.com/kart-io/medrag/pkg/options/logger"
	ragopts "github.com/kart-io/medrag/pkg/options/rag"
	storeopts "github.com/kart-io/medrag/pkg/options/store"
)

// EnvAliases maps config keys to the unprefixed variable names used by
// existing deployments.
var EnvAliases = map[string]string{
	"store.dir":        "DATABASE_LOCATION",
	"store.collection": "COLLECTION_NAME",
	"llm.embed-model":  "EMBEDDING_MODEL",
	"llm.chat-model":   "CHAT_MODEL",
}

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// LLMOptions contains model provider configuration.
	LLMOptions *llmopts.Options `json:"llm" mapstructure:"llm"`

	// RAGOptions contains prediction configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// StoreOptions contains vector store configuration.
	StoreOptions *storeopts.Options `json:"store" mapstructure:"store"`

	// CacheOptions contains cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:  httpopts.NewOptions(),
		LogOptions:   logopts.NewOptions(),
		LLMOptions:   llmopts.NewOptions(),
		RAGOptions:   ragopts.NewOptions(),
		StoreOptions: storeopts.NewOptions(),
		CacheOptions: cacheopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"), "http")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log")
	o.LLMOptions.AddFlags(fss.FlagSet("llm"), "llm")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"), "rag")
	o.StoreOptions.AddFlags(fss.FlagSet("store"), "store")
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache")
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.LLMOptions.Complete(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.StoreOptions.Complete(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a medrag.Config based on ServerOptions.
func (o *ServerOptions) Config() (*medrag.Config, error) {
	return &medrag.Config{
		HTTPOptions:  o.HTTPOptions,
		LogOptions:   o.LogOptions,
		LLMOptions:   o.LLMOptions,
		RAGOptions:   o.RAGOptions,
		StoreOptions: o.StoreOptions,
		CacheOptions: o.CacheOptions,
	}, nil
}
