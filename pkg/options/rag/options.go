// Package rag provides the inference configuration options.
package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
)

var _ options.Completable = (*Options)(nil)

// Options contains the prediction settings.
type Options struct {
	// TopK is the number of chunks retrieved per statement.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// TopicsFile is the topic map used to resolve model output.
	TopicsFile string `json:"topics-file" mapstructure:"topics-file"`

	// PredictTimeout bounds one prediction, retrieval and generation included.
	PredictTimeout time.Duration `json:"predict-timeout" mapstructure:"predict-timeout"`

	// ParseRetry 输出无法解析时，用更严格的提示重试一次。
	ParseRetry bool `json:"parse-retry" mapstructure:"parse-retry"`

	// StrictModelCheck 知识库的嵌入模型与当前配置不一致时拒绝启动。
	StrictModelCheck bool `json:"strict-model-check" mapstructure:"strict-model-check"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:           5,
		TopicsFile:     "data/topics.json",
		PredictTimeout: 120 * time.Second,
		ParseRetry:     true,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of chunks retrieved per statement.")
	fs.StringVar(&o.TopicsFile, p+"topics-file", o.TopicsFile, "Path to the topic map (topic name -> id).")
	fs.DurationVar(&o.PredictTimeout, p+"predict-timeout", o.PredictTimeout, "Timeout of a single prediction.")
	fs.BoolVar(&o.ParseRetry, p+"parse-retry", o.ParseRetry, "Retry once with a stricter prompt when the model reply cannot be parsed.")
	fs.BoolVar(&o.StrictModelCheck, p+"strict-model-check", o.StrictModelCheck,
		"Refuse to start when the knowledge base was built with a different embedding model.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if strings.TrimSpace(o.TopicsFile) == "" {
		errs = append(errs, fmt.Errorf("rag.topics-file is required"))
	}
	if o.PredictTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag.predict-timeout must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	o.TopicsFile = strings.TrimSpace(o.TopicsFile)
	return nil
}
