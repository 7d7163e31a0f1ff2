// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
)

var _ options.Completable = (*Options)(nil)

// Options 定义模型供应商配置。Embedding 与生成共用同一供应商。
type Options struct {
	// Provider 供应商名称（ollama, openai）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（OpenAI 兼容服务可选）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// EmbedModel 生成向量的模型。
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// ChatModel 生成回答的模型。
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Temperature 生成温度，0 使输出尽量确定。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// RequireReady 启动时探活失败是否拒绝启动。
	RequireReady bool `json:"require-ready" mapstructure:"require-ready"`

	// Breaker 熔断器配置。
	Breaker *BreakerOptions `json:"breaker" mapstructure:"breaker"`
}

// BreakerOptions 熔断器配置。
type BreakerOptions struct {
	// MaxFailures 连续失败多少次后打开熔断器，0 表示关闭熔断。
	MaxFailures int `json:"max-failures" mapstructure:"max-failures"`
	// Cooldown 熔断打开后的冷却时间。
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown"`
}

// NewOptions 创建默认模型供应商配置。
func NewOptions() *Options {
	return &Options{
		Provider:     "ollama",
		BaseURL:      "http://localhost:11434",
		EmbedModel:   "nomic-embed-text",
		ChatModel:    "llama3",
		Timeout:      120 * time.Second,
		Temperature:  0,
		RequireReady: true,
		Breaker: &BreakerOptions{
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		},
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *Options) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.EmbedModel,
		"chat_model":  o.ChatModel,
		"timeout":     o.Timeout,
		"temperature": o.Temperature,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Model provider (ollama, openai).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Model API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Model API key (OpenAI-compatible servers only).")
	fs.StringVar(&o.EmbedModel, p+"embed-model", o.EmbedModel, "Embedding model name.")
	fs.StringVar(&o.ChatModel, p+"chat-model", o.ChatModel, "Chat/generation model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-request model timeout.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Generation temperature.")
	fs.BoolVar(&o.RequireReady, p+"require-ready", o.RequireReady, "Refuse to start when the model server cannot be reached.")

	if o.Breaker == nil {
		o.Breaker = &BreakerOptions{}
	}
	fs.IntVar(&o.Breaker.MaxFailures, p+"breaker.max-failures", o.Breaker.MaxFailures,
		"Consecutive model failures that open the circuit breaker (0 disables it).")
	fs.DurationVar(&o.Breaker.Cooldown, p+"breaker.cooldown", o.Breaker.Cooldown,
		"How long an open circuit breaker fails fast before probing again.")
}

// Validate validates the LLM provider options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Provider {
	case "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported (ollama, openai)", o.Provider))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("llm.base-url is required"))
	}
	if o.EmbedModel == "" {
		errs = append(errs, fmt.Errorf("llm.embed-model is required"))
	}
	if o.ChatModel == "" {
		errs = append(errs, fmt.Errorf("llm.chat-model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	if o.Temperature < 0 {
		errs = append(errs, fmt.Errorf("llm.temperature must not be negative"))
	}
	if o.Breaker != nil && o.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("llm.breaker.max-failures must not be negative"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *Options) Complete() error {
	if o.Breaker == nil {
		o.Breaker = &BreakerOptions{}
	}
	if o.Breaker.Cooldown <= 0 {
		o.Breaker.Cooldown = 30 * time.Second
	}
	return nil
}
