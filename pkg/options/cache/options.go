// Package cache provides cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
	redisopts "github.com/kart-io/medrag/pkg/options/redis"
)

var _ options.Completable = (*Options)(nil)

// Options 预测缓存与向量缓存配置，两者共用一个 Redis。
type Options struct {
	// Predictions 是否缓存预测结果。
	Predictions *EntryOptions `json:"predictions" mapstructure:"predictions"`

	// Embeddings 是否缓存查询向量。
	Embeddings *EntryOptions `json:"embeddings" mapstructure:"embeddings"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// EntryOptions 单类缓存配置。
type EntryOptions struct {
	// Enabled 是否启用。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewOptions 创建默认缓存配置，默认全部关闭。
func NewOptions() *Options {
	return &Options{
		Predictions: &EntryOptions{
			TTL:       1 * time.Hour,
			KeyPrefix: "medrag:predict:",
		},
		Embeddings: &EntryOptions{
			TTL:       24 * time.Hour,
			KeyPrefix: "medrag:emb:",
		},
		Redis: redisopts.NewOptions(),
	}
}

// Enabled reports whether any cache needs Redis.
func (o *Options) Enabled() bool {
	return o != nil && (o.Predictions.Enabled || o.Embeddings.Enabled)
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	o.Predictions.addFlags(fs, p+"predictions.", "prediction")
	o.Embeddings.addFlags(fs, p+"embeddings.", "query embedding")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, append(prefixes, "redis")...)
}

func (e *EntryOptions) addFlags(fs *pflag.FlagSet, p, what string) {
	fs.BoolVar(&e.Enabled, p+"enabled", e.Enabled, "Enable the "+what+" cache.")
	fs.DurationVar(&e.TTL, p+"ttl", e.TTL, "TTL of "+what+" cache entries.")
	fs.StringVar(&e.KeyPrefix, p+"key-prefix", e.KeyPrefix, "Key prefix of "+what+" cache entries.")
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	for name, e := range map[string]*EntryOptions{"predictions": o.Predictions, "embeddings": o.Embeddings} {
		if e.Enabled && e.TTL <= 0 {
			errs = append(errs, fmt.Errorf("cache.%s.ttl must be positive", name))
		}
	}
	if o.Enabled() && o.Redis != nil {
		errs = append(errs, o.Redis.Validate()...)
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	def := NewOptions()
	if o.Predictions == nil {
		o.Predictions = def.Predictions
	}
	if o.Embeddings == nil {
		o.Embeddings = def.Embeddings
	}
	if o.Redis == nil {
		o.Redis = def.Redis
	}
	return o.Redis.Complete()
}
