package medrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/medrag/internal/medrag/metrics"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/medrag/pkg/llm/ollama"
	_ "github.com/kart-io/medrag/pkg/llm/openai"
	"github.com/kart-io/medrag/pkg/llm/resilience"
	cacheopts "github.com/kart-io/medrag/pkg/options/cache"
	llmopts "github.com/kart-io/medrag/pkg/options/llm"
)

// pingTimeout bounds the startup readiness check.
const pingTimeout = 10 * time.Second

// Models holds the embedding and generation clients shared by ingestion
// and inference.
type Models struct {
	Embedder llm.EmbeddingProvider
	Chat     llm.ChatProvider

	provider llm.Provider
	opts     *llmopts.Options
	breakers []*resilience.CircuitBreaker
}

// NewModels builds the configured provider. With a breaker configured both
// directions are wrapped independently, so an embedding outage does not
// short-circuit generation and vice versa.
func NewModels(opts *llmopts.Options) (*Models, error) {
	provider, err := llm.NewProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model provider: %w", err)
	}

	m := &Models{
		Embedder: provider,
		Chat:     provider,
		provider: provider,
		opts:     opts,
	}
	logger.Infow("Model provider initialized",
		"provider", opts.Provider,
		"base_url", opts.BaseURL,
		"embed_model", opts.EmbedModel,
		"chat_model", opts.ChatModel,
	)
	return m, nil
}

// WithEmbeddingCache puts a Redis cache in front of the embedder.
// It must run before WithBreakers so cache hits bypass the breaker.
func (m *Models) WithEmbeddingCache(rdb *goredis.Client, opts *cacheopts.EntryOptions) *Models {
	m.Embedder = llm.NewCachedEmbeddingProvider(m.Embedder, rdb, m.opts.EmbedModel, &llm.EmbeddingCacheConfig{
		TTL:       opts.TTL,
		KeyPrefix: opts.KeyPrefix,
	})
	logger.Infow("Embedding cache enabled", "ttl", opts.TTL, "key_prefix", opts.KeyPrefix)
	return m
}

// WithBreakers wraps both clients in circuit breakers, when configured.
func (m *Models) WithBreakers() *Models {
	b := m.opts.Breaker
	if b == nil || b.MaxFailures <= 0 {
		logger.Info("Model circuit breaker disabled")
		return m
	}

	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.MaxFailures = b.MaxFailures
	if b.Cooldown > 0 {
		cfg.Timeout = b.Cooldown
	}

	embed := resilience.NewResilientEmbeddingProvider(m.Embedder, cfg)
	chat := resilience.NewResilientChatProvider(m.Chat, cfg)
	m.Embedder, m.Chat = embed, chat
	m.breakers = append(m.breakers, embed.CircuitBreaker(), chat.CircuitBreaker())
	return m
}

// Watch exports the breaker states.
func (m *Models) Watch(mt *metrics.Metrics) {
	for _, cb := range m.breakers {
		mt.WatchBreaker(cb)
	}
}

// Ping checks the model server. When the provider can list its models,
// every non-empty required model must be installed. Providers without
// a health endpoint pass.
func (m *Models) Ping(ctx context.Context, required ...string) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	lister, ok := m.provider.(llm.ModelLister)
	if !ok {
		if p, ok := m.provider.(llm.Pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}

	installed, err := lister.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, name := range required {
		if name == "" {
			continue
		}
		if !llm.HasModel(installed, name) {
			return errors.ErrModelUnavailable.WithMessagef("model %q is not installed on %s", name, m.opts.BaseURL)
		}
	}
	return nil
}
