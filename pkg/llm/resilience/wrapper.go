package resilience

import (
	"context"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/llm"
)

// guard 通过熔断器执行调用，熔断打开时转换为模型不可用错误。
func guard(cb *CircuitBreaker, fn func() error) error {
	err := cb.Execute(fn)
	if err == ErrCircuitBreakerOpen {
		return errors.ErrModelUnavailable.WithCause(err)
	}
	return err
}

// ResilientEmbeddingProvider 带熔断保护的 Embedding Provider 包装器。
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	cb       *CircuitBreaker
}

// NewResilientEmbeddingProvider 创建带熔断保护的 Embedding Provider。
func NewResilientEmbeddingProvider(provider llm.EmbeddingProvider, cbConfig *CircuitBreakerConfig) *ResilientEmbeddingProvider {
	return &ResilientEmbeddingProvider{
		provider: provider,
		cb:       NewCircuitBreaker("embed", cbConfig),
	}
}

// Embed 为多个文本生成向量嵌入（带熔断）。
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := guard(r.cb, func() error {
		var err error
		result, err = r.provider.Embed(ctx, texts)
		return err
	})
	return result, err
}

// EmbedSingle 为单个文本生成向量嵌入（带熔断）。
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := guard(r.cb, func() error {
		var err error
		result, err = r.provider.EmbedSingle(ctx, text)
		return err
	})
	return result, err
}

// Name 返回供应商名称。
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name()
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ResilientChatProvider 带熔断保护的 Chat Provider 包装器。
type ResilientChatProvider struct {
	provider llm.ChatProvider
	cb       *CircuitBreaker
}

// NewResilientChatProvider 创建带熔断保护的 Chat Provider。
func NewResilientChatProvider(provider llm.ChatProvider, cbConfig *CircuitBreakerConfig) *ResilientChatProvider {
	return &ResilientChatProvider{
		provider: provider,
		cb:       NewCircuitBreaker("chat", cbConfig),
	}
}

// Generate 根据提示生成文本（带熔断）。
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var result string
	err := guard(r.cb, func() error {
		var err error
		result, err = r.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return result, err
}

// Ping 透传到底层供应商，不经过熔断器。
func (r *ResilientChatProvider) Ping(ctx context.Context) error {
	if p, ok := r.provider.(llm.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Name 返回供应商名称。
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name()
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (r *ResilientChatProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

var (
	_ llm.EmbeddingProvider = (*ResilientEmbeddingProvider)(nil)
	_ llm.ChatProvider      = (*ResilientChatProvider)(nil)
	_ llm.Pinger            = (*ResilientChatProvider)(nil)
)
