// Package llm 提供统一的 LLM 供应商抽象层。
// 支持 Embedding 和生成使用不同供应商的模型。
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，结果顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义文本生成供应商接口。
type ChatProvider interface {
	// Generate 根据提示生成文本（单轮）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Pinger 由能够探活的供应商实现。
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelLister 由能够列出已安装模型的供应商实现。
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// HasModel reports whether name is among the installed models. A name
// without a tag matches the ":latest" tag.
func HasModel(installed []string, name string) bool {
	want := withDefaultTag(name)
	for _, m := range installed {
		if withDefaultTag(m) == want {
			return true
		}
	}
	return false
}

func withDefaultTag(name string) string {
	name = strings.TrimSpace(name)
	base := name[strings.LastIndex(name, "/")+1:]
	if !strings.Contains(base, ":") {
		return name + ":latest"
	}
	return name
}

// Provider 同时支持 Embedding 和生成的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	providers: make(map[string]ProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// RegisterProvider 注册供应商工厂。同名注册会覆盖。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// NewProvider 根据名称创建供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (registered: %s)", name, strings.Join(ListProviders(), ", "))
	}

	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称（已排序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
