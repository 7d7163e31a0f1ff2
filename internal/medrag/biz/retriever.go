package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/metrics"
	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/llm"
)

// DefaultTopK 默认检索条数。
const DefaultTopK = 5

// Retriever 负责将查询向量化并检索最相近的切片。
type Retriever struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	topK     int
	metrics  *metrics.Metrics
}

// NewRetriever 创建检索器实例。topK <= 0 时使用 DefaultTopK。
func NewRetriever(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, topK int, m *metrics.Metrics) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		store:    vectorStore,
		embedder: embedder,
		topK:     topK,
		metrics:  m,
	}
}

// TopK returns the number of chunks returned per query.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve embeds query and returns the top-K chunks by L2 distance.
// Ties are ordered by record id.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*store.Hit, error) {
	start := time.Now()
	vec, err := r.embedder.EmbedSingle(ctx, query)
	r.metrics.RecordModelCall(metrics.ModelEmbed, err)
	r.metrics.ObserveStage(metrics.StageEmbed, start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	hits, err := r.store.Search(ctx, vec, r.topK)
	r.metrics.ObserveStage(metrics.StageRetrieve, start)
	if err != nil {
		return nil, errors.ErrRetrievalFailed.WithCause(fmt.Errorf("search %s store: %w", r.store.Name(), err))
	}

	logger.Debugw("retrieved context", "hits", len(hits), "top_k", r.topK)
	return hits, nil
}
