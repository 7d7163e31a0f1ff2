// Package ingest builds the knowledge base from the topic corpus.
package ingest

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	medrag "github.com/kart-io/medrag/internal/medrag"
	"github.com/kart-io/medrag/internal/medrag/biz"
	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/component/redis"
	"github.com/kart-io/medrag/pkg/infra/pool"
	cacheopts "github.com/kart-io/medrag/pkg/options/cache"
	llmopts "github.com/kart-io/medrag/pkg/options/llm"
	logopts "github.com/kart-io/medrag/pkg/options/logger"
	storeopts "github.com/kart-io/medrag/pkg/options/store"
)

// Name is the name of the ingestion command.
const Name = "medrag-ingest"

// Config contains ingestion-related configurations.
type Config struct {
	LogOptions    *logopts.Options
	LLMOptions    *llmopts.Options
	StoreOptions  *storeopts.Options
	CacheOptions  *cacheopts.Options
	IngestOptions *Options
}

// Run performs one clear-then-rebuild ingestion. In dry-run mode neither the
// store nor the model server is touched.
func (cfg *Config) Run(ctx context.Context) (*biz.IngestReport, error) {
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Flush() }()

	opts := cfg.IngestOptions
	topics, err := biz.LoadTopicMap(opts.TopicsFile)
	if err != nil {
		return nil, err
	}
	logger.Infow("Topic map loaded", "file", opts.TopicsFile, "topics", topics.Len())

	splitter, err := biz.NewSplitter(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	indexerConfig := &biz.IndexerConfig{
		TopicsFile:     opts.TopicsFile,
		CorpusDir:      opts.CorpusDir,
		Extensions:     opts.Extensions,
		StoreDir:       cfg.StoreOptions.Dir,
		Collection:     cfg.StoreOptions.Collection,
		EmbeddingModel: cfg.LLMOptions.EmbedModel,
		BatchSize:      opts.BatchSize,
		DryRun:         opts.DryRun,
	}

	if opts.DryRun {
		return biz.NewIndexer(nil, nil, splitter, topics, nil, indexerConfig).Run(ctx)
	}

	// 先探活再清库，模型不可用时保留现有知识库
	models, err := medrag.NewModels(cfg.LLMOptions)
	if err != nil {
		return nil, err
	}
	if err := models.Ping(ctx, cfg.LLMOptions.EmbedModel); err != nil {
		return nil, fmt.Errorf("model server not ready: %w", err)
	}

	var rdb *redis.Client
	if cfg.CacheOptions.Enabled() {
		client, err := redis.New(ctx, cfg.CacheOptions.Redis)
		if err != nil {
			logger.Warnw("failed to connect to redis, caches disabled", "error", err.Error())
		} else {
			defer func() { _ = client.Close() }()
			rdb = client
			if cfg.CacheOptions.Embeddings.Enabled {
				models.WithEmbeddingCache(client.Client(), cfg.CacheOptions.Embeddings)
			}
		}
	}

	vectorStore, err := store.Open(ctx, cfg.StoreOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := vectorStore.Close(); err != nil {
			logger.Warnw("failed to close vector store", "error", err.Error())
		}
	}()

	workers, err := pool.NewPool("ingest-embed", &pool.Config{
		Capacity:       opts.Workers,
		ExpiryDuration: pool.DefaultPoolConfig().ExpiryDuration,
	})
	if err != nil {
		return nil, err
	}
	defer workers.Release()

	report, err := biz.NewIndexer(vectorStore, models.Embedder, splitter, topics, workers, indexerConfig).Run(ctx)
	stats := workers.Stats()
	logger.Infow("Embedding pool finished",
		"capacity", workers.Cap(),
		"submitted", stats.SubmittedTasks,
		"completed", stats.CompletedTasks,
		"failed", stats.FailedTasks,
		"rejected", stats.RejectedTasks,
	)
	if err != nil {
		return nil, err
	}

	// 重建后旧的预测缓存不会再命中
	if rdb != nil && cfg.CacheOptions.Predictions.Enabled {
		cache := biz.NewPredictionCache(rdb.Client(), &biz.PredictionCacheConfig{
			TTL:       cfg.CacheOptions.Predictions.TTL,
			KeyPrefix: cfg.CacheOptions.Predictions.KeyPrefix,
		})
		n, err := cache.Clear(ctx)
		if err != nil {
			logger.Warnw("failed to clear prediction cache", "error", err.Error())
		} else {
			logger.Infow("Prediction cache cleared", "entries", n)
		}
	}
	return report, nil
}
