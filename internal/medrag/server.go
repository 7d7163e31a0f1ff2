// Package medrag assembles the statement classification service.
package medrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/biz"
	"github.com/kart-io/medrag/internal/medrag/handler"
	"github.com/kart-io/medrag/internal/medrag/metrics"
	"github.com/kart-io/medrag/internal/medrag/router"
	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/component/redis"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/infra/app"
	"github.com/kart-io/medrag/pkg/infra/server"
	httpserver "github.com/kart-io/medrag/pkg/infra/server/http"
	cacheopts "github.com/kart-io/medrag/pkg/options/cache"
	httpopts "github.com/kart-io/medrag/pkg/options/http"
	llmopts "github.com/kart-io/medrag/pkg/options/llm"
	logopts "github.com/kart-io/medrag/pkg/options/logger"
	ragopts "github.com/kart-io/medrag/pkg/options/rag"
	storeopts "github.com/kart-io/medrag/pkg/options/store"
)

// Name is the name of the application.
const Name = "medrag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions  *httpopts.Options
	LogOptions   *logopts.Options
	LLMOptions   *llmopts.Options
	RAGOptions   *ragopts.Options
	StoreOptions *storeopts.Options
	CacheOptions *cacheopts.Options
}

// Server represents the medrag server.
type Server struct {
	http            *httpserver.Server
	store           store.VectorStore
	redis           *redis.Client
	shutdownTimeout time.Duration
}

// NewServer initializes and returns a new Server instance. It refuses to
// start without a complete knowledge base.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting medrag service...", "version", app.GetVersion())

	// 2. 加载主题映射
	topics, err := biz.LoadTopicMap(cfg.RAGOptions.TopicsFile)
	if err != nil {
		return nil, err
	}
	logger.Infow("Topic map loaded", "file", cfg.RAGOptions.TopicsFile, "topics", topics.Len())

	// 3. 检查知识库 manifest
	manifest, err := cfg.checkManifest()
	if err != nil {
		return nil, err
	}

	// 4. 打开向量存储
	vectorStore, err := store.Open(ctx, cfg.StoreOptions)
	if err != nil {
		return nil, err
	}
	s := &Server{store: vectorStore, shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout}

	count, err := vectorStore.Count(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	if count != int64(manifest.Chunks) {
		s.close()
		return nil, errors.ErrKnowledgeBaseIncomplete.WithMessagef(
			"store holds %d chunks, manifest records %d; run ingestion again", count, manifest.Chunks)
	}

	m := metrics.New()
	m.SetChunks(count)
	logger.Infow("Knowledge base ready",
		"backend", vectorStore.Name(),
		"chunks", count,
		"run_id", manifest.RunID,
		"embedding_model", manifest.EmbeddingModel,
	)

	// 5. 初始化 Redis（可选）
	cfg.connectRedis(ctx, s)

	// 6. 初始化模型
	models, err := NewModels(cfg.LLMOptions)
	if err != nil {
		s.close()
		return nil, err
	}
	if s.redis != nil && cfg.CacheOptions.Embeddings.Enabled {
		models.WithEmbeddingCache(s.redis.Client(), cfg.CacheOptions.Embeddings)
	}
	models.WithBreakers().Watch(m)

	if err := models.Ping(ctx, cfg.LLMOptions.EmbedModel, cfg.LLMOptions.ChatModel); err != nil {
		if cfg.LLMOptions.RequireReady {
			s.close()
			return nil, fmt.Errorf("model server not ready: %w", err)
		}
		logger.Warnw("model server not reachable, predictions will fail until it is", "error", err.Error())
	}

	// 7. 初始化 Biz 层
	var predictionCache *biz.PredictionCache
	if s.redis != nil && cfg.CacheOptions.Predictions.Enabled {
		predictionCache = biz.NewPredictionCache(s.redis.Client(), &biz.PredictionCacheConfig{
			TTL:       cfg.CacheOptions.Predictions.TTL,
			KeyPrefix: cfg.CacheOptions.Predictions.KeyPrefix,
			Namespace: manifest.RunID + "|" + cfg.LLMOptions.ChatModel,
		})
		logger.Infow("Prediction cache enabled", "ttl", cfg.CacheOptions.Predictions.TTL)
	}

	retriever := biz.NewRetriever(vectorStore, models.Embedder, cfg.RAGOptions.TopK, m)
	predictor := biz.NewPredictor(retriever, models.Chat, topics, predictionCache, m, &biz.PredictorConfig{
		ParseRetry: cfg.RAGOptions.ParseRetry,
	})

	// 8. 初始化 Handler 与路由
	h := handler.NewHandler(predictor, m, handler.Config{
		Name:           Name,
		Version:        app.GetVersion(),
		PredictTimeout: cfg.RAGOptions.PredictTimeout,
	})
	s.http = httpserver.NewServer(cfg.HTTPOptions)
	router.Register(s.http.Engine(), h, m)

	logger.Info("medrag service is ready")
	return s, nil
}

// checkManifest loads the completion marker and compares it with the
// running configuration.
func (cfg *Config) checkManifest() (*store.Manifest, error) {
	manifest, err := store.ReadManifest(cfg.StoreOptions.Dir)
	if err != nil {
		return nil, err
	}

	if manifest.Backend != "" && manifest.Backend != cfg.StoreOptions.Backend {
		return nil, errors.ErrKnowledgeBaseIncomplete.WithMessagef(
			"knowledge base was built for backend %q, configured backend is %q",
			manifest.Backend, cfg.StoreOptions.Backend)
	}

	if manifest.EmbeddingModel != cfg.LLMOptions.EmbedModel {
		if cfg.RAGOptions.StrictModelCheck {
			return nil, errors.ErrConfig.WithMessagef(
				"knowledge base was embedded with %q, configured embedding model is %q",
				manifest.EmbeddingModel, cfg.LLMOptions.EmbedModel)
		}
		logger.Warnw("embedding model differs from the one used at ingestion, retrieval quality may suffer",
			"ingested_with", manifest.EmbeddingModel,
			"configured", cfg.LLMOptions.EmbedModel,
		)
	}
	return manifest, nil
}

// connectRedis 缓存启用时连接 Redis，连接失败只告警并关闭缓存。
func (cfg *Config) connectRedis(ctx context.Context, s *Server) {
	if !cfg.CacheOptions.Enabled() {
		logger.Info("Cache is disabled")
		return
	}

	client, err := redis.New(ctx, cfg.CacheOptions.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		return
	}
	s.redis = client
	logger.Infow("Redis cache initialized", "addr", cfg.CacheOptions.Redis.Addr())
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	if err := server.Serve(ctx, s.http, s.shutdownTimeout); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("medrag service stopped")
	return nil
}

func (s *Server) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warnw("failed to close vector store", "error", err.Error())
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = logger.Flush()
}
