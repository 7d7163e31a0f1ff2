package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/infra/pool"
	"github.com/kart-io/medrag/pkg/llm"
)

// IndexerConfig 导入配置。
type IndexerConfig struct {
	// TopicsFile 主题映射文件路径。
	TopicsFile string
	// CorpusDir 语料根目录，每个子目录对应一个主题。
	CorpusDir string
	// Extensions 参与导入的文件扩展名。
	Extensions []string
	// StoreDir 存储目录，manifest 写在这里。
	StoreDir string
	// Collection 集合名称，记录在 manifest 中。
	Collection string
	// EmbeddingModel 嵌入模型名称，记录在 manifest 中。
	EmbeddingModel string
	// BatchSize 每次嵌入请求的切片数。
	BatchSize int
	// DryRun 只切分并报告，不嵌入也不写库。
	DryRun bool
}

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	RunID           string        `json:"run_id"`
	DryRun          bool          `json:"dry_run"`
	TopicsProcessed int           `json:"topics_processed"`
	SkippedFolders  []string      `json:"skipped_folders,omitempty"`
	EmptyFolders    []string      `json:"empty_folders,omitempty"`
	Documents       int           `json:"documents"`
	Chunks          int           `json:"chunks"`
	Dimension       int           `json:"dimension"`
	Stored          int64         `json:"stored"`
	Duration        time.Duration `json:"duration"`
}

// Indexer builds the knowledge base: split, embed, store, then mark it
// complete with a manifest.
type Indexer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	splitter *Splitter
	topics   *TopicMap
	pool     *pool.Pool
	config   *IndexerConfig
}

// NewIndexer 创建导入器实例。
func NewIndexer(
	vectorStore store.VectorStore,
	embedder llm.EmbeddingProvider,
	splitter *Splitter,
	topics *TopicMap,
	workers *pool.Pool,
	config *IndexerConfig,
) *Indexer {
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return &Indexer{
		store:    vectorStore,
		embedder: embedder,
		splitter: splitter,
		topics:   topics,
		pool:     workers,
		config:   config,
	}
}

// SplitDocuments splits documents in order and assigns record ids from 1.
func (ix *Indexer) SplitDocuments(docs []*Document) []*store.Record {
	var records []*store.Record
	for _, doc := range docs {
		for _, text := range ix.splitter.Split(doc.Content) {
			records = append(records, &store.Record{
				ID: int64(len(records) + 1),
				Chunk: store.Chunk{
					Text:       text,
					SourceFile: doc.FileName,
					TopicName:  doc.TopicName,
					TopicID:    doc.TopicID,
				},
			})
		}
	}
	return records
}

// Run executes one clear-then-rebuild ingestion.
func (ix *Indexer) Run(ctx context.Context) (*IngestReport, error) {
	started := time.Now()
	report := &IngestReport{
		RunID:  store.NewRunID(),
		DryRun: ix.config.DryRun,
	}
	logger.Infow("ingestion started",
		"run_id", report.RunID,
		"corpus", ix.config.CorpusDir,
		"dry_run", ix.config.DryRun,
	)

	// 先扫描切分，配置错误不能波及已有知识库
	docs, corpus, err := ScanCorpus(ix.config.CorpusDir, ix.topics, ix.config.Extensions)
	if err != nil {
		return nil, err
	}
	report.TopicsProcessed = corpus.TopicsProcessed
	report.SkippedFolders = corpus.SkippedFolders
	report.EmptyFolders = corpus.EmptyFolders
	report.Documents = corpus.Documents

	records := ix.SplitDocuments(docs)
	report.Chunks = len(records)
	if len(records) == 0 {
		return nil, errors.ErrNoChunks.WithMessagef("no chunks produced from %s", ix.config.CorpusDir)
	}
	logger.Infow("corpus split",
		"topics", report.TopicsProcessed,
		"documents", report.Documents,
		"chunks", report.Chunks,
	)

	if ix.config.DryRun {
		report.Duration = time.Since(started)
		return report, nil
	}

	// 删除完成标记后再清库，之后的失败会让服务端拒绝不完整的知识库
	if err := store.RemoveManifest(ix.config.StoreDir); err != nil {
		return nil, errors.ErrIngestionFailed.WithCause(err)
	}
	if err := ix.store.Reset(ctx); err != nil {
		return nil, err
	}
	logger.Infow("cleared existing knowledge base", "store", ix.store.Name())

	if err := ix.embedRecords(ctx, records); err != nil {
		return nil, err
	}
	report.Dimension = len(records[0].Embedding)

	if err := ix.store.Insert(ctx, records); err != nil {
		return nil, err
	}
	stored, err := ix.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	report.Stored = stored
	if stored != int64(len(records)) {
		return nil, errors.ErrIngestionFailed.WithMessagef("stored %d records, expected %d", stored, len(records))
	}

	err = store.WriteManifest(ix.config.StoreDir, &store.Manifest{
		RunID:          report.RunID,
		Backend:        ix.store.Name(),
		Collection:     ix.config.Collection,
		EmbeddingModel: ix.config.EmbeddingModel,
		Dimension:      report.Dimension,
		ChunkSize:      ix.splitter.ChunkSize(),
		ChunkOverlap:   ix.splitter.ChunkOverlap(),
		Topics:         report.TopicsProcessed,
		Documents:      report.Documents,
		Chunks:         report.Chunks,
		StartedAt:      started.UTC(),
		CompletedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.ErrIngestionFailed.WithCause(err)
	}

	report.Duration = time.Since(started)
	logger.Infow("ingestion complete",
		"run_id", report.RunID,
		"chunks", report.Chunks,
		"dimension", report.Dimension,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// embedRecords embeds records in batches on the worker pool. Each batch
// writes into its own slots, so record order is preserved.
func (ix *Indexer) embedRecords(ctx context.Context, records []*store.Record) error {
	size := ix.config.BatchSize
	batches := (len(records) + size - 1) / size

	err := ix.pool.Go(ctx, batches, func(ctx context.Context, i int) error {
		start := i * size
		end := min(start+size, len(records))

		texts := make([]string, end-start)
		for j, r := range records[start:end] {
			texts[j] = r.Text
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return errors.ErrIngestionFailed.WithMessagef("batch %d: got %d embeddings for %d chunks", i, len(vectors), len(texts))
		}
		for j, v := range vectors {
			records[start+j].Embedding = v
		}
		logger.Debugw("embedded batch", "batch", i+1, "of", batches, "chunks", len(texts))
		return nil
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrModelUnavailable.Code) || errors.IsCode(err, errors.ErrIngestionFailed.Code) {
			return err
		}
		return errors.ErrIngestionFailed.WithCause(fmt.Errorf("embed chunks: %w", err))
	}

	dim := len(records[0].Embedding)
	for _, r := range records {
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			return errors.ErrIngestionFailed.WithMessagef("record %d has embedding dimension %d, expected %d", r.ID, len(r.Embedding), dim)
		}
	}
	return nil
}
