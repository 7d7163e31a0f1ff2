package store

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/medrag/pkg/component/milvus"
	"github.com/kart-io/medrag/pkg/errors"
)

// BackendMilvus is the name of the Milvus backend.
const BackendMilvus = "milvus"

const (
	fieldContent    = "content"
	fieldSourceFile = "source_file"
	fieldTopicName  = "topic_name"
	fieldTopicID    = "topic_id"

	milvusInsertBatch = 500
)

// MilvusStore is a VectorStore backed by one Milvus collection.
type MilvusStore struct {
	client     *milvus.Client
	collection string
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore wraps a connected client.
func NewMilvusStore(client *milvus.Client, collection string) *MilvusStore {
	return &MilvusStore{client: client, collection: collection}
}

// Name returns the backend name.
func (s *MilvusStore) Name() string { return BackendMilvus }

// Reset drops the collection. It is recreated by the next Insert.
func (s *MilvusStore) Reset(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DropCollection(ctx, s.collection); err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	return nil
}

// Insert creates the collection if needed, inserts in batches and flushes.
func (s *MilvusStore) Insert(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	dim, ok := dimensionOf(records)
	if !ok {
		return errors.ErrVectorStore.WithMessage("records must share one non-zero embedding dimension")
	}

	err := s.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "medical topic chunks",
		Dimension:   dim,
		MetaFields: []milvus.MetaField{
			{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: 8192},
			{Name: fieldSourceFile, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: fieldTopicName, DataType: entity.FieldTypeVarChar, MaxLen: 256},
			{Name: fieldTopicID, DataType: entity.FieldTypeInt64},
		},
	})
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}

	for start := 0; start < len(records); start += milvusInsertBatch {
		end := min(start+milvusInsertBatch, len(records))
		if err := s.client.Insert(ctx, s.collection, toInsertData(records[start:end])); err != nil {
			return errors.ErrVectorStore.WithCause(fmt.Errorf("batch %d-%d: %w", start, end, err))
		}
	}

	if err := s.client.Flush(ctx, s.collection); err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	return nil
}

func toInsertData(records []*Record) *milvus.InsertData {
	data := &milvus.InsertData{
		IDs:        make([]int64, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadata: map[string][]any{
			fieldContent:    make([]any, len(records)),
			fieldSourceFile: make([]any, len(records)),
			fieldTopicName:  make([]any, len(records)),
			fieldTopicID:    make([]any, len(records)),
		},
	}
	for i, r := range records {
		data.IDs[i] = r.ID
		data.Embeddings[i] = r.Embedding
		data.Metadata[fieldContent][i] = r.Text
		data.Metadata[fieldSourceFile][i] = r.SourceFile
		data.Metadata[fieldTopicName][i] = r.TopicName
		data.Metadata[fieldTopicID][i] = int64(r.TopicID)
	}
	return data
}

// Search returns the nearest records. Milvus reports L2 scores as distances.
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int) ([]*Hit, error) {
	if topK <= 0 {
		return []*Hit{}, nil
	}
	results, err := s.client.Search(ctx, s.collection, embedding, topK,
		[]string{fieldContent, fieldSourceFile, fieldTopicName, fieldTopicID})
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	hits := make([]*Hit, 0, len(results))
	for _, r := range results {
		h := &Hit{ID: r.ID, Distance: r.Score}
		h.Text, _ = r.Metadata[fieldContent].(string)
		h.SourceFile, _ = r.Metadata[fieldSourceFile].(string)
		h.TopicName, _ = r.Metadata[fieldTopicName].(string)
		if id, ok := r.Metadata[fieldTopicID].(int64); ok {
			h.TopicID = int(id)
		}
		hits = append(hits, h)
	}
	sortHits(hits)
	return hits, nil
}

// Count returns the collection row count, 0 when it does not exist.
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return 0, errors.ErrVectorStore.WithCause(err)
	}
	if !exists {
		return 0, nil
	}
	n, err := s.client.Count(ctx, s.collection)
	if err != nil {
		return 0, errors.ErrVectorStore.WithCause(err)
	}
	return n, nil
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Close(ctx)
}
