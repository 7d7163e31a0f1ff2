package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
	sqliteopts "github.com/kart-io/medrag/pkg/options/sqlitevec"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), t.TempDir(), sqliteopts.NewOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rec(id int64, topic string, topicID int, vec ...float32) *Record {
	return &Record{
		ID: id,
		Chunk: Chunk{
			Text:       topic + " chunk",
			SourceFile: topic + ".md",
			TopicName:  topic,
			TopicID:    topicID,
		},
		Embedding: vec,
	}
}

func TestSQLiteStore_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteStore_InsertSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, []*Record{
		rec(1, "Sepsis", 0, 1, 0, 0),
		rec(2, "Sepsis", 0, 0.9, 0.1, 0),
		rec(3, "Pulmonary Embolism", 1, 0, 1, 0),
		rec(4, "Pulmonary Embolism", 1, 0, 0, 1),
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, int64(2), hits[1].ID)
	assert.Equal(t, "Sepsis", hits[0].TopicName)
	assert.Equal(t, "Sepsis.md", hits[0].SourceFile)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestSQLiteStore_TiesOrderedByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, []*Record{
		rec(7, "B", 1, 0, 1),
		rec(3, "A", 0, 0, 1),
		rec(5, "A", 0, 0, 1),
	}))

	for i := 0; i < 3; i++ {
		hits, err := s.Search(ctx, []float32{0, 1}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, []int64{3, 5, 7}, []int64{hits[0].ID, hits[1].ID, hits[2].ID})
	}
}

func TestSQLiteStore_Reset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, []*Record{rec(1, "A", 0, 1, 2, 3)}))
	require.NoError(t, s.Reset(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	chunks, err := s.Chunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// 重建后允许不同维度
	require.NoError(t, s.Insert(ctx, []*Record{rec(1, "A", 0, 1, 2)}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStore_InsertRejectsMixedDimensions(t *testing.T) {
	s := openTestStore(t)

	err := s.Insert(context.Background(), []*Record{
		rec(1, "A", 0, 1, 2),
		rec(2, "A", 0, 1, 2, 3),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrVectorStore.Code))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenSQLite(ctx, dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, []*Record{rec(1, "A", 0, 1, 0), rec(2, "B", 1, 0, 1)}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, dir, nil)
	require.NoError(t, err)
	defer s.Close()

	chunks, err := s.Chunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "B", chunks[1].TopicName)
	assert.Equal(t, 1, chunks[1].TopicID)
}

func TestSQLiteStore_SearchUnderEveryJournalMode(t *testing.T) {
	for _, mode := range sqliteopts.JournalModes {
		for _, conns := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/conns=%d", mode, conns), func(t *testing.T) {
				opts := sqliteopts.NewOptions()
				opts.JournalMode = mode
				opts.MaxOpenConns = conns
				ctx := context.Background()

				s, err := OpenSQLite(ctx, t.TempDir(), opts)
				require.NoError(t, err)
				defer s.Close()

				require.NoError(t, s.Insert(ctx, []*Record{
					rec(1, "Sepsis", 0, 1, 0, 0),
					rec(2, "Pulmonary Embolism", 1, 0, 1, 0),
				}))
				hits, err := s.Search(ctx, []float32{1, 0, 0}, 5)
				require.NoError(t, err)
				require.Len(t, hits, 2)
				assert.Equal(t, int64(1), hits[0].ID)
			})
		}
	}
}

func TestOpenSQLite_RejectsWAL(t *testing.T) {
	opts := sqliteopts.NewOptions()
	opts.JournalMode = "wal"

	_, err := OpenSQLite(context.Background(), t.TempDir(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig.Code))
}
