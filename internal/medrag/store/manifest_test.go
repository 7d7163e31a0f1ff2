package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
)

func TestManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	m := &Manifest{
		RunID:          NewRunID(),
		Backend:        BackendSQLiteVec,
		Collection:     "medical_topics",
		EmbeddingModel: "nomic-embed-text",
		Dimension:      768,
		ChunkSize:      1000,
		ChunkOverlap:   200,
		Topics:         2,
		Documents:      3,
		Chunks:         12,
		StartedAt:      now.Add(-time.Minute),
		CompletedAt:    now,
	}
	require.NoError(t, WriteManifest(dir, m))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, m.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, 12, got.Chunks)
	assert.True(t, m.CompletedAt.Equal(got.CompletedAt))

	require.NoError(t, RemoveManifest(dir))
	_, err = os.Stat(ManifestPath(dir))
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	require.NoError(t, RemoveManifest(dir))
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKnowledgeBaseIncomplete.Code))
}

func TestReadManifest_Incomplete(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(ManifestPath(dir), []byte(`{"run_id":"x","chunks":0}`), 0o644))

	_, err := ReadManifest(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKnowledgeBaseIncomplete.Code))
}

func TestReadManifest_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(ManifestPath(dir), []byte(`{not json`), 0o644))

	_, err := ReadManifest(dir)
	assert.True(t, errors.IsCode(err, errors.ErrKnowledgeBaseIncomplete.Code))
}

func TestNewRunID_Unique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
