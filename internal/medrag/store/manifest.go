package store

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// ManifestFile is the completion marker written after a successful ingestion.
const ManifestFile = "manifest.json"

// Manifest describes a completed ingestion run.
type Manifest struct {
	RunID          string    `json:"run_id"`
	Backend        string    `json:"backend"`
	Collection     string    `json:"collection"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Topics         int       `json:"topics"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewRunID returns a new sortable run id.
func NewRunID() string {
	return ulid.Make().String()
}

// ManifestPath returns the manifest location inside dir.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestFile)
}

// WriteManifest writes the manifest atomically (temp file then rename).
func WriteManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ManifestFile+".*")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return os.Rename(tmp.Name(), ManifestPath(dir))
}

// ReadManifest loads the manifest. A missing or unreadable manifest means the
// knowledge base was never completed and yields ErrKnowledgeBaseIncomplete.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dir))
	if err != nil {
		return nil, errors.ErrKnowledgeBaseIncomplete.WithCause(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ErrKnowledgeBaseIncomplete.WithCause(fmt.Errorf("decode manifest: %w", err))
	}
	if m.CompletedAt.IsZero() || m.Chunks <= 0 {
		return nil, errors.ErrKnowledgeBaseIncomplete.WithMessage("manifest does not describe a completed run")
	}
	return &m, nil
}

// RemoveManifest deletes the manifest, ignoring a missing file.
func RemoveManifest(dir string) error {
	err := os.Remove(ManifestPath(dir))
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove manifest: %w", err)
	}
	return nil
}
