package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/kart-io/logger"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kart-io/medrag/pkg/errors"
	sqliteopts "github.com/kart-io/medrag/pkg/options/sqlitevec"
)

// BackendSQLiteVec is the name of the embedded backend.
const BackendSQLiteVec = "sqlite-vec"

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	source_file TEXT NOT NULL,
	topic_name TEXT NOT NULL,
	topic_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_topic ON chunks(topic_id);
`

// vec0 默认使用 L2 距离
const vecSchemaTmpl = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
	chunk_id INTEGER PRIMARY KEY,
	embedding FLOAT[%d]
);
`

// SQLiteStore is a VectorStore backed by a single SQLite file with the
// sqlite-vec extension.
type SQLiteStore struct {
	db   *sql.DB
	path string

	// 写入路径串行化，读取不加锁
	mu sync.Mutex
}

var _ VectorStore = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database under dir.
func OpenSQLite(ctx context.Context, dir string, opts *sqliteopts.Options) (*SQLiteStore, error) {
	if opts == nil {
		opts = sqliteopts.NewOptions()
	}

	if !sqliteopts.SupportedJournalMode(opts.JournalMode) {
		return nil, errors.ErrConfig.WithMessagef("sqlite journal mode %q is not supported", opts.JournalMode)
	}

	path := opts.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("create store dir: %w", err))
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode="+strings.ToUpper(strings.TrimSpace(opts.JournalMode))); err != nil {
		_ = db.Close()
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("set journal mode: %w", err))
	}
	if _, err := db.ExecContext(ctx, chunksSchema); err != nil {
		_ = db.Close()
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("migrate: %w", err))
	}

	var version string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&version); err != nil {
		_ = db.Close()
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("sqlite-vec not available: %w", err))
	}
	logger.Debugw("sqlite-vec store opened", "path", path, "vec_version", version)

	return &SQLiteStore{db: db, path: path}, nil
}

// Name returns the backend name.
func (s *SQLiteStore) Name() string { return BackendSQLiteVec }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Reset drops all chunks and vectors and reclaims the file space.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []string{
		"DROP TABLE IF EXISTS vec_chunks",
		"DROP TABLE IF EXISTS chunks",
		chunksSchema,
		"VACUUM",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.ErrVectorStore.WithCause(fmt.Errorf("reset: %w", err))
		}
	}
	return nil
}

// Insert writes records in one transaction. The vector table is created on
// first use with the dimension of the records.
func (s *SQLiteStore) Insert(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	dim, ok := dimensionOf(records)
	if !ok {
		return errors.ErrVectorStore.WithMessage("records must share one non-zero embedding dimension")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(vecSchemaTmpl, dim)); err != nil {
		return errors.ErrVectorStore.WithCause(fmt.Errorf("create vector table: %w", err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, text, source_file, topic_name, topic_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	defer vecStmt.Close()

	for _, r := range records {
		if _, err := chunkStmt.ExecContext(ctx, r.ID, r.Text, r.SourceFile, r.TopicName, r.TopicID); err != nil {
			return errors.ErrVectorStore.WithCause(fmt.Errorf("insert chunk %d: %w", r.ID, err))
		}
		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return errors.ErrVectorStore.WithCause(fmt.Errorf("serialize embedding %d: %w", r.ID, err))
		}
		if _, err := vecStmt.ExecContext(ctx, r.ID, blob); err != nil {
			return errors.ErrVectorStore.WithCause(fmt.Errorf("insert vector %d: %w", r.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	return nil
}

// Search runs a KNN query against the vec0 table.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]*Hit, error) {
	if topK <= 0 {
		return []*Hit{}, nil
	}
	exists, err := s.hasVectorTable(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []*Hit{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.text, c.source_file, c.topic_name, c.topic_id, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, topK)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("knn query: %w", err))
	}
	defer rows.Close()

	hits := make([]*Hit, 0, topK)
	for rows.Next() {
		var (
			h        Hit
			distance float64
		)
		if err := rows.Scan(&h.ID, &h.Text, &h.SourceFile, &h.TopicName, &h.TopicID, &distance); err != nil {
			return nil, errors.ErrVectorStore.WithCause(err)
		}
		h.Distance = float32(distance)
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	sortHits(hits)
	return hits, nil
}

// Count returns the number of stored vectors.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	exists, err := s.hasVectorTable(ctx)
	if err != nil || !exists {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vec_chunks").Scan(&n); err != nil {
		return 0, errors.ErrVectorStore.WithCause(err)
	}
	return n, nil
}

// Chunks returns every stored chunk ordered by id.
func (s *SQLiteStore) Chunks(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, source_file, topic_name, topic_id FROM chunks ORDER BY id`)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Text, &r.SourceFile, &r.TopicName, &r.TopicID); err != nil {
			return nil, errors.ErrVectorStore.WithCause(err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) hasVectorTable(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'vec_chunks'").Scan(&n)
	if err != nil {
		return false, errors.ErrVectorStore.WithCause(err)
	}
	return n > 0, nil
}
