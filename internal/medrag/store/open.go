package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/pkg/component/milvus"
	"github.com/kart-io/medrag/pkg/errors"
	storeopts "github.com/kart-io/medrag/pkg/options/store"
)

// Open connects the configured backend.
func Open(ctx context.Context, opts *storeopts.Options) (VectorStore, error) {
	switch opts.Backend {
	case storeopts.BackendSQLiteVec:
		s, err := OpenSQLite(ctx, opts.Dir, opts.SQLite)
		if err != nil {
			return nil, err
		}
		logger.Infow("sqlite-vec store opened", "path", s.Path())
		return s, nil

	case storeopts.BackendMilvus:
		client, err := milvus.New(ctx, opts.Milvus)
		if err != nil {
			return nil, errors.ErrVectorStore.WithCause(err)
		}
		logger.Infow("milvus store connected",
			"address", opts.Milvus.Address,
			"collection", opts.Collection,
		)
		return NewMilvusStore(client, opts.Collection), nil

	default:
		return nil, errors.ErrConfig.WithCause(fmt.Errorf("unknown store backend %q", opts.Backend))
	}
}
