// Package store provides vector store configuration options.
package store

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
	milvusopts "github.com/kart-io/medrag/pkg/options/milvus"
	sqliteopts "github.com/kart-io/medrag/pkg/options/sqlitevec"
)

var _ options.Completable = (*Options)(nil)

// 支持的存储后端
const (
	BackendSQLiteVec = "sqlite-vec"
	BackendMilvus    = "milvus"
)

// Options 向量存储配置。
type Options struct {
	// Backend 存储后端（sqlite-vec, milvus）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Dir 存储目录，保存数据库文件与 manifest，导入前会被清空。
	Dir string `json:"dir" mapstructure:"dir"`

	// Collection 集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// SQLite sqlite-vec 后端配置。
	SQLite *sqliteopts.Options `json:"sqlite" mapstructure:"sqlite"`

	// Milvus Milvus 后端配置。
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:    BackendSQLiteVec,
		Dir:        "./chroma_db",
		Collection: "medical_topics",
		SQLite:     sqliteopts.NewOptions(),
		Milvus:     milvusopts.NewOptions(),
	}
}

// AddFlags adds flags for store options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Vector store backend (sqlite-vec, milvus).")
	fs.StringVar(&o.Dir, p+"dir", o.Dir, "Store directory holding the database and the ingestion manifest.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection name.")
	o.SQLite.AddFlags(fs, append(prefixes, "sqlite")...)
	o.Milvus.AddFlags(fs, append(prefixes, "milvus")...)
}

// Validate validates the store options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if strings.TrimSpace(o.Dir) == "" {
		errs = append(errs, fmt.Errorf("store.dir is required"))
	}
	if strings.TrimSpace(o.Collection) == "" {
		errs = append(errs, fmt.Errorf("store.collection is required"))
	}
	switch o.Backend {
	case BackendSQLiteVec:
		errs = append(errs, o.SQLite.Validate()...)
	case BackendMilvus:
		errs = append(errs, o.Milvus.Validate()...)
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported (sqlite-vec, milvus)", o.Backend))
	}
	return errs
}

// Complete completes the store options with defaults.
func (o *Options) Complete() error {
	o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	if o.SQLite == nil {
		o.SQLite = sqliteopts.NewOptions()
	}
	if o.Milvus == nil {
		o.Milvus = milvusopts.NewOptions()
	}
	return o.SQLite.Complete()
}
