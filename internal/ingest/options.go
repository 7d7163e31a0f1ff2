package ingest

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/internal/medrag/biz"
	"github.com/kart-io/medrag/pkg/options"
)

var _ options.Completable = (*Options)(nil)

// Options 导入任务配置。
type Options struct {
	// TopicsFile 主题映射文件（主题名 -> id）。
	TopicsFile string `json:"topics-file" mapstructure:"topics-file"`

	// CorpusDir 语料根目录，每个子目录对应一个主题。
	CorpusDir string `json:"corpus-dir" mapstructure:"corpus-dir"`

	// Extensions 参与导入的文件扩展名。
	Extensions []string `json:"extensions" mapstructure:"extensions"`

	// ChunkSize 切片大小（按字符计）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻切片重叠的字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// BatchSize 每次嵌入请求的切片数。
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`

	// Workers 并发嵌入请求数。
	Workers int `json:"workers" mapstructure:"workers"`

	// DryRun 只切分并报告，不嵌入也不写库。
	DryRun bool `json:"dry-run" mapstructure:"dry-run"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopicsFile:   "data/topics.json",
		CorpusDir:    "data/topics",
		Extensions:   append([]string(nil), biz.DefaultExtensions...),
		ChunkSize:    biz.DefaultChunkSize,
		ChunkOverlap: biz.DefaultChunkOverlap,
		BatchSize:    32,
		Workers:      4,
	}
}

// AddFlags adds flags for ingestion options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.TopicsFile, p+"topics-file", o.TopicsFile, "Path to the topic map (topic name -> id).")
	fs.StringVar(&o.CorpusDir, p+"corpus-dir", o.CorpusDir, "Corpus root; one sub-folder per topic.")
	fs.StringSliceVar(&o.Extensions, p+"extensions", o.Extensions, "File extensions to ingest.")
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Chunks per embedding request.")
	fs.IntVar(&o.Workers, p+"workers", o.Workers, "Concurrent embedding requests.")
	fs.BoolVar(&o.DryRun, p+"dry-run", o.DryRun, "Scan and split only; report chunk counts without embedding or writing.")
}

// Validate validates the ingestion options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if strings.TrimSpace(o.TopicsFile) == "" {
		errs = append(errs, fmt.Errorf("ingest.topics-file is required"))
	}
	if strings.TrimSpace(o.CorpusDir) == "" {
		errs = append(errs, fmt.Errorf("ingest.corpus-dir is required"))
	}
	if len(o.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("ingest.extensions must not be empty"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.batch-size must be positive"))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("ingest.workers must be positive"))
	}
	return errs
}

// Complete normalizes the extension list to lower case with a leading dot.
func (o *Options) Complete() error {
	for i, ext := range o.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.Extensions[i] = ext
	}
	return nil
}
