package store

import (
	"context"
	"sort"
)

// Chunk 表示一个文档切片及其来源。
type Chunk struct {
	// Text 切片文本。
	Text string `json:"text"`
	// SourceFile 来源文件名（不含目录）。
	SourceFile string `json:"source_file"`
	// TopicName 所属主题名称，等于主题目录名。
	TopicName string `json:"topic_name"`
	// TopicID 主题映射中的主题 ID。
	TopicID int `json:"topic_id"`
}

// Record 是写入向量库的一行。
type Record struct {
	// ID 按切分顺序分配，从 1 开始。
	ID int64
	Chunk
	// Embedding 嵌入向量。
	Embedding []float32
}

// Hit 是一条检索结果。
type Hit struct {
	ID int64 `json:"id"`
	Chunk
	// Distance 与查询向量的 L2 距离，越小越相似。
	Distance float32 `json:"distance"`
}

// VectorStore 定义向量存储接口。实现必须可并发读取。
type VectorStore interface {
	// Name 返回后端名称。
	Name() string

	// Reset 清空已有数据。
	Reset(ctx context.Context) error

	// Insert 批量写入记录，所有记录的向量维度必须一致。
	Insert(ctx context.Context, records []*Record) error

	// Search 返回距离最近的 topK 条记录，按 (距离, ID) 升序。
	Search(ctx context.Context, embedding []float32, topK int) ([]*Hit, error)

	// Count 返回记录数，空库返回 0。
	Count(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close() error
}

// sortHits orders hits by distance, breaking ties by id.
func sortHits(hits []*Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
}

func dimensionOf(records []*Record) (int, bool) {
	if len(records) == 0 {
		return 0, false
	}
	dim := len(records[0].Embedding)
	for _, r := range records[1:] {
		if len(r.Embedding) != dim {
			return 0, false
		}
	}
	return dim, dim > 0
}
