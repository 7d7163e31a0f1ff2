package biz

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/infra/pool"
	sqliteopts "github.com/kart-io/medrag/pkg/options/sqlitevec"
)

const testDim = 64

// hashEmbedder 基于词袋哈希的确定性嵌入，相同词汇的文本距离更近。
type hashEmbedder struct {
	calls atomic.Int32
	err   error
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *hashEmbedder) Name() string { return "hash" }

func hashVector(text string) []float32 {
	v := make([]float32, testDim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) < 4 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%testDim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}

// mockChat 按顺序返回预设回复并记录调用。
type mockChat struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (m *mockChat) Generate(ctx context.Context, prompt, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := min(len(m.prompts)-1, len(m.replies)-1)
	return m.replies[i], nil
}

func (m *mockChat) Name() string { return "mock" }

func (m *mockChat) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var sepsisDocs = map[string]string{
	"overview.md": "Sepsis is a life-threatening organ dysfunction caused by a dysregulated host response to infection.\n\n" +
		"Septic shock is a subset of sepsis with circulatory and cellular metabolic abnormalities. " +
		"Persistent hypotension requires vasopressors to maintain mean arterial pressure and serum lactate rises above two.",
	"management.md": "Sepsis management begins with blood cultures, broad spectrum antibiotics within one hour, " +
		"and crystalloid fluid resuscitation for hypotension or elevated lactate.\n\n" +
		"Source control of the infection should be achieved promptly. Reassess lactate and organ dysfunction frequently.",
	"screening.md": "Sepsis screening uses qSOFA criteria: altered mentation, respiratory rate, and systolic hypotension. " +
		"Infection with organ dysfunction defines sepsis.",
}

var embolismDocs = map[string]string{
	"diagnosis.md": "Pulmonary embolism is an obstruction of the pulmonary arteries by thrombus originating from deep veins.\n\n" +
		"Computed tomography pulmonary angiography confirms the clot. D-dimer testing excludes embolism in low probability patients.",
	"treatment.md": "Pulmonary embolism treatment relies on anticoagulation with heparin or direct oral anticoagulants. " +
		"Massive embolism with shock may need thrombolysis or embolectomy.",
}

const testTopicsJSON = `{"Sepsis": 0, "Pulmonary Embolism": 1, "Asthma": 2}`

// writeCorpus 在临时目录中写入测试语料，返回 (topics.json 路径, 语料根目录)。
func writeCorpus(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	corpus := filepath.Join(root, "topics")

	write := func(folder string, docs map[string]string) {
		dir := filepath.Join(corpus, folder)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for name, content := range docs {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		}
	}
	write("Sepsis", sepsisDocs)
	write("Pulmonary Embolism", embolismDocs)
	write("Asthma", nil)
	write("Unmapped", map[string]string{"x.md": "should never be ingested"})
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "Sepsis", "notes.txt"), []byte("ignored"), 0o644))

	topicsFile := filepath.Join(root, "topics.json")
	require.NoError(t, os.WriteFile(topicsFile, []byte(testTopicsJSON), 0o644))
	return topicsFile, corpus
}

func mustTopics(t *testing.T) *TopicMap {
	t.Helper()
	tm, err := ParseTopicMap([]byte(testTopicsJSON))
	require.NoError(t, err)
	return tm
}

func newTestStore(t *testing.T, dir string) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), dir, sqliteopts.NewOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.NewPool("test-ingest", pool.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

type fixture struct {
	topics   *TopicMap
	corpus   string
	storeDir string
	store    *store.SQLiteStore
	embedder *hashEmbedder
	indexer  *Indexer
}

// newFixture 构造一个使用小切片尺寸的导入环境，使每个主题产生多个切片。
func newFixture(t *testing.T) *fixture {
	t.Helper()
	topicsFile, corpus := writeCorpus(t)
	topics, err := LoadTopicMap(topicsFile)
	require.NoError(t, err)

	storeDir := t.TempDir()
	s := newTestStore(t, storeDir)
	splitter, err := NewSplitter(160, 30)
	require.NoError(t, err)
	emb := &hashEmbedder{}

	ix := NewIndexer(s, emb, splitter, topics, newTestPool(t), &IndexerConfig{
		CorpusDir:      corpus,
		StoreDir:       storeDir,
		Collection:     "medical_topics",
		EmbeddingModel: "hash",
		BatchSize:      3,
	})
	return &fixture{
		topics:   topics,
		corpus:   corpus,
		storeDir: storeDir,
		store:    s,
		embedder: emb,
		indexer:  ix,
	}
}
