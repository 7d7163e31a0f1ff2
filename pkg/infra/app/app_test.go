package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/app/cliflag"
)

type testOptions struct {
	RAG struct {
		TopK  int    `mapstructure:"top-k"`
		Model string `mapstructure:"model"`
	} `mapstructure:"rag"`
	Store struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"store"`

	completed bool
}

func newTestOptions() *testOptions {
	o := &testOptions{}
	o.RAG.TopK = 5
	o.RAG.Model = "nomic-embed-text"
	o.Store.Dir = "./kb"
	return o
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("rag")
	fs.IntVar(&o.RAG.TopK, "rag.top-k", o.RAG.TopK, "")
	fs.StringVar(&o.RAG.Model, "rag.model", o.RAG.Model, "")
	fss.FlagSet("store").StringVar(&o.Store.Dir, "store.dir", o.Store.Dir, "")
	return fss
}

func (o *testOptions) Complete() error { o.completed = true; return nil }
func (o *testOptions) Validate() error { return nil }

func runApp(t *testing.T, opts *testOptions, args []string, extra ...Option) {
	t.Helper()
	base := []Option{
		WithName("medrag-test"),
		WithOptions(opts),
		WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")),
		WithRunFunc(func() error { return nil }),
	}
	a := NewApp(append(base, extra...)...)
	if args == nil {
		args = []string{}
	}
	a.Command().SetArgs(args)
	require.NoError(t, a.Command().Execute())
}

func TestDefaults(t *testing.T) {
	opts := newTestOptions()
	runApp(t, opts, nil)

	assert.True(t, opts.completed)
	assert.Equal(t, 5, opts.RAG.TopK)
	assert.Equal(t, "./kb", opts.Store.Dir)
}

func TestConfigFileEnvAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "medrag-test.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("rag:\n  top-k: 7\n  model: from-file\nstore:\n  dir: /from/file\n"), 0o600))

	t.Setenv("MEDRAG_TEST_RAG_MODEL", "from-env")

	opts := newTestOptions()
	runApp(t, opts, []string{"--config", cfg, "--store.dir", "/from/flag"})

	assert.Equal(t, 7, opts.RAG.TopK)
	assert.Equal(t, "from-env", opts.RAG.Model)
	assert.Equal(t, "/from/flag", opts.Store.Dir)
}

func TestEnvAlias(t *testing.T) {
	t.Setenv("DATABASE_LOCATION", "/from/alias")

	opts := newTestOptions()
	runApp(t, opts, nil, WithEnvAliases(map[string]string{"store.dir": "DATABASE_LOCATION"}))

	assert.Equal(t, "/from/alias", opts.Store.Dir)
}

func TestDotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MEDRAG_TEST_RAG_TOP_K=9\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MEDRAG_TEST_RAG_TOP_K") })

	opts := newTestOptions()
	runApp(t, opts, nil, WithEnvFiles(envFile))

	assert.Equal(t, 9, opts.RAG.TopK)
}

func TestExpandEnvVarsInConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "medrag-test.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store:\n  dir: ${KB_ROOT}/store\n"), 0o600))
	t.Setenv("KB_ROOT", "/srv/kb")

	opts := newTestOptions()
	runApp(t, opts, []string{"-c", cfg})

	assert.Equal(t, "/srv/kb/store", opts.Store.Dir)
}
