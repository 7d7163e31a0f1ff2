package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestOptions_Defaults(t *testing.T) {
	o := NewIngestOptions()
	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, "data/topics", cfg.IngestOptions.CorpusDir)
	assert.Equal(t, 1000, cfg.IngestOptions.ChunkSize)
	assert.Equal(t, 200, cfg.IngestOptions.ChunkOverlap)
	assert.Equal(t, "./chroma_db", cfg.StoreOptions.Dir)
	assert.False(t, cfg.IngestOptions.DryRun)
}

func TestIngestOptions_Flags(t *testing.T) {
	fss := NewIngestOptions().Flags()

	names := map[string]bool{}
	for _, fs := range fss.FlagSets {
		fs.VisitAll(func(f *pflag.Flag) { names[f.Name] = true })
	}

	for _, want := range []string{
		"ingest.corpus-dir",
		"ingest.chunk-size",
		"ingest.dry-run",
		"llm.embed-model",
		"store.backend",
		"cache.embeddings.enabled",
	} {
		assert.True(t, names[want], "missing flag %s", want)
	}
	for key := range EnvAliases {
		assert.True(t, names[key], "alias %s has no flag", key)
	}
}

func TestIngestOptions_Invalid(t *testing.T) {
	o := NewIngestOptions()
	o.Ingest.ChunkOverlap = 2000
	o.StoreOptions.Backend = "chroma"
	require.NoError(t, o.Complete())

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.chunk-overlap")
	assert.Contains(t, err.Error(), "store.backend")
}
