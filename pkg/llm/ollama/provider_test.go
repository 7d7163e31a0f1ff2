package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/llm"
	"github.com/kart-io/medrag/pkg/utils/json"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "embed-test", req.Model)

		out := embedResponse{Model: req.Model}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "chat-test", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "sys", req.System)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{"statement_is_true":1}`, Done: true})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"chat-test"},{"name":"embed-test"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, baseURL string) llm.Provider {
	t.Helper()
	p, err := llm.NewProvider(ProviderName, map[string]any{
		"base_url":    baseURL + "/",
		"embed_model": "embed-test",
		"chat_model":  "chat-test",
		"timeout":     2 * time.Second,
	})
	require.NoError(t, err)
	return p
}

func TestProvider_Embed(t *testing.T) {
	p := newTestProvider(t, newTestServer(t).URL)

	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{2, 1}, vecs[2])

	vec, err := p.EmbedSingle(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)

	empty, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestProvider_Generate(t *testing.T) {
	p := newTestProvider(t, newTestServer(t).URL)

	out, err := p.Generate(context.Background(), "prompt", "sys")
	require.NoError(t, err)
	assert.Equal(t, `{"statement_is_true":1}`, out)
}

func TestProvider_PingAndListModels(t *testing.T) {
	p := newTestProvider(t, newTestServer(t).URL).(*Provider)

	require.NoError(t, p.Ping(context.Background()))
	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chat-test", "embed-test"}, models)
}

func TestProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := newTestProvider(t, url)

	_, err := p.Generate(context.Background(), "prompt", "")
	assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))

	_, err = p.EmbedSingle(context.Background(), "x")
	assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))

	assert.True(t, errors.IsCode(p.(*Provider).Ping(context.Background()), errors.ErrModelUnavailable.Code))
}

func TestProvider_ShortEmbedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).Embed(context.Background(), []string{"a", "b"})
	assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
}
