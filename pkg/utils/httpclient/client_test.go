package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"answer":42}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.SetHeader("Authorization", "Bearer k")

	var out struct {
		Answer int `json:"answer"`
	}
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, map[string]string{"q": "x"}, &out))
	assert.Equal(t, 42, out.Answer)
}

func TestDoJSON_ModelUnavailable(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		err := NewClient(time.Second).GetJSON(context.Background(), url, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewClient(time.Second).GetJSON(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		var out map[string]any
		err := NewClient(time.Second).GetJSON(context.Background(), srv.URL, &out)
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
	})
}

func TestDoJSON_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewClient(0).GetJSON(ctx, srv.URL, nil)
	require.Error(t, err)
	assert.True(t, IsContextError(err))
	assert.False(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
}
