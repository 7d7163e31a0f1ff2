package biz

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/errors"
)

// stubRetriever 返回固定结果并记录调用次数。
type stubRetriever struct {
	hits  []*store.Hit
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]*store.Hit, error) {
	s.calls++
	return s.hits, s.err
}

func sepsisHits() []*store.Hit {
	return []*store.Hit{{ID: 1, Chunk: store.Chunk{Text: "Sepsis is organ dysfunction.", TopicName: "Sepsis"}}}
}

func TestPredictor_Success(t *testing.T) {
	r := &stubRetriever{hits: sepsisHits()}
	chat := &mockChat{replies: []string{"```json\n{\"statement_is_true\": 1, \"statement_topic\": 0}\n```"}}
	p := NewPredictor(r, chat, mustTopics(t), nil, nil, nil)

	got, err := p.Predict(context.Background(), "  Sepsis is organ dysfunction  ")
	require.NoError(t, err)
	assert.Equal(t, &Prediction{StatementIsTrue: true, StatementTopic: "Sepsis"}, got)
	assert.Equal(t, 1, r.calls)
	require.Equal(t, 1, chat.calls())
	assert.Contains(t, chat.prompts[0], `"Sepsis is organ dysfunction"`)
}

func TestPredictor_BlankStatement(t *testing.T) {
	r := &stubRetriever{hits: sepsisHits()}
	chat := &mockChat{replies: []string{`{}`}}
	p := NewPredictor(r, chat, mustTopics(t), nil, nil, nil)

	for _, s := range []string{"", "   ", "\n\t"} {
		_, err := p.Predict(context.Background(), s)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidStatement.Code))
	}
	assert.Zero(t, r.calls)
	assert.Zero(t, chat.calls())
}

func TestPredictor_ParseRetry(t *testing.T) {
	chat := &mockChat{replies: []string{
		"The statement is true and concerns sepsis.",
		`{"statement_is_true": 0, "statement_topic": 1}`,
	}}
	p := NewPredictor(&stubRetriever{hits: sepsisHits()}, chat, mustTopics(t), nil, nil, &PredictorConfig{ParseRetry: true})

	got, err := p.Predict(context.Background(), "statement")
	require.NoError(t, err)
	assert.False(t, got.StatementIsTrue)
	assert.Equal(t, "Pulmonary Embolism", got.StatementTopic)
	require.Equal(t, 2, chat.calls())
	assert.Contains(t, chat.prompts[1], "previous answer could not be read")
}

func TestPredictor_ParseFailure(t *testing.T) {
	t.Run("after retry", func(t *testing.T) {
		chat := &mockChat{replies: []string{"nope", `{"statement_is_true": 1, "statement_topic": 99}`}}
		p := NewPredictor(&stubRetriever{}, chat, mustTopics(t), nil, nil, &PredictorConfig{ParseRetry: true})

		_, err := p.Predict(context.Background(), "statement")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrPredictionParse.Code))
		assert.Equal(t, 2, chat.calls())
	})

	t.Run("retry disabled", func(t *testing.T) {
		chat := &mockChat{replies: []string{"nope"}}
		p := NewPredictor(&stubRetriever{}, chat, mustTopics(t), nil, nil, &PredictorConfig{ParseRetry: false})

		_, err := p.Predict(context.Background(), "statement")
		assert.True(t, errors.IsCode(err, errors.ErrPredictionParse.Code))
		assert.Equal(t, 1, chat.calls())
	})
}

func TestPredictor_ModelUnavailable(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		r := &stubRetriever{err: errors.ErrModelUnavailable.WithMessage("dial tcp: connection refused")}
		chat := &mockChat{replies: []string{`{}`}}
		p := NewPredictor(r, chat, mustTopics(t), nil, nil, nil)

		_, err := p.Predict(context.Background(), "statement")
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
		assert.Zero(t, chat.calls())
	})

	t.Run("generation", func(t *testing.T) {
		chat := &mockChat{err: errors.ErrModelUnavailable.WithMessage("503")}
		p := NewPredictor(&stubRetriever{}, chat, mustTopics(t), nil, nil, nil)

		_, err := p.Predict(context.Background(), "statement")
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
	})
}

func TestPredictor_Deadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	chat := &mockChat{replies: []string{`{"statement_is_true": 1, "statement_topic": 0}`}}
	p := NewPredictor(&stubRetriever{}, chat, mustTopics(t), nil, nil, nil)

	_, err := p.Predict(ctx, "statement")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestPredictor_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := NewPredictionCache(rdb, &PredictionCacheConfig{TTL: time.Minute, KeyPrefix: "test:", Namespace: "run-1"})
	r := &stubRetriever{hits: sepsisHits()}
	chat := &mockChat{replies: []string{`{"statement_is_true": 1, "statement_topic": 0}`}}
	p := NewPredictor(r, chat, mustTopics(t), cache, nil, nil)

	first, err := p.Predict(context.Background(), "Sepsis is organ dysfunction")
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), "Sepsis is organ dysfunction ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, chat.calls())
	assert.Equal(t, 1, r.calls)
}

func TestPredictor_CacheDownIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	chat := &mockChat{replies: []string{`{"statement_is_true": 0, "statement_topic": 2}`}}
	p := NewPredictor(&stubRetriever{}, chat, mustTopics(t), NewPredictionCache(rdb, nil), nil, nil)

	got, err := p.Predict(context.Background(), "Asthma is contagious")
	require.NoError(t, err)
	assert.Equal(t, "Asthma", got.StatementTopic)
}
