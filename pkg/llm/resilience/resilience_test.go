package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
)

var testErr = stderrors.New("test error")

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker("t", DefaultCircuitBreakerConfig())
	assert.Equal(t, StateClosed, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpenOnMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{
		MaxFailures:      3,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	})

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(func() error { return testErr }))
	}
	assert.Equal(t, StateOpen, cb.State())

	// 熔断器打开后，应拒绝新请求
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Second})

	_ = cb.Execute(func() error { return testErr })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return testErr })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ContextErrorsDoNotCount(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})

	err := cb.Execute(func() error { return context.DeadlineExceeded })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTransition(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})
	cb.OnStateChange(func(_ string, from, to CircuitBreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}

	time.Sleep(80 * time.Millisecond)

	assert.Error(t, cb.Execute(func() error { return testErr }))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("t", DefaultCircuitBreakerConfig())
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))

	stats := cb.Stats()
	assert.Equal(t, "closed", stats["state"])
	assert.Equal(t, 0, stats["failures"])
}

type failingChat struct{ calls int }

func (f *failingChat) Generate(context.Context, string, string) (string, error) {
	f.calls++
	return "", errors.ErrModelUnavailable.WithCause(testErr)
}

func (f *failingChat) Name() string { return "failing" }

func TestResilientChatProvider_FailsFastWhenOpen(t *testing.T) {
	inner := &failingChat{}
	p := NewResilientChatProvider(inner, &CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := p.Generate(context.Background(), "p", "")
		assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
	}
	assert.Equal(t, StateOpen, p.CircuitBreaker().State())

	_, err := p.Generate(context.Background(), "p", "")
	assert.True(t, errors.IsCode(err, errors.ErrModelUnavailable.Code))
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, 2, inner.calls)
	assert.NoError(t, p.Ping(context.Background()))
}
