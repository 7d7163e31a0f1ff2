package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunnable struct {
	startErr error
	stopErr  error
	errCh    chan error
	stopped  bool
}

func newFake() *fakeRunnable { return &fakeRunnable{errCh: make(chan error, 1)} }

func (f *fakeRunnable) Name() string                { return "fake" }
func (f *fakeRunnable) Start(context.Context) error { return f.startErr }
func (f *fakeRunnable) Stop(context.Context) error  { f.stopped = true; return f.stopErr }
func (f *fakeRunnable) Err() <-chan error           { return f.errCh }

func TestServe_CancelIsCleanExit(t *testing.T) {
	f := newFake()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Serve(ctx, f, time.Second))
	assert.True(t, f.stopped)
}

func TestServe_StartError(t *testing.T) {
	f := newFake()
	f.startErr = errors.New("address in use")

	err := Serve(context.Background(), f, time.Second)
	assert.EqualError(t, err, "address in use")
	assert.False(t, f.stopped)
}

func TestServe_ServeFailure(t *testing.T) {
	f := newFake()
	f.errCh <- errors.New("listener closed")

	err := Serve(context.Background(), f, time.Second)
	assert.EqualError(t, err, "listener closed")
	assert.True(t, f.stopped)
}

func TestServe_StopError(t *testing.T) {
	f := newFake()
	f.stopErr = errors.New("shutdown timed out")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.EqualError(t, Serve(ctx, f, time.Second), "shutdown timed out")
}
