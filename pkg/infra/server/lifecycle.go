// Package server runs listeners until the process is asked to stop.
package server

import (
	"context"
	"time"

	"github.com/kart-io/logger"
)

// Runnable is a listener driven by Serve.
type Runnable interface {
	// Name returns the server name for identification.
	Name() string
	// Start binds and serves in the background. It returns once the
	// listener is bound; later failures arrive on Err.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
	// Err delivers serve failures after Start returned.
	Err() <-chan error
}

// Serve starts r and blocks until ctx is cancelled or r fails, then stops it
// within shutdownTimeout. A cancelled ctx is a clean exit and yields nil.
func Serve(ctx context.Context, r Runnable, shutdownTimeout time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Infow("Shutting down server", "server", r.Name())
	case runErr = <-r.Err():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		logger.Errorw("server shutdown failed", "server", r.Name(), "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
