// Package http provides the gin-based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/infra/middleware"
	"github.com/kart-io/medrag/pkg/infra/server"
	options "github.com/kart-io/medrag/pkg/options/http"
	"github.com/kart-io/medrag/pkg/utils/response"
	"github.com/kart-io/medrag/pkg/validator"
)

// Server is the HTTP server implementation.
type Server struct {
	opts   *options.Options
	engine *gin.Engine
	server *http.Server

	mu    sync.Mutex
	addr  net.Addr
	errCh chan error
}

// NewServer creates a new HTTP server with the given options.
// The middleware chain is applied here so every route registered later inherits it.
func NewServer(opts *options.Options) *Server {
	if opts == nil {
		opts = options.NewOptions()
	}
	_ = opts.Complete()

	// 设置 Gin 模式
	gin.SetMode(gin.ReleaseMode)
	validator.InstallGin()

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()
	engine.HandleMethodNotAllowed = false

	s := &Server{
		opts:   opts,
		engine: engine,
		errCh:  make(chan error, 1),
	}
	s.applyMiddleware()

	// JSON 404
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})

	return s
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Use appends middleware to the engine.
func (s *Server) Use(handlers ...gin.HandlerFunc) {
	s.engine.Use(handlers...)
}

// applyMiddleware applies the configured middleware to the engine.
// 顺序：Recovery -> RequestID -> Logger。
func (s *Server) applyMiddleware() {
	mw := s.opts.Middleware
	s.engine.Use(middleware.Recovery(*mw.Recovery, nil))
	s.engine.Use(middleware.RequestID(*mw.RequestID))
	s.engine.Use(middleware.Logger(*mw.Logger))
}

// Start binds the listen address and serves in the background.
// Bind errors are returned synchronously; later serve errors arrive on Err().
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	logger.Infow("HTTP server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err.Error())
			s.errCh <- err
		}
	}()
	return nil
}

// Err reports serve failures after Start returned.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

var _ server.Runnable = (*Server)(nil)
