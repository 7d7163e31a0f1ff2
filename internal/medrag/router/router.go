// Package router provides medrag service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/handler"
	"github.com/kart-io/medrag/internal/medrag/metrics"
)

// Register registers the medrag routes on the engine.
// m may be nil, in which case /metrics is not exposed.
func Register(engine *gin.Engine, h *handler.Handler, m *metrics.Metrics) {
	logger.Info("Registering medrag routes...")

	if m != nil {
		engine.Use(m.Middleware())
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	engine.Handle(http.MethodGet, "/", h.Index)
	engine.Handle(http.MethodGet, "/api", h.Uptime)
	engine.Handle(http.MethodPost, "/predict", h.Predict)

	logger.Info("HTTP routes registered")
}
