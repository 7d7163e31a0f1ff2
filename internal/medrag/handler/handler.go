// Package handler provides HTTP handlers for the medrag service.
package handler

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/biz"
	"github.com/kart-io/medrag/internal/medrag/metrics"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/response"
	"github.com/kart-io/medrag/pkg/validator"
)

// DefaultPredictTimeout bounds a single prediction.
const DefaultPredictTimeout = 120 * time.Second

// Predictor classifies a statement.
type Predictor interface {
	Predict(ctx context.Context, statement string) (*biz.Prediction, error)
}

// Config 处理器配置。
type Config struct {
	// Name 服务名称，出现在 GET / 中。
	Name string
	// Version 服务版本。
	Version string
	// PredictTimeout 单次预测的超时时间。
	PredictTimeout time.Duration
}

// Handler serves the identity, uptime and prediction endpoints.
type Handler struct {
	predictor Predictor
	metrics   *metrics.Metrics
	config    Config
	startedAt time.Time
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(predictor Predictor, m *metrics.Metrics, config Config) *Handler {
	if config.PredictTimeout <= 0 {
		config.PredictTimeout = DefaultPredictTimeout
	}
	return &Handler{
		predictor: predictor,
		metrics:   m,
		config:    config,
		startedAt: time.Now(),
	}
}

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// UptimeResponse is the body of GET /api.
type UptimeResponse struct {
	UptimeSeconds float64   `json:"uptime_seconds"`
	Uptime        string    `json:"uptime"`
	StartedAt     time.Time `json:"started_at"`
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Statement string `json:"statement" binding:"required,notblank"`
}

// Index 返回服务标识，不依赖模型与存储。
func (h *Handler) Index(c *gin.Context) {
	response.OK(c, IndexResponse{
		Name:    h.config.Name,
		Version: h.config.Version,
		Status:  "ok",
	})
}

// Uptime reports how long the service has been running.
func (h *Handler) Uptime(c *gin.Context) {
	up := time.Since(h.startedAt)
	response.OK(c, UptimeResponse{
		UptimeSeconds: up.Seconds(),
		Uptime:        up.Truncate(time.Second).String(),
		StartedAt:     h.startedAt.UTC(),
	})
}

// Predict classifies the posted statement.
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordPrediction(metrics.OutcomeInvalid)
		msg := validator.Message(err, c.GetHeader("Accept-Language"))
		response.Fail(c, errors.ErrInvalidStatement.WithMessage("invalid statement: "+msg).WithCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.PredictTimeout)
	defer cancel()

	pred, err := h.predictor.Predict(ctx, req.Statement)
	if err != nil {
		err = mapError(ctx, err)
		h.metrics.RecordPrediction(outcomeOf(err))
		logger.Warnw("prediction failed",
			"error", err.Error(),
			"code", errors.GetCode(err),
		)
		response.Fail(c, err)
		return
	}

	h.metrics.RecordPrediction(metrics.OutcomeSuccess)
	response.OK(c, pred)
}

// mapError 请求上下文结束（超时或客户端断开）时统一映射为预测超时。
func mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil || (stderrors.Is(err, context.DeadlineExceeded) && errors.GetCode(err) == -1) {
		return errors.ErrPredictTimeout.WithCause(err)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.IsCode(err, errors.ErrInvalidStatement.Code):
		return metrics.OutcomeInvalid
	case errors.IsCode(err, errors.ErrPredictTimeout.Code):
		return metrics.OutcomeTimeout
	case errors.IsCode(err, errors.ErrModelUnavailable.Code):
		return metrics.OutcomeModelUnavailable
	case errors.IsCode(err, errors.ErrPredictionParse.Code):
		return metrics.OutcomeParseError
	default:
		return metrics.OutcomeInternal
	}
}
