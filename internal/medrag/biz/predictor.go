package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/internal/medrag/metrics"
	"github.com/kart-io/medrag/internal/medrag/store"
	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/llm"
)

// ContextRetriever returns the chunks used to ground a statement.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) ([]*store.Hit, error)
}

// PredictorConfig 预测器配置。
type PredictorConfig struct {
	// ParseRetry 解析失败时使用更严格的提示重试一次。
	ParseRetry bool
	// SystemPrompt 生成时的系统提示。
	SystemPrompt string
}

// Predictor 组合检索、提示构造、生成与解析。
type Predictor struct {
	retriever ContextRetriever
	chat      llm.ChatProvider
	topics    *TopicMap
	cache     *PredictionCache
	metrics   *metrics.Metrics
	config    *PredictorConfig
}

// NewPredictor 创建预测器。cache 与 m 可以为 nil。
func NewPredictor(
	retriever ContextRetriever,
	chat llm.ChatProvider,
	topics *TopicMap,
	cache *PredictionCache,
	m *metrics.Metrics,
	config *PredictorConfig,
) *Predictor {
	if config == nil {
		config = &PredictorConfig{ParseRetry: true}
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = SystemPrompt
	}
	return &Predictor{
		retriever: retriever,
		chat:      chat,
		topics:    topics,
		cache:     cache,
		metrics:   m,
		config:    config,
	}
}

// Predict classifies a statement as true or false and assigns it a topic.
func (p *Predictor) Predict(ctx context.Context, statement string) (*Prediction, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StagePredict, start)

	statement, err := p.validate(statement)
	if err != nil {
		return nil, err
	}

	if cached := p.lookup(ctx, statement); cached != nil {
		return cached, nil
	}

	hits, err := p.retrieve(ctx, statement)
	if err != nil {
		return nil, p.stageError(ctx, "retrieve", err)
	}

	prompt, err := BuildPrompt(statement, hits, p.topics)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	raw, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, p.stageError(ctx, "generate", err)
	}

	pred, err := p.parse(raw)
	if err != nil && p.config.ParseRetry {
		logger.Warnw("model output not parseable, retrying with strict prompt", "error", err.Error())
		p.metrics.RecordParseRetry()

		strict, perr := BuildStrictPrompt(statement, hits, p.topics)
		if perr != nil {
			return nil, errors.ErrInternal.WithCause(perr)
		}
		retryRaw, gerr := p.generate(ctx, strict)
		if gerr != nil {
			return nil, p.stageError(ctx, "generate", gerr)
		}
		pred, err = p.parse(retryRaw)
	}
	if err != nil {
		return nil, err
	}

	p.remember(ctx, statement, pred)
	return pred, nil
}

// validate trims the statement and rejects blank input.
func (p *Predictor) validate(statement string) (string, error) {
	s := strings.TrimSpace(statement)
	if s == "" {
		return "", errors.ErrInvalidStatement
	}
	return s, nil
}

func (p *Predictor) retrieve(ctx context.Context, statement string) ([]*store.Hit, error) {
	return p.retriever.Retrieve(ctx, statement)
}

func (p *Predictor) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	raw, err := p.chat.Generate(ctx, prompt, p.config.SystemPrompt)
	p.metrics.RecordModelCall(metrics.ModelChat, err)
	p.metrics.ObserveStage(metrics.StageGenerate, start)
	return raw, err
}

func (p *Predictor) parse(raw string) (*Prediction, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StageParse, start)

	pred, err := ParsePrediction(raw, p.topics)
	if err != nil {
		logger.Debugw("unparseable model output", "raw", raw)
	}
	return pred, err
}

func (p *Predictor) lookup(ctx context.Context, statement string) *Prediction {
	if p.cache == nil {
		return nil
	}
	pred, err := p.cache.Get(ctx, statement)
	switch {
	case err != nil:
		p.metrics.RecordCacheLookup("error")
		logger.Warnw("prediction cache lookup failed", "error", err.Error())
		return nil
	case pred == nil:
		p.metrics.RecordCacheLookup("miss")
		return nil
	default:
		p.metrics.RecordCacheLookup("hit")
		return pred
	}
}

func (p *Predictor) remember(ctx context.Context, statement string, pred *Prediction) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, statement, pred); err != nil {
		logger.Warnw("prediction cache store failed", "error", err.Error())
	}
}

// stageError reports the caller's context error in preference to whatever
// the stage returned, so deadlines surface as timeouts.
func (p *Predictor) stageError(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", stage, ctxErr)
	}
	return err
}
