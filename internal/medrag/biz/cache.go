package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// PredictionCacheConfig 预测缓存配置。
type PredictionCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
	// Namespace 参与键计算，通常为知识库的 run id，重新导入后旧缓存自然失效。
	Namespace string
}

// DefaultPredictionCacheConfig returns the default cache configuration.
func DefaultPredictionCacheConfig() *PredictionCacheConfig {
	return &PredictionCacheConfig{
		TTL:       time.Hour,
		KeyPrefix: "medrag:predict:",
	}
}

// PredictionCache 基于 Redis 的预测结果缓存。
type PredictionCache struct {
	redis  *goredis.Client
	config *PredictionCacheConfig
}

// NewPredictionCache 创建预测缓存实例。
func NewPredictionCache(redis *goredis.Client, config *PredictionCacheConfig) *PredictionCache {
	if config == nil {
		config = DefaultPredictionCacheConfig()
	}
	return &PredictionCache{
		redis:  redis,
		config: config,
	}
}

// key hashes the trimmed statement together with the namespace.
func (c *PredictionCache) key(statement string) string {
	sum := sha256.Sum256([]byte(c.config.Namespace + "\x00" + strings.TrimSpace(statement)))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached prediction. A miss returns (nil, nil).
func (c *PredictionCache) Get(ctx context.Context, statement string) (*Prediction, error) {
	key := c.key(statement)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, errors.ErrCache.WithCause(err)
	}

	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warnw("dropping corrupt cache entry", "key", key, "error", err.Error())
		_ = c.redis.Del(ctx, key).Err()
		return nil, nil
	}
	return &p, nil
}

// Set stores a prediction.
func (c *PredictionCache) Set(ctx context.Context, statement string, p *Prediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(statement), data, c.config.TTL).Err(); err != nil {
		return errors.ErrCache.WithCause(err)
	}
	return nil
}

// Clear removes every entry under the key prefix and returns the count.
func (c *PredictionCache) Clear(ctx context.Context) (int, error) {
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, errors.ErrCache.WithCause(err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, errors.ErrCache.WithCause(err)
	}
	return deleted, nil
}
