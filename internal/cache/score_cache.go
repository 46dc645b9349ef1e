package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"fraudguard/internal/models"
	"fraudguard/internal/scorer"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fraudcheck:"

// ScoreCache кэш вердиктов прямой проверки контента
type ScoreCache interface {
	Get(ctx context.Context, dataType models.DataType, content string) (*scorer.Result, bool)
	Set(ctx context.Context, dataType models.DataType, content string, result *scorer.Result)
	Close() error
}

type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisScoreCache(addr, password string, db int, ttl time.Duration, log *slog.Logger) (*RedisScoreCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Info("redis кэш скоринга подключен", slog.String("addr", addr))

	return &RedisScoreCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}, nil
}

// ключ строится из хэша контента, сам контент в redis не попадает
func cacheKey(dataType models.DataType, content string) string {
	sum := sha256.Sum256([]byte(string(dataType) + "\x00" + content))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisScoreCache) Get(ctx context.Context, dataType models.DataType, content string) (*scorer.Result, bool) {
	data, err := c.client.Get(ctx, cacheKey(dataType, content)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("ошибка чтения из redis", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var result scorer.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.Warn("поврежденная запись в кэше", slog.String("error", err.Error()))
		return nil, false
	}
	return &result, true
}

func (c *RedisScoreCache) Set(ctx context.Context, dataType models.DataType, content string, result *scorer.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(dataType, content), data, c.ttl).Err(); err != nil {
		c.log.Warn("ошибка записи в redis", slog.String("error", err.Error()))
	}
}

func (c *RedisScoreCache) Close() error {
	if c.client == nil {
		return nil
	}
	c.log.Info("закрытие соединения с redis")
	return c.client.Close()
}

type NoOpScoreCache struct{}

func NewNoOpScoreCache() *NoOpScoreCache {
	return &NoOpScoreCache{}
}

func (c *NoOpScoreCache) Get(ctx context.Context, dataType models.DataType, content string) (*scorer.Result, bool) {
	return nil, false
}

func (c *NoOpScoreCache) Set(ctx context.Context, dataType models.DataType, content string, result *scorer.Result) {
}

func (c *NoOpScoreCache) Close() error {
	return nil
}
