// Package cache предоставляет реализации transport.QueryCache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/framework/transport"
)

// Client подмножество команд Redis, используемых кэшем
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisConfig конфигурация для Redis кэша
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	KeyPrefix  string
	TTL        time.Duration
}

// Validate проверяет корректность конфигурации
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return core.NewError(core.ErrInvalidConfig, "redis addr cannot be empty")
	}
	if c.TTL <= 0 {
		return core.NewError(core.ErrInvalidConfig, "cache TTL must be positive")
	}
	return nil
}

// DefaultRedisConfig возвращает конфигурацию Redis по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		PoolSize:   10,
		MaxRetries: 3,
		KeyPrefix:  "ordering:",
		TTL:        30 * time.Second,
	}
}

// RedisQueryCache кэш результатов запросов в Redis.
// Значения хранятся в JSON и декодируются в CacheableQuery.NewResult().
// Ошибки Redis не прерывают запрос: Get считается промахом, Set логируется.
type RedisQueryCache struct {
	client  Client
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRedisClient создает клиент Redis и проверяет подключение
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: config.MaxRetries,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.Wrap(err, core.ErrInitializationFailed, "failed to connect to Redis")
	}
	return client, nil
}

// NewRedisQueryCache создает кэш поверх клиента Redis
func NewRedisQueryCache(client Client, config RedisConfig, logger *slog.Logger, m *metrics.Metrics) *RedisQueryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisQueryCache{
		client:  client,
		prefix:  config.KeyPrefix,
		ttl:     config.TTL,
		logger:  logger,
		metrics: m,
	}
}

var _ transport.QueryCache = (*RedisQueryCache)(nil)

// Key возвращает полный ключ Redis для ключа кэша
func (c *RedisQueryCache) Key(cacheKey string) string {
	return c.prefix + cacheKey
}

// Get возвращает закэшированный результат
func (c *RedisQueryCache) Get(ctx context.Context, query transport.CacheableQuery) (interface{}, bool) {
	data, err := c.client.Get(ctx, c.Key(query.CacheKey())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "query cache read failed", slog.String("query", query.QueryName()), slog.Any("error", err))
		}
		c.recordLookup(ctx, false)
		return nil, false
	}

	result := query.NewResult()
	if err := json.Unmarshal(data, result); err != nil {
		c.logger.WarnContext(ctx, "query cache entry is corrupt", slog.String("query", query.QueryName()), slog.Any("error", err))
		c.recordLookup(ctx, false)
		return nil, false
	}

	c.recordLookup(ctx, true)
	return result, true
}

// Set сохраняет результат в кэш
func (c *RedisQueryCache) Set(ctx context.Context, query transport.CacheableQuery, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}

	if err := c.client.Set(ctx, c.Key(query.CacheKey()), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "query cache write failed", slog.String("query", query.QueryName()), slog.Any("error", err))
		return err
	}
	return nil
}

// Invalidate инвалидирует кэш запроса
func (c *RedisQueryCache) Invalidate(ctx context.Context, query transport.CacheableQuery) error {
	return c.InvalidateKeys(ctx, query.CacheKey())
}

// InvalidateKeys удаляет ключи кэша
func (c *RedisQueryCache) InvalidateKeys(ctx context.Context, cacheKeys ...string) error {
	if len(cacheKeys) == 0 {
		return nil
	}
	keys := make([]string, len(cacheKeys))
	for i, k := range cacheKeys {
		keys[i] = c.Key(k)
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidatePrefix удаляет все ключи кэша с указанным префиксом
func (c *RedisQueryCache) InvalidatePrefix(ctx context.Context, cacheKeyPrefix string) error {
	match := c.Key(cacheKeyPrefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping проверяет доступность Redis
func (c *RedisQueryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisQueryCache) recordLookup(ctx context.Context, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(ctx, hit)
	}
}
