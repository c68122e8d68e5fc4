package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix задаёт пространство имён ключей в Redis.
const DefaultPrefix = "cafebloom:cache:"

// Redis хранит ответы в Redis, разделяя кеш между экземплярами сервиса.
// Инвалидация увеличивает поколение коллекции; ключи старых поколений истекают по TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Cache = (*Redis)(nil)

// RedisOption настраивает кеш Redis.
type RedisOption func(*Redis)

// WithPrefix задаёт префикс ключей.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis создаёт кеш поверх клиента Redis.
func NewRedis(client *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: ttl, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ping проверяет доступность Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) genKey(collection string) string {
	return r.prefix + "gen:" + collection
}

func (r *Redis) generation(ctx context.Context, collection string) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey(collection)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) dataKey(collection string, gen int64, key string) string {
	return fmt.Sprintf("%s%s:%d:%s", r.prefix, collection, gen, key)
}

func (r *Redis) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	gen, err := r.generation(ctx, collection)
	if err != nil {
		return nil, false, fmt.Errorf("get generation: %w", err)
	}

	data, err := r.client.Get(ctx, r.dataKey(collection, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get entry: %w", err)
	}
	return data, true, nil
}

func (r *Redis) Version(ctx context.Context, collection string) (int64, error) {
	gen, err := r.generation(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

// Set пишет значение под ключ поколения version; ключ устаревшего поколения
// никогда не читается и истекает по TTL.
func (r *Redis) Set(ctx context.Context, collection, key string, version int64, value []byte) error {
	if err := r.client.Set(ctx, r.dataKey(collection, version, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, collection string) error {
	if err := r.client.Incr(ctx, r.genKey(collection)).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}
