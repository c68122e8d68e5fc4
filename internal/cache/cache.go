// Package cache кеширует ответы сервиса данных по ключу «коллекция + параметры фильтра».
// Любая запись в коллекцию делает недействительными все её ключи. Каждая коллекция имеет
// поколение: загрузка, начатая до инвалидации, не сохраняет результат и не раздаёт его
// запросам, пришедшим после неё.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache описывает хранилище закешированных ответов.
type Cache interface {
	// Get возвращает сохранённое значение; false означает промах.
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	// Version возвращает текущее поколение коллекции.
	Version(ctx context.Context, collection string) (int64, error)
	// Set сохраняет значение, загруженное при поколении version. Если поколение
	// с тех пор сменилось, значение не становится видимым для Get.
	Set(ctx context.Context, collection, key string, version int64, value []byte) error
	// Invalidate делает недействительными все ключи коллекции и сменяет её поколение.
	Invalidate(ctx context.Context, collection string) error
}

// Stats содержит счётчики обращений к кешу.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Loader объединяет кеш с загрузкой из источника и схлопывает параллельные загрузки одного ключа.
type Loader struct {
	cache  Cache
	group  singleflight.Group
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLoader создаёт загрузчик поверх кеша.
func NewLoader(c Cache, logger *zap.Logger) *Loader {
	return &Loader{cache: c, logger: logger}
}

// Stats возвращает счётчики попаданий и промахов.
func (l *Loader) Stats() Stats {
	return Stats{Hits: l.hits.Load(), Misses: l.misses.Load()}
}

// Invalidate сбрасывает коллекцию. Ошибка кеша только логируется: данные источника уже изменены.
func (l *Loader) Invalidate(ctx context.Context, collection string) {
	if err := l.cache.Invalidate(ctx, collection); err != nil {
		l.logger.Warn("cache invalidate error", zap.String("collection", collection), zap.Error(err))
	}
}

// Fetch возвращает значение из кеша или загружает его через fetch и сохраняет.
// Недоступность кеша не мешает загрузке из источника.
func Fetch[T any](ctx context.Context, l *Loader, collection, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	version, err := l.cache.Version(ctx, collection)
	if err != nil {
		l.logger.Warn("cache version error", zap.String("collection", collection), zap.Error(err))
		l.misses.Add(1)
		return fetch(ctx)
	}

	data, ok, err := l.cache.Get(ctx, collection, key)
	if err != nil {
		l.logger.Warn("cache get error", zap.String("collection", collection), zap.Error(err))
	}
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			l.hits.Add(1)
			return v, nil
		}
		l.logger.Warn("cache entry corrupted", zap.String("collection", collection), zap.String("key", key))
	}
	l.misses.Add(1)

	flight := fmt.Sprintf("%s\x00%d\x00%s", collection, version, key)
	res, err, _ := l.group.Do(flight, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cache entry: %w", err)
		}
		if err := l.cache.Set(ctx, collection, key, version, encoded); err != nil {
			l.logger.Warn("cache set error", zap.String("collection", collection), zap.Error(err))
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory хранит ответы в памяти процесса.
type Memory struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	items    map[string]map[string]memoryEntry
	versions map[string]int64
}

var _ Cache = (*Memory)(nil)

// NewMemory создаёт кеш в памяти; ttl <= 0 отключает истечение записей.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]map[string]memoryEntry),
		versions: make(map[string]int64),
	}
}

func (m *Memory) Get(_ context.Context, collection, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[collection][key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		return nil, false, nil
	}
	return e.data, true, nil
}

func (m *Memory) Version(_ context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[collection], nil
}

func (m *Memory) Set(_ context.Context, collection, key string, version int64, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versions[collection] != version {
		return nil
	}

	bucket, ok := m.items[collection]
	if !ok {
		bucket = make(map[string]memoryEntry)
		m.items[collection] = bucket
	}

	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	bucket[key] = memoryEntry{data: value, expires: expires}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, collection)
	m.versions[collection]++
	return nil
}
