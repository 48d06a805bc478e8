package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nyumatflix:upstream:"

// Manager caches upstream responses in memory and, when configured, in Redis.
// The memory tier is bounded by entry count; every entry carries its own expiry.
type Manager struct {
	memory *lru.Cache[string, *RequestData]
	redis  *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	hits   int64
	misses int64
}

// RequestData represents a cached response body
type RequestData struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Redis   bool  `json:"redis"`
}

// NewManager creates a cache manager. redisClient may be nil.
func NewManager(size int, redisClient *redis.Client, logger *slog.Logger) (*Manager, error) {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	memory, err := lru.New[string, *RequestData](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &Manager{
		memory: memory,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Key hashes the given parts into a fixed-length cache key.
func Key(parts ...string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "|")), 16)
}

// Get returns the cached body for key if present and not expired.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		if time.Now().Before(data.ExpiresAt) {
			m.record(true)
			return data.Data, true
		}
		m.memory.Remove(key)
	}

	if m.redis != nil {
		body, err := m.redis.Get(ctx, redisKeyPrefix+key).Bytes()
		switch {
		case err == nil:
			ttl := time.Minute
			if remaining, err := m.redis.TTL(ctx, redisKeyPrefix+key).Result(); err == nil && remaining > 0 {
				ttl = remaining
			}
			m.memory.Add(key, &RequestData{Key: key, Data: body, ExpiresAt: time.Now().Add(ttl)})
			m.record(true)
			return body, true
		case !errors.Is(err, redis.Nil):
			m.logger.Warn("cache.redis.get_failed", "key", key, "error", err)
		}
	}

	m.record(false)
	return nil, false
}

// Set stores body under key for ttl.
func (m *Manager) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.memory.Add(key, &RequestData{
		Key:       key,
		Data:      body,
		ExpiresAt: time.Now().Add(ttl),
	})

	if m.redis != nil {
		if err := m.redis.Set(ctx, redisKeyPrefix+key, body, ttl).Err(); err != nil {
			m.logger.Warn("cache.redis.set_failed", "key", key, "error", err)
		}
	}
}

// Cleanup removes expired entries from the memory tier and returns how many were dropped.
// Redis expires its own keys.
func (m *Manager) Cleanup() int {
	now := time.Now()
	removed := 0
	for _, key := range m.memory.Keys() {
		if data, ok := m.memory.Peek(key); ok && now.After(data.ExpiresAt) {
			m.memory.Remove(key)
			removed++
		}
	}
	return removed
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Entries: m.memory.Len(),
		Hits:    m.hits,
		Misses:  m.misses,
		Redis:   m.redis != nil,
	}
}

// Close releases the Redis connection if any.
func (m *Manager) Close() error {
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}

func (m *Manager) record(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}
