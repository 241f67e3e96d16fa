package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"
)

// Cache stores serialized forecasts by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by a redigo connection pool
type RedisCache struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisPool creates a lazily dialing pool for addr
func NewRedisPool(addr, password string, db, maxIdle int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialPassword(password),
				redis.DialDatabase(db),
				redis.DialConnectTimeout(2*time.Second),
				redis.DialReadTimeout(2*time.Second),
				redis.DialWriteTimeout(2*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewRedisCache wraps pool; keys are stored under prefix
func NewRedisCache(pool *redis.Pool, prefix string) *RedisCache {
	return &RedisCache{pool: pool, prefix: prefix}
}

func (c *RedisCache) conn(ctx context.Context) (redis.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := c.pool.Get()
	if err := conn.Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get redis connection: %w", err)
	}
	return conn, nil
}

// Get returns the cached value, or ok=false on a miss
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := c.conn(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", c.prefix+key))
	if err == redis.ErrNil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores value with SETEX
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if _, err := conn.Do("SETEX", c.prefix+key, seconds, value); err != nil {
		return fmt.Errorf("redis SETEX %s: %w", key, err)
	}
	return nil
}

// Ping checks that Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return err
}

// Close releases the pool
func (c *RedisCache) Close() error {
	return c.pool.Close()
}

// MemoryCache is an in-process Cache with per-entry expiry and a size cap.
// When full, the least recently read entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value      []byte
	expiresAt  time.Time
	lastAccess time.Time
}

// NewMemoryCache creates a MemoryCache holding at most maxSize entries
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &MemoryCache{
		maxSize: maxSize,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	now := m.now()
	if now.After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	e.lastAccess = now
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range m.entries {
			if oldestKey == "" || e.lastAccess.Before(oldest) {
				oldestKey = k
				oldest = e.lastAccess
			}
		}
		delete(m.entries, oldestKey)
	}

	now := m.now()
	m.entries[key] = &memoryEntry{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return nil
}
