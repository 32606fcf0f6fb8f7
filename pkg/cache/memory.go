package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	counter   int64
	set       map[string]struct{}
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a process-local stand-in for RedisCache used when the
// service runs without Redis and in tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	subs    []memorySubscriber
	now     func() time.Time
}

type memorySubscriber struct {
	prefix string
	handle func(channel string, payload []byte)
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) lookup(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry{data: data}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	e := m.lookup(key)
	m.mu.Unlock()

	if e == nil || e.data == nil {
		return ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryCache) IncrementWithin(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &memoryEntry{expiresAt: m.now().Add(window)}
		m.entries[key] = e
	}
	e.counter++
	return e.counter, nil
}

func (m *MemoryCache) SAdd(ctx context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &memoryEntry{set: make(map[string]struct{})}
		m.entries[key] = e
	}
	for _, member := range members {
		e.set[toString(member)] = struct{}{}
	}
	return nil
}

func (m *MemoryCache) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil, nil
	}
	out := make([]string, 0, len(e.set))
	for member := range e.set {
		out = append(out, member)
	}
	return out, nil
}

func (m *MemoryCache) SRem(ctx context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.lookup(key); e != nil {
		for _, member := range members {
			delete(e.set, toString(member))
		}
	}
	return nil
}

func (m *MemoryCache) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.mu.Lock()
	subs := append([]memorySubscriber(nil), m.subs...)
	m.mu.Unlock()

	for _, sub := range subs {
		if strings.HasPrefix(channel, sub.prefix) {
			sub.handle(channel, data)
		}
	}
	return nil
}

// Subscribe supports trailing-wildcard patterns only ("prefix*").
func (m *MemoryCache) Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error {
	m.mu.Lock()
	m.subs = append(m.subs, memorySubscriber{prefix: strings.TrimSuffix(pattern, "*"), handle: handle})
	m.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

func (m *MemoryCache) Ping(ctx context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, _ := json.Marshal(v)
	return string(data)
}
