package data

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"Itinera/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// memoryBackend keeps entries in a bounded in-process LRU with per-entry
// expiry. It is meant for single-instance deployments and tests.
type memoryBackend struct {
	// mu serialises writes against the read-modify-write in incr; the LRU
	// itself is thread-safe.
	mu      sync.Mutex
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

func newMemoryBackend(size int) (*memoryBackend, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create memory backend: %w", err)
	}
	return &memoryBackend{entries: entries, now: time.Now}, nil
}

func (b *memoryBackend) name() string { return model.CacheBackendMemory }

// lookup returns a live entry, evicting it if it has expired.
func (b *memoryBackend) lookup(key string) (memoryEntry, bool) {
	e, ok := b.entries.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !b.now().Before(e.expiresAt) {
		b.entries.Remove(key)
		return memoryEntry{}, false
	}
	return e, true
}

func (b *memoryBackend) get(_ context.Context, key string) (string, error) {
	e, ok := b.lookup(key)
	if !ok {
		return "", ErrCacheNotFound
	}
	return e.value, nil
}

func (b *memoryBackend) set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = b.now().Add(ttl)
	}
	b.mu.Lock()
	b.entries.Add(key, e)
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(key)
	if !ok {
		b.entries.Add(key, memoryEntry{value: "1", expiresAt: b.now().Add(ttl)})
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: value at %s is not an integer", key)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	b.entries.Add(key, e)
	return n, nil
}

func (b *memoryBackend) ping(context.Context) error { return nil }

func (b *memoryBackend) detail(context.Context) string {
	return fmt.Sprintf("entries=%d", b.entries.Len())
}

func (b *memoryBackend) close() error {
	b.entries.Purge()
	return nil
}
