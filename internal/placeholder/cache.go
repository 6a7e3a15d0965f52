package placeholder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/immoshift/immoshift-web/internal/metrics"
)

// Store persists rendered cards by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Cache serves rendered cards from a Store, rendering on miss. Concurrent
// misses for the same key share one render.
type Cache struct {
	gen     *Generator
	store   Store
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCache returns a Cache over store. m may be nil.
func NewCache(gen *Generator, store Store, m *metrics.Metrics) *Cache {
	return &Cache{gen: gen, store: store, metrics: m}
}

// Key returns the content address of a w×h card for title.
func Key(title string, w, h int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%dx%d:%s", w, h, title)))
	return hex.EncodeToString(sum[:])
}

// PNG returns the PNG bytes for title at w×h.
func (c *Cache) PNG(ctx context.Context, title string, w, h int) ([]byte, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	key := Key(title, w, h)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "placeholder store read failed", "key", key, "error", err)
	}
	if ok {
		c.count("hit")
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		b, err := c.gen.Render(title, w, h)
		if err != nil {
			return nil, err
		}
		if c.metrics != nil {
			c.metrics.PlaceholderRenderDuration.Observe(time.Since(start).Seconds())
		}
		// the render is shared across waiters, so the write must outlive any one request
		if err := c.store.Put(context.WithoutCancel(ctx), key, b); err != nil {
			slog.WarnContext(ctx, "placeholder store write failed", "key", key, "error", err)
		}
		return b, nil
	})
	if err != nil {
		c.count("error")
		return nil, err
	}
	c.count("miss")
	return v.([]byte), nil
}

func (c *Cache) count(result string) {
	if c.metrics != nil {
		c.metrics.PlaceholderTotal.WithLabelValues(result).Inc()
	}
}

// DefaultMemoryEntries bounds a MemoryStore created with a non-positive size.
const DefaultMemoryEntries = 512

// MemoryStore is a bounded in-process Store evicting oldest entries first.
type MemoryStore struct {
	mu    sync.Mutex
	max   int
	data  map[string][]byte
	order []string
}

// NewMemoryStore returns a MemoryStore holding at most max entries.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = DefaultMemoryEntries
	}
	return &MemoryStore{max: max, data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	return b, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		s.data[key] = data
		return nil
	}
	for len(s.order) >= s.max {
		delete(s.data, s.order[0])
		s.order = s.order[1:]
	}
	s.data[key] = data
	s.order = append(s.order, key)
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
