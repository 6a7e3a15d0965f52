// internal/storage/memory.go
// Package storage holds the navigation states that carry a successful lead
// submission across the redirect to the thank-you page. States are keyed by
// an opaque ULID token and expire after a TTL.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound = errors.New("not found") // Returned when a token is unknown or expired
	ErrConflict = errors.New("conflict")  // Returned when a token already exists
)

// NavState is one persisted navigation state.
type NavState struct {
	Token       string
	EbookID     int64
	EbookTitle  string
	DownloadURL string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store persists navigation states. Implemented by the in-memory and
// PostgreSQL backends.
type Store interface {
	Put(ctx context.Context, s NavState) error                // Insert a new state
	Get(ctx context.Context, token string) (*NavState, error) // Fetch a live state
	Purge(ctx context.Context) (int64, error)                 // Drop expired states
	Ping(ctx context.Context) error                           // Readiness probe
	Close()
}

// NewToken returns a fresh state token.
func NewToken() string {
	return ulid.Make().String()
}

// memory implements Store with a map. It is intended for single-instance
// deployments and tests.
type memory struct {
	mu     sync.RWMutex
	states map[string]NavState
	now    func() time.Time
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*memory)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *memory) { m.now = now }
}

// NewMemory creates a new in-memory storage implementation.
func NewMemory(opts ...MemoryOption) Store {
	m := &memory{states: make(map[string]NavState), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memory) Put(ctx context.Context, s NavState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.states[s.Token]; exists && m.now().Before(old.ExpiresAt) {
		return ErrConflict
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	m.states[s.Token] = s
	return nil
}

func (m *memory) Get(ctx context.Context, token string) (*NavState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.states[token]
	if !exists || !m.now().Before(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memory) Purge(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := m.now()
	for token, s := range m.states {
		if !now.Before(s.ExpiresAt) {
			delete(m.states, token)
			n++
		}
	}
	return n, nil
}

func (m *memory) Ping(ctx context.Context) error { return nil }

func (m *memory) Close() {}
