package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// MemoryConfig bounds the in-memory repository. Zero values mean unbounded.
type MemoryConfig struct {
	// Capacity is the maximum number of sessions kept; the least recently used one is evicted.
	Capacity int
	// TTL expires sessions that were not written for this long.
	TTL time.Duration
}

// Memory is an in-process Repository backed by an expirable LRU cache.
type Memory struct {
	// mu makes Create's check-and-insert atomic.
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

// NewMemory creates an in-memory repository.
func NewMemory(cfg MemoryConfig, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}

	onEvict := func(id string, s *Session) {
		logger.Debug("session evicted",
			zap.String("session_id", id),
			zap.Int("question_count", s.QuestionCount),
		)
	}

	return &Memory{
		sessions: expirable.NewLRU[string, *Session](max(cfg.Capacity, 0), onEvict, cfg.TTL),
	}
}

func (m *Memory) Create(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Contains ignores expiry, Peek does not.
	if _, ok := m.sessions.Peek(s.ID); ok {
		return fmt.Errorf("%w: %s", ErrExists, s.ID)
	}
	m.sessions.Add(s.ID, s.Clone())
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *Memory) Update(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions.Peek(s.ID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	m.sessions.Add(s.ID, s.Clone())
	return nil
}

func (m *Memory) List(_ context.Context) ([]*Session, error) {
	values := m.sessions.Values()
	out := make([]*Session, 0, len(values))
	for _, s := range values {
		out = append(out, s.Clone())
	}
	slices.SortFunc(out, func(a, b *Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
