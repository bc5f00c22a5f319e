package repository

import (
	"context"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
)

// MemoryCooldownStore keeps last-fired timestamps in process memory. State
// dies with the process, so it suits tests and single-node development; the
// Redis store is the durable one.
type MemoryCooldownStore struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// WithClock overrides the time source.
func (s *MemoryCooldownStore) WithClock(now func() time.Time) *MemoryCooldownStore {
	s.now = now
	return s
}

func cooldownKey(rule string, key models.EntityKey) string {
	return rule + ":" + key.Symbol + ":" + key.Timeframe
}

func (s *MemoryCooldownStore) Allowed(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[cooldownKey(rule, key)]
	if !ok {
		return true, nil
	}
	return s.now().Sub(last) >= window, nil
}

// TryAcquire checks and records under one lock, so concurrent callers for the
// same (rule, entity) settle on exactly one winner.
func (s *MemoryCooldownStore) TryAcquire(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error) {
	k := cooldownKey(rule, key)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.last[k]; ok && now.Sub(last) < window {
		return false, nil
	}
	s.last[k] = now
	return true, nil
}

func (s *MemoryCooldownStore) Close() error { return nil }

var _ repository.CooldownStore = (*MemoryCooldownStore)(nil)
