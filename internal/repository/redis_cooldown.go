package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
)

// tryAcquireScript compares the stored last-fired timestamp against the
// window and claims the slot in the same Redis call, so near-simultaneous
// evaluations of one (rule, entity) accept exactly one winner even across
// processes. Timestamps and windows are unix milliseconds; the key expires
// with the window so idle entities clean themselves up.
var tryAcquireScript = redis.NewScript(`
local last = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if last and (now - tonumber(last)) < window then
    return 0
end
redis.call('SET', KEYS[1], now, 'PX', window)
return 1
`)

// RedisCooldownStore is the durable cooldown store.
type RedisCooldownStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCooldownStore(client *redis.Client, prefix string) repository.CooldownStore {
	if prefix == "" {
		prefix = "signalflow"
	}
	return &RedisCooldownStore{client: client, prefix: prefix}
}

func (s *RedisCooldownStore) key(rule string, key models.EntityKey) string {
	return fmt.Sprintf("%s:cooldown:%s:%s:%s", s.prefix, rule, key.Symbol, key.Timeframe)
}

func (s *RedisCooldownStore) Allowed(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error) {
	last, err := s.client.Get(ctx, s.key(rule, key)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("cooldown get: %w", err)
	}
	return time.Now().UnixMilli()-last >= window.Milliseconds(), nil
}

func (s *RedisCooldownStore) TryAcquire(ctx context.Context, rule string, key models.EntityKey, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	res, err := tryAcquireScript.Run(ctx, s.client,
		[]string{s.key(rule, key)},
		time.Now().UnixMilli(), window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cooldown acquire: %w", err)
	}
	return res == 1, nil
}

func (s *RedisCooldownStore) Close() error { return nil }
