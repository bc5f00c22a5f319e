package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
	svccache "SignalFlow/internal/service/cache"
)

// RedisSubscriptionStore holds per-consumer delivery filters in Redis hashes.
// A consumer with no stored row gets the opt-out default (enabled, every
// table on) without a round trip being wasted on persisting it; the row is
// created lazily on the first write. Reads go through a short TTL cache since
// the dispatcher consults subscriptions on every signal.
type RedisSubscriptionStore struct {
	client   *redis.Client
	prefix   string
	tables   []string
	cache    *svccache.TTLCache
	cacheTTL time.Duration
}

func NewRedisSubscriptionStore(client *redis.Client, prefix string, tables []string) repository.SubscriptionStore {
	if prefix == "" {
		prefix = "signalflow"
	}
	return &RedisSubscriptionStore{
		client:   client,
		prefix:   prefix,
		tables:   tables,
		cache:    svccache.NewTTLCache(),
		cacheTTL: 5 * time.Second,
	}
}

func (s *RedisSubscriptionStore) subKey(consumerID string) string {
	return s.prefix + ":sub:" + consumerID
}

func (s *RedisSubscriptionStore) consumersKey() string {
	return s.prefix + ":sub:consumers"
}

func (s *RedisSubscriptionStore) defaultSubscription(consumerID string) models.Subscription {
	sub := models.Subscription{
		ConsumerID: consumerID,
		Enabled:    true,
		Tables:     make(map[string]bool, len(s.tables)),
	}
	for _, t := range s.tables {
		sub.Tables[t] = true
	}
	return sub
}

func (s *RedisSubscriptionStore) Get(ctx context.Context, consumerID string) (models.Subscription, error) {
	if v, ok := s.cache.Get(consumerID); ok {
		if sub, ok2 := v.(models.Subscription); ok2 {
			return sub, nil
		}
	}

	fields, err := s.client.HGetAll(ctx, s.subKey(consumerID)).Result()
	if err != nil {
		return models.Subscription{}, fmt.Errorf("subscription get: %w", err)
	}
	if len(fields) == 0 {
		sub := s.defaultSubscription(consumerID)
		s.cache.Set(consumerID, sub, s.cacheTTL)
		return sub, nil
	}

	sub := models.Subscription{
		ConsumerID: consumerID,
		Enabled:    fields["enabled"] == "1",
		Tables:     make(map[string]bool, len(s.tables)),
	}
	for k, v := range fields {
		if t, ok := strings.CutPrefix(k, "table:"); ok {
			sub.Tables[t] = v == "1"
		}
	}
	// Tables added after the row was written default to on.
	for _, t := range s.tables {
		if _, ok := sub.Tables[t]; !ok {
			sub.Tables[t] = true
		}
	}
	s.cache.Set(consumerID, sub, s.cacheTTL)
	return sub, nil
}

// materialize writes the stored row on first mutation, starting from the
// current (possibly default) view.
func (s *RedisSubscriptionStore) materialize(ctx context.Context, sub models.Subscription) error {
	values := make(map[string]interface{}, len(sub.Tables)+1)
	values["enabled"] = boolField(sub.Enabled)
	for t, on := range sub.Tables {
		values["table:"+t] = boolField(on)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.subKey(sub.ConsumerID), values)
	pipe.SAdd(ctx, s.consumersKey(), sub.ConsumerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("subscription write: %w", err)
	}
	s.cache.Set(sub.ConsumerID, sub, s.cacheTTL)
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *RedisSubscriptionStore) SetEnabled(ctx context.Context, consumerID string, enabled bool) error {
	sub, err := s.Get(ctx, consumerID)
	if err != nil {
		return err
	}
	sub.Enabled = enabled
	return s.materialize(ctx, sub)
}

func (s *RedisSubscriptionStore) SetTable(ctx context.Context, consumerID, table string, enabled bool) error {
	sub, err := s.Get(ctx, consumerID)
	if err != nil {
		return err
	}
	sub.Tables[table] = enabled
	return s.materialize(ctx, sub)
}

func (s *RedisSubscriptionStore) SetAllTables(ctx context.Context, consumerID string, enabled bool) error {
	sub, err := s.Get(ctx, consumerID)
	if err != nil {
		return err
	}
	for t := range sub.Tables {
		sub.Tables[t] = enabled
	}
	return s.materialize(ctx, sub)
}

// ConsumersFor lists consumers currently accepting signals from table. Only
// consumers with a stored row are known; defaulted ones are invisible here,
// which is fine since delivery targets register themselves on startup.
func (s *RedisSubscriptionStore) ConsumersFor(ctx context.Context, table string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.consumersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("subscription consumers: %w", err)
	}
	var out []string
	for _, id := range ids {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sub.Allows(table) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *RedisSubscriptionStore) Close() error { return nil }
