package nonce

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
)

const nonceKeyPrefix = "bm:nonce:"

// consumeScript performs the compare-and-increment atomically on the server
// so two concurrent mints cannot both consume the same nonce. Returns the new
// nonce on success, -1 on mismatch. Key expiry doubles as record eviction:
// after the TTL lapses the next read sees 0 again.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current ~= tonumber(ARGV[1]) then
  return -1
end
redis.call('SET', KEYS[1], current + 1, 'PX', ARGV[2])
return current + 1
`)

// RedisStore is the production nonce backend for multi-instance deployments:
// the TTL lives in Redis itself rather than in an explicit timestamp column.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL overrides the record lifetime.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore constructs a Redis-backed nonce store. The client lifecycle
// is managed by the caller.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Current(ctx context.Context, holder id.HolderID) (uint64, error) {
	val, err := s.client.Get(ctx, nonceKey(holder)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	nonce, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored nonce %q: %w", val, err)
	}
	return nonce, nil
}

func (s *RedisStore) Consume(ctx context.Context, holder id.HolderID, supplied uint64) error {
	res, err := consumeScript.Run(ctx, s.client,
		[]string{nonceKey(holder)},
		supplied, s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("consume nonce: %w", err)
	}
	if res < 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func nonceKey(holder id.HolderID) string {
	return nonceKeyPrefix + holder.String()
}
