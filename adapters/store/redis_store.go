package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tollgate/core"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session records in Redis, shared by every service instance
type RedisStore struct {
	client          redis.UniversalClient
	prefix          string
	idleTTL         time.Duration
	checkThenUpdate bool
}

// NewRedisStore creates a new Redis session store. A non-positive idleTTL
// selects DefaultIdleTTL.
func NewRedisStore(client redis.UniversalClient, idleTTL time.Duration, opts ...Option) *RedisStore {
	o := buildOptions(opts)
	return &RedisStore{
		client:          client,
		prefix:          o.prefix,
		idleTTL:         normalizeIdleTTL(idleTTL),
		checkThenUpdate: o.checkThenUpdate,
	}
}

func (s *RedisStore) key(tokenID string) string {
	return s.prefix + tokenID
}

// IdleTTL returns the idle window applied on Start and Touch
func (s *RedisStore) IdleTTL() time.Duration {
	return s.idleTTL
}

// Start writes the session record with a fresh idle TTL
func (s *RedisStore) Start(ctx context.Context, tokenID, subject string) error {
	if err := s.client.Set(ctx, s.key(tokenID), subject, s.idleTTL).Err(); err != nil {
		return fmt.Errorf("%w: start session: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Touch resets the idle TTL of an existing record.
// EXPIRE only applies to existing keys, so the check and the refresh are one command.
func (s *RedisStore) Touch(ctx context.Context, tokenID string) (bool, error) {
	if s.checkThenUpdate {
		return s.touchCheckThenRefresh(ctx, tokenID)
	}

	ok, err := s.client.Expire(ctx, s.key(tokenID), s.idleTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: touch session: %v", core.ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (s *RedisStore) touchCheckThenRefresh(ctx context.Context, tokenID string) (bool, error) {
	key := s.key(tokenID)

	subject, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: touch session: %v", core.ErrStoreUnavailable, err)
	}

	if err := s.client.Set(ctx, key, subject, s.idleTTL).Err(); err != nil {
		return false, fmt.Errorf("%w: touch session: %v", core.ErrStoreUnavailable, err)
	}
	return true, nil
}

// End deletes the session record
func (s *RedisStore) End(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, s.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: end session: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup reads a session record and its remaining idle TTL without refreshing it
func (s *RedisStore) Lookup(ctx context.Context, tokenID string) (core.Session, bool, error) {
	key := s.key(tokenID)

	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.Session{}, false, fmt.Errorf("%w: lookup session: %v", core.ErrStoreUnavailable, err)
	}

	subject, err := getCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Session{}, false, nil
		}
		return core.Session{}, false, fmt.Errorf("%w: lookup session: %v", core.ErrStoreUnavailable, err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil {
		return core.Session{}, false, fmt.Errorf("%w: lookup session: %v", core.ErrStoreUnavailable, err)
	}

	return core.Session{TokenID: tokenID, Subject: subject, IdleTTL: ttl}, true, nil
}

// Ping checks that Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}
