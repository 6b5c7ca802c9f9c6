package store

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/tollgate/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// commandHook runs fn around every command with the given name
type commandHook struct {
	name   string
	before func()
	after  func()
}

func (h commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.name && h.before != nil {
			h.before()
		}
		err := next(ctx, cmd)
		if cmd.Name() == h.name && h.after != nil {
			h.after()
		}
		return err
	}
}

func (h commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, 600*time.Second)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "jti-1", "42"))

	val, err := mr.Get("sess:jti-1")
	require.NoError(t, err)
	require.Equal(t, "42", val)
	require.Equal(t, 600*time.Second, mr.TTL("sess:jti-1"))
}

func TestRedisStoreCustomPrefix(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, time.Minute, WithPrefix("tollgate:session:"))

	require.NoError(t, s.Start(context.Background(), "jti-1", "42"))
	require.True(t, mr.Exists("tollgate:session:jti-1"))
	require.False(t, mr.Exists("sess:jti-1"))
}

func TestRedisStoreDefaultIdleTTL(t *testing.T) {
	_, client := newMiniredis(t)

	require.Equal(t, DefaultIdleTTL, NewRedisStore(client, 0).IdleTTL())
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "jti-1", "42"))
	mr.SetError("ERR store offline")

	ok, err := s.Touch(ctx, "jti-1")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	require.False(t, ok)

	require.ErrorIs(t, s.Start(ctx, "jti-2", "42"), core.ErrStoreUnavailable)
	require.ErrorIs(t, s.End(ctx, "jti-1"), core.ErrStoreUnavailable)
	require.ErrorIs(t, s.Ping(ctx), core.ErrStoreUnavailable)

	_, _, err = s.Lookup(ctx, "jti-1")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestRedisStoreCanceledContext(t *testing.T) {
	_, client := newMiniredis(t)
	s := NewRedisStore(client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := s.Touch(ctx, "jti-1")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	require.False(t, ok)
}

func TestRedisStoreAtomicTouchDoesNotResurrect(t *testing.T) {
	mr, client := newMiniredis(t)
	idle := 2 * time.Second

	// the record expires right before the refresh reaches Redis
	client.AddHook(commandHook{name: "expire", before: func() { mr.FastForward(idle) }})
	s := NewRedisStore(client, idle)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "jti-1", "42"))

	ok, err := s.Touch(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists("sess:jti-1"))
}

func TestRedisStoreCheckThenRefreshRace(t *testing.T) {
	mr, client := newMiniredis(t)
	idle := 2 * time.Second

	// the record expires between the existence check and the refresh
	hook := commandHook{name: "get", after: func() { mr.FastForward(idle) }}
	client.AddHook(hook)
	s := NewRedisStore(client, idle, WithCheckThenRefresh())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "jti-1", "42"))

	ok, err := s.Touch(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok, "the narrow race reports the session as live")

	// the resurrected record gets exactly one idle window
	require.True(t, mr.Exists("sess:jti-1"))
	require.Equal(t, idle, mr.TTL("sess:jti-1"))

	mr.FastForward(idle)
	require.False(t, mr.Exists("sess:jti-1"), "resurrection never outlives one idle window")
}

func TestRedisStoreLookupReportsRemainingTTL(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "jti-1", "42"))
	mr.FastForward(4 * time.Second)

	sess, found, err := s.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, core.Session{TokenID: "jti-1", Subject: "42", IdleTTL: 6 * time.Second}, sess)

	// lookup does not refresh
	mr.FastForward(6 * time.Second)
	_, found, err = s.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, found)
}
