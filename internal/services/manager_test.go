package services

import (
	"context"
	"testing"
	"time"

	"collage-sync/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ClientForToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	token, err := e.manager.Auth().GenerateJWT("alice")
	require.NoError(t, err)

	c1, err := e.manager.ClientForToken(ctx, token)
	require.NoError(t, err)
	c2, err := e.manager.ClientForToken(ctx, token)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, "alice", c1.UserID())
	assert.Equal(t, 1, e.manager.Len())

	_, err = e.manager.ClientForToken(ctx, "")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	ghost, err := e.manager.Auth().GenerateJWT("ghost")
	require.NoError(t, err)
	_, err = e.manager.ClientForToken(ctx, ghost)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestManager_SignOutClearsCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.activeCollage("c1", "alice")

	c := e.client(t, "alice")
	_, err := c.Session(ctx, "c1")
	require.NoError(t, err)
	assert.Positive(t, c.cache.Len())

	e.manager.SignOut("alice")
	assert.Zero(t, c.cache.Len())
	assert.Zero(t, e.manager.Len())

	fresh := e.client(t, "alice")
	assert.NotSame(t, c, fresh)

	e.manager.SignOut("nobody")
}

func TestManager_EvictIdle(t *testing.T) {
	ctx := context.Background()

	t.Run("idle client is rebuilt cold", func(t *testing.T) {
		e := newEnvWith(t, func(d *Deps) { d.IdleTTL = 10 * time.Minute })
		e.activeCollage("c1", "alice")

		c := e.client(t, "alice")
		_, err := c.Session(ctx, "c1")
		require.NoError(t, err)
		listed := e.fake.Calls("ListMembers")

		e.clock.Advance(5 * time.Minute)
		assert.Zero(t, e.manager.EvictIdle())
		_, err = c.Session(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, listed, e.fake.Calls("ListMembers"), "served from cache")

		e.clock.Advance(11 * time.Minute)
		assert.Equal(t, 1, e.manager.EvictIdle())
		assert.Zero(t, e.manager.Len())
		assert.Zero(t, c.cache.Len())
		select {
		case <-c.Done():
		default:
			t.Fatal("evicted client was not closed")
		}

		fresh := e.client(t, "alice")
		assert.NotSame(t, c, fresh)
		_, err = fresh.Session(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, listed+1, e.fake.Calls("ListMembers"), "a rebuilt client starts cold")
	})

	t.Run("use keeps a client alive", func(t *testing.T) {
		e := newEnvWith(t, func(d *Deps) { d.IdleTTL = 10 * time.Minute })
		c := e.client(t, "alice")

		e.clock.Advance(8 * time.Minute)
		e.client(t, "alice")
		e.clock.Advance(8 * time.Minute)
		assert.Zero(t, e.manager.EvictIdle())
		assert.Same(t, c, e.client(t, "alice"))
	})

	t.Run("held client is kept", func(t *testing.T) {
		e := newEnvWith(t, func(d *Deps) { d.IdleTTL = 10 * time.Minute })
		c := e.client(t, "alice")
		release := c.Hold()

		e.clock.Advance(time.Hour)
		assert.Zero(t, e.manager.EvictIdle())

		release()
		release()
		assert.Zero(t, e.manager.EvictIdle(), "releasing counts as use")
		e.clock.Advance(11 * time.Minute)
		assert.Equal(t, 1, e.manager.EvictIdle())
	})

	t.Run("zero ttl disables eviction", func(t *testing.T) {
		e := newEnv(t)
		e.client(t, "alice")
		e.clock.Advance(24 * time.Hour)
		assert.Zero(t, e.manager.EvictIdle())
		assert.Equal(t, 1, e.manager.Len())
	})
}

func TestManager_SignOutClosesClient(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "alice")

	e.manager.SignOut("alice")
	select {
	case <-c.Done():
	default:
		t.Fatal("signed out client was not closed")
	}
}
