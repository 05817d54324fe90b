package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/cache"
	"collage-sync/internal/gateway/gatewaytest"
	"collage-sync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCleaner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingCleaner) Trigger(collageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, collageID)
}

func (r *recordingCleaner) triggered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*gatewaytest.Fake, *recordingCleaner, *Assembler) {
	t.Helper()
	fake := gatewaytest.New()
	fake.Now = func() time.Time { return now }
	fake.AddUser(&models.User{ID: "alice", Username: "alice"})
	fake.AddUser(&models.User{ID: "bob", Username: "bob"})

	cleaner := &recordingCleaner{}
	a := NewAssembler(fake, cache.NewEntityCache(fake), cleaner, zerolog.Nop()).
		WithClock(func() time.Time { return now })
	return fake, cleaner, a
}

func TestFetchSession(t *testing.T) {
	ctx := context.Background()
	alice := &models.User{ID: "alice", Username: "alice"}
	bob := &models.User{ID: "bob", Username: "bob"}

	t.Run("active collage with ordered photos", func(t *testing.T) {
		fake, cleaner, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice", ExpiresAt: now.Add(time.Hour)})
		fake.AddMembership("c1", "alice")
		fake.AddMembership("c1", "bob")
		fake.AddPhoto(&models.Photo{ID: "p2", CollageID: "c1", OwnerID: "bob", CreatedAt: now.Add(2 * time.Second)})
		fake.AddPhoto(&models.Photo{ID: "p1", CollageID: "c1", OwnerID: "alice", CreatedAt: now.Add(time.Second)})

		s, err := a.FetchSession(ctx, "c1", bob)
		require.NoError(t, err)
		assert.False(t, s.Expired)
		assert.Equal(t, "alice", s.Creator.ID)
		assert.Len(t, s.Members, 2)
		require.Len(t, s.Photos, 2)
		assert.Equal(t, "p1", s.Photos[0].ID)
		assert.Equal(t, "p2", s.Photos[1].ID)
		assert.Empty(t, cleaner.triggered())
	})

	t.Run("creator falls back to the requester", func(t *testing.T) {
		fake, _, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "ghost", ExpiresAt: now.Add(time.Hour)})
		fake.AddMembership("c1", "alice")

		s, err := a.FetchSession(ctx, "c1", alice)
		require.NoError(t, err)
		assert.Same(t, alice, s.Creator)
	})

	t.Run("expired collage has no photos and is cleaned up", func(t *testing.T) {
		fake, cleaner, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice", ExpiresAt: now.Add(-time.Minute)})
		fake.AddMembership("c1", "alice")
		fake.AddPhoto(&models.Photo{ID: "p1", CollageID: "c1", OwnerID: "alice"})

		s, err := a.FetchSession(ctx, "c1", alice)
		require.NoError(t, err)
		assert.True(t, s.Expired)
		assert.NotNil(t, s.Photos)
		assert.Empty(t, s.Photos)
		assert.Equal(t, []string{"c1"}, cleaner.triggered())
		assert.Equal(t, 0, fake.Calls("ListPhotos"))
	})

	t.Run("expiry equal to now counts as expired", func(t *testing.T) {
		fake, _, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice", ExpiresAt: now})
		fake.AddMembership("c1", "alice")

		s, err := a.FetchSession(ctx, "c1", alice)
		require.NoError(t, err)
		assert.True(t, s.Expired)
	})

	t.Run("missing collage", func(t *testing.T) {
		_, _, a := setup(t)
		_, err := a.FetchSession(ctx, "nope", alice)
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("member lookups go through the cache", func(t *testing.T) {
		fake, _, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice", ExpiresAt: now.Add(time.Hour)})
		fake.AddMembership("c1", "alice")

		_, err := a.FetchSession(ctx, "c1", alice)
		require.NoError(t, err)
		_, err = a.FetchSession(ctx, "c1", alice)
		require.NoError(t, err)
		assert.Equal(t, 1, fake.Calls("ListMembers"))
		assert.Equal(t, 1, fake.Calls("GetUser"))
		assert.Equal(t, 2, fake.Calls("ListPhotos"))
	})
}

func TestFetchAllSessionsForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("partitions and skips vanished collages", func(t *testing.T) {
		fake, cleaner, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "active", CreatorID: "alice", ExpiresAt: now.Add(time.Hour)})
		fake.AddCollage(&models.Collage{ID: "boundary", CreatorID: "alice", ExpiresAt: now})
		fake.AddCollage(&models.Collage{ID: "old", CreatorID: "alice", ExpiresAt: now.Add(-time.Hour)})
		for _, id := range []string{"active", "boundary", "old", "vanished"} {
			fake.AddMembership(id, "alice")
		}

		p, err := a.FetchAllSessionsForUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, p.Active, 1)
		assert.Equal(t, "active", p.Active[0].ID)
		assert.Len(t, p.Expired, 2)
		assert.ElementsMatch(t, []string{"boundary", "old"}, cleaner.triggered())
	})

	t.Run("no memberships", func(t *testing.T) {
		_, _, a := setup(t)
		p, err := a.FetchAllSessionsForUser(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, p.Active)
		assert.Empty(t, p.Expired)
	})

	t.Run("transport failure fails the whole fetch", func(t *testing.T) {
		fake, _, a := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice", ExpiresAt: now.Add(time.Hour)})
		fake.AddMembership("c1", "alice")
		fake.Fail("GetCollage", apperr.New(apperr.Transport, "get collage", "offline"))

		_, err := a.FetchAllSessionsForUser(ctx, "alice")
		assert.True(t, apperr.Is(err, apperr.Transport))
	})
}

func TestPartition(t *testing.T) {
	collages := []*models.Collage{
		{ID: "a", ExpiresAt: now.Add(time.Nanosecond)},
		{ID: "b", ExpiresAt: now},
		nil,
		{ID: "c", ExpiresAt: now.Add(-time.Nanosecond)},
	}
	p := Partition(collages, now)
	assert.Len(t, p.Active, 1)
	assert.Len(t, p.Expired, 2)
	assert.Equal(t, 3, len(p.Active)+len(p.Expired))
}
