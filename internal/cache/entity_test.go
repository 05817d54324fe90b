package cache

import (
	"context"
	"testing"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway/gatewaytest"
	"collage-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*gatewaytest.Fake, *EntityCache) {
	t.Helper()
	fake := gatewaytest.New()
	fake.AddUser(&models.User{ID: "alice", Username: "alice"})
	fake.AddUser(&models.User{ID: "bob", Username: "bob"})
	fake.AddCollage(&models.Collage{ID: "c1", CreatorID: "alice"})
	fake.AddMembership("c1", "alice")
	return fake, NewEntityCache(fake)
}

func TestEntityCache_User(t *testing.T) {
	ctx := context.Background()
	fake, c := newFixture(t)

	u, err := c.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = c.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("GetUser"))

	c.InvalidateUser("alice")
	_, err = c.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("GetUser"))
}

func TestEntityCache_MissingUserIsNotCached(t *testing.T) {
	ctx := context.Background()
	fake, c := newFixture(t)

	_, err := c.User(ctx, "carol")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	fake.AddUser(&models.User{ID: "carol", Username: "carol"})
	u, err := c.User(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
}

func TestEntityCache_FriendshipIsSymmetric(t *testing.T) {
	ctx := context.Background()
	fake, c := newFixture(t)
	require.NoError(t, fake.CreateFriendship(ctx, &models.Friendship{
		ID: "f1", UserID: "alice", FriendID: "bob", Status: models.StatusPending,
	}))

	f, err := c.Friendship(ctx, "alice", "bob")
	require.NoError(t, err)
	g, err := c.Friendship(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Same(t, f, g)
	assert.Equal(t, 1, fake.Calls("GetFriendshipByPair"))

	require.NoError(t, fake.UpdateFriendshipStatus(ctx, "f1", models.StatusAccepted))
	c.InvalidateFriendship("bob", "alice")

	f, err = c.Friendship(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, f.Status)
}

func TestEntityCache_InvalidateUserDropsTheirPairs(t *testing.T) {
	ctx := context.Background()
	fake, c := newFixture(t)
	require.NoError(t, fake.CreateFriendship(ctx, &models.Friendship{
		ID: "f1", UserID: "alice", FriendID: "bob", Status: models.StatusPending,
	}))
	_, err := c.Friendship(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = c.Memberships(ctx, "alice")
	require.NoError(t, err)

	c.InvalidateUser("bob")
	_, err = c.Friendship(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("GetFriendshipByPair"))

	_, err = c.Memberships(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("ListMemberships"))
}

func TestEntityCache_Membership(t *testing.T) {
	ctx := context.Background()
	fake, c := newFixture(t)

	members, err := c.Members(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, fake.AddMember(ctx, "c1", "bob"))
	members, err = c.Members(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, members, 1, "served from cache until invalidated")

	c.InvalidateMembership("c1", "bob")
	members, err = c.Members(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	joined, err := c.Memberships(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "c1", joined[0].CollageID)
}

func TestEntityCache_Clear(t *testing.T) {
	ctx := context.Background()
	_, c := newFixture(t)

	_, err := c.User(ctx, "alice")
	require.NoError(t, err)
	_, err = c.Members(ctx, "c1")
	require.NoError(t, err)
	_, err = c.PendingInvites(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
