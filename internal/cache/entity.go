package cache

import (
	"context"

	"collage-sync/internal/models"
)

// Source is the backend the entity cache reads through to
type Source interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetFriendshipByPair(ctx context.Context, a, b string) (*models.Friendship, error)
	ListMemberships(ctx context.Context, userID string) ([]models.Membership, error)
	ListMembers(ctx context.Context, collageID string) ([]models.Membership, error)
	ListPendingInvites(ctx context.Context, receiverID string) ([]*models.CollageInvite, error)
}

// PairKey is the order-independent key of a user pair
type PairKey struct {
	Low, High string
}

// NewPairKey normalizes (a, b) and (b, a) to the same key
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// Has reports whether userID is one side of the pair
func (k PairKey) Has(userID string) bool {
	return k.Low == userID || k.High == userID
}

// EntityCache caches what one signed-in identity reads repeatedly.
// Cached values are shared between callers and must not be modified.
type EntityCache struct {
	src Source

	users       *Cache[string, *models.User]
	friendships *Cache[PairKey, *models.Friendship]
	memberships *Cache[string, []models.Membership]
	members     *Cache[string, []models.Membership]
	invites     *Cache[string, []*models.CollageInvite]
}

// NewEntityCache creates an empty cache over src
func NewEntityCache(src Source) *EntityCache {
	return &EntityCache{
		src:         src,
		users:       New[string, *models.User](),
		friendships: New[PairKey, *models.Friendship](),
		memberships: New[string, []models.Membership](),
		members:     New[string, []models.Membership](),
		invites:     New[string, []*models.CollageInvite](),
	}
}

// User returns a user by id
func (c *EntityCache) User(ctx context.Context, id string) (*models.User, error) {
	return c.users.GetOrFetch(ctx, id, func(ctx context.Context) (*models.User, error) {
		return c.src.GetUser(ctx, id)
	})
}

// SeedUser stores a user that was just loaded elsewhere
func (c *EntityCache) SeedUser(u *models.User) {
	c.users.Set(u.ID, u)
}

// Friendship returns the friendship between a and b in either direction
func (c *EntityCache) Friendship(ctx context.Context, a, b string) (*models.Friendship, error) {
	return c.friendships.GetOrFetch(ctx, NewPairKey(a, b), func(ctx context.Context) (*models.Friendship, error) {
		return c.src.GetFriendshipByPair(ctx, a, b)
	})
}

// Memberships returns the collages userID belongs to
func (c *EntityCache) Memberships(ctx context.Context, userID string) ([]models.Membership, error) {
	return c.memberships.GetOrFetch(ctx, userID, func(ctx context.Context) ([]models.Membership, error) {
		return c.src.ListMemberships(ctx, userID)
	})
}

// Members returns the memberships of a collage
func (c *EntityCache) Members(ctx context.Context, collageID string) ([]models.Membership, error) {
	return c.members.GetOrFetch(ctx, collageID, func(ctx context.Context) ([]models.Membership, error) {
		return c.src.ListMembers(ctx, collageID)
	})
}

// PendingInvites returns the invites waiting for userID
func (c *EntityCache) PendingInvites(ctx context.Context, userID string) ([]*models.CollageInvite, error) {
	return c.invites.GetOrFetch(ctx, userID, func(ctx context.Context) ([]*models.CollageInvite, error) {
		return c.src.ListPendingInvites(ctx, userID)
	})
}

// InvalidateUser drops the user and every entry keyed by that user
func (c *EntityCache) InvalidateUser(id string) {
	c.users.Invalidate(id)
	c.memberships.Invalidate(id)
	c.invites.Invalidate(id)
	c.friendships.InvalidateFunc(func(k PairKey) bool { return k.Has(id) })
}

// InvalidateFriendship drops the pair entry for both directions
func (c *EntityCache) InvalidateFriendship(a, b string) {
	c.friendships.Invalidate(NewPairKey(a, b))
}

// InvalidateInvites drops the pending invite lists of the given receivers
func (c *EntityCache) InvalidateInvites(userIDs ...string) {
	c.invites.Invalidate(userIDs...)
}

// InvalidateMembership drops the member list of collageID and the
// membership lists of the given users
func (c *EntityCache) InvalidateMembership(collageID string, userIDs ...string) {
	c.members.Invalidate(collageID)
	c.memberships.Invalidate(userIDs...)
}

// Clear drops everything, used on sign-out
func (c *EntityCache) Clear() {
	c.users.Clear()
	c.friendships.Clear()
	c.memberships.Clear()
	c.members.Clear()
	c.invites.Clear()
}

// Len returns the total number of cached entries
func (c *EntityCache) Len() int {
	return c.users.Len() + c.friendships.Len() + c.memberships.Len() + c.members.Len() + c.invites.Len()
}
