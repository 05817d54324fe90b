package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/cache"
	"collage-sync/internal/lifecycle"
	"collage-sync/internal/models"
	"collage-sync/internal/push"
	"collage-sync/internal/realtime"
	"collage-sync/internal/session"
	"collage-sync/internal/transform"

	"github.com/rs/zerolog"
)

const notifyTimeout = 10 * time.Second

// Client is the session of one signed-in identity. It owns that identity's
// entity cache, session assembler and transform reconciler.
type Client struct {
	deps       Deps
	fanout     func(from *Client, fn func(*cache.EntityCache))
	userID     string
	cache      *cache.EntityCache
	assembler  *session.Assembler
	transforms *transform.Reconciler
	log        zerolog.Logger

	lastUsed  atomic.Int64
	holds     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(deps Deps, user *models.User, fanout func(*Client, func(*cache.EntityCache))) *Client {
	entities := cache.NewEntityCache(deps.Gateway)
	entities.SeedUser(user)

	logger := deps.Log.With().Str("user_id", user.ID).Logger()
	c := &Client{
		deps:       deps,
		fanout:     fanout,
		userID:     user.ID,
		cache:      entities,
		assembler:  session.NewAssembler(deps.Gateway, entities, deps.Cleaner, logger).WithClock(deps.Now),
		transforms: transform.NewReconciler(deps.Gateway, user.ID, logger),
		log:        logger,
		done:       make(chan struct{}),
	}
	c.touch(deps.Now())
	return c
}

// UserID returns the signed-in user's id
func (c *Client) UserID() string {
	return c.userID
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	return c.cache.User(ctx, c.userID)
}

// Transforms returns the gesture state of this identity
func (c *Client) Transforms() *transform.Reconciler {
	return c.transforms
}

// Hold keeps the client from being evicted while a long-lived connection
// uses it. The returned func releases the hold.
func (c *Client) Hold() (release func()) {
	c.holds.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			c.touch(c.deps.Now())
			c.holds.Add(-1)
		})
	}
}

// Done is closed once the client is signed out or evicted
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) touch(now time.Time) {
	c.lastUsed.Store(now.UnixNano())
}

// idleSince reports whether the client is unheld and unused since cutoff
func (c *Client) idleSince(cutoff time.Time) bool {
	return c.holds.Load() == 0 && c.lastUsed.Load() < cutoff.UnixNano()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cache.Clear()
		c.transforms.Reset()
		close(c.done)
	})
}

// invalidate applies fn to this client's cache and to the caches of every
// other live client, so a write is visible to everyone it concerns
func (c *Client) invalidate(fn func(*cache.EntityCache)) {
	fn(c.cache)
	if c.fanout != nil {
		c.fanout(c, fn)
	}
}

func (c *Client) invalidateUser(id string) {
	c.invalidate(func(ec *cache.EntityCache) { ec.InvalidateUser(id) })
}

func (c *Client) invalidateFriendship(a, b string) {
	c.invalidate(func(ec *cache.EntityCache) { ec.InvalidateFriendship(a, b) })
}

func (c *Client) invalidateInvites(userIDs ...string) {
	c.invalidate(func(ec *cache.EntityCache) { ec.InvalidateInvites(userIDs...) })
}

func (c *Client) invalidateMembership(collageID string, userIDs ...string) {
	c.invalidate(func(ec *cache.EntityCache) { ec.InvalidateMembership(collageID, userIDs...) })
}

// Session returns the composite view of a collage the user belongs to
func (c *Client) Session(ctx context.Context, collageID string) (*models.Session, error) {
	if err := c.requireMember(ctx, collageID); err != nil {
		return nil, err
	}
	me, err := c.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	s, err := c.assembler.FetchSession(ctx, collageID, me)
	if err != nil {
		return nil, err
	}
	c.transforms.Sync(collageID, s.Photos)
	return s, nil
}

// Sessions returns the user's collages split into active and expired
func (c *Client) Sessions(ctx context.Context) (*models.Partition, error) {
	return c.assembler.FetchAllSessionsForUser(ctx, c.userID)
}

// Subscribe streams the photo list of a collage the user belongs to. Tracked
// transforms follow every delivered list.
func (c *Client) Subscribe(ctx context.Context, collageID string, onChange func([]*models.Photo)) (*realtime.Subscription, error) {
	if err := c.requireMember(ctx, collageID); err != nil {
		return nil, err
	}
	return c.deps.Bridge.Subscribe(ctx, collageID, func(photos []*models.Photo) {
		c.transforms.Sync(collageID, photos)
		onChange(photos)
	})
}

func (c *Client) requireMember(ctx context.Context, collageID string) error {
	members, err := c.cache.Members(ctx, collageID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.UserID == c.userID {
			return nil
		}
	}
	return apperr.New(apperr.Unauthorized, "collage access", "you are not a member of this collage")
}

// activeCollage loads a collage and fails with Expired once its deadline passed
func (c *Client) activeCollage(ctx context.Context, collageID string) (*models.Collage, error) {
	collage, err := c.deps.Gateway.GetCollage(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collage: %w", err)
	}
	if collage.IsExpired(c.deps.Now()) {
		c.deps.Cleaner.Trigger(collage.ID)
		return nil, apperr.New(apperr.Expired, "collage access", "")
	}
	return collage, nil
}

// notify pushes n to user's device in the background
func (c *Client) notify(user *models.User, n push.Notification) {
	if user.PushToken == nil || *user.PushToken == "" {
		return
	}
	deviceToken := *user.PushToken
	lifecycle.Spawn(c.log, "push_notification", func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.deps.Notifier.Notify(ctx, deviceToken, n); err != nil {
			c.log.Warn().Err(err).Str("receiver_id", user.ID).Msg("Failed to send push notification")
		}
	})
}
