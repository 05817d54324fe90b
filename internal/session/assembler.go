// Package session assembles the composite view of a collage for one user.
package session

import (
	"context"
	"fmt"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/cache"
	"collage-sync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is the uncached part of the backend the assembler reads
type Source interface {
	GetCollage(ctx context.Context, id string) (*models.Collage, error)
	ListPhotos(ctx context.Context, collageID string) ([]*models.Photo, error)
}

// Cleaner starts a background cleanup of an expired collage
type Cleaner interface {
	Trigger(collageID string)
}

// Assembler builds sessions from the backend and the entity cache
type Assembler struct {
	src     Source
	cache   *cache.EntityCache
	cleaner Cleaner
	now     func() time.Time
	log     zerolog.Logger
}

// NewAssembler creates a new session assembler
func NewAssembler(src Source, entities *cache.EntityCache, cleaner Cleaner, logger zerolog.Logger) *Assembler {
	return &Assembler{
		src:     src,
		cache:   entities,
		cleaner: cleaner,
		now:     time.Now,
		log:     logger.With().Str("component", "session").Logger(),
	}
}

// WithClock replaces the clock used for expiry decisions
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// FetchSession returns the session of collageID as seen by requester.
// An expired collage comes back without photos and is queued for cleanup.
func (a *Assembler) FetchSession(ctx context.Context, collageID string, requester *models.User) (*models.Session, error) {
	collage, err := a.src.GetCollage(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collage: %w", err)
	}

	members, err := a.memberUsers(ctx, collageID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		Collage: collage,
		Creator: requester,
		Members: members,
		Photos:  []*models.Photo{},
	}
	for _, m := range members {
		if m.ID == collage.CreatorID {
			session.Creator = m
			break
		}
	}

	if collage.IsExpired(a.now()) {
		session.Expired = true
		a.cleaner.Trigger(collage.ID)
		return session, nil
	}

	photos, err := a.src.ListPhotos(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	session.Photos = photos

	return session, nil
}

// memberUsers resolves a collage's members through the entity cache.
// Members whose account no longer exists are left out.
func (a *Assembler) memberUsers(ctx context.Context, collageID string) ([]*models.User, error) {
	memberships, err := a.cache.Members(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	users := make([]*models.User, 0, len(memberships))
	for _, m := range memberships {
		u, err := a.cache.User(ctx, m.UserID)
		if apperr.Is(err, apperr.NotFound) {
			a.log.Warn().Str("collage_id", collageID).Str("user_id", m.UserID).Msg("Member account missing")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// FetchAllSessionsForUser loads every collage userID belongs to and splits
// them into active and expired at a single instant. Collages are fetched
// concurrently, one task per membership.
func (a *Assembler) FetchAllSessionsForUser(ctx context.Context, userID string) (*models.Partition, error) {
	memberships, err := a.cache.Memberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	collages := make([]*models.Collage, len(memberships))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range memberships {
		g.Go(func() error {
			c, err := a.src.GetCollage(gctx, m.CollageID)
			if apperr.Is(err, apperr.NotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get collage %s: %w", m.CollageID, err)
			}
			collages[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	partition := Partition(collages, a.now())
	for _, c := range partition.Expired {
		a.cleaner.Trigger(c.ID)
	}
	return partition, nil
}

// Partition splits collages at now. Nil entries are skipped and every other
// collage lands in exactly one of the two lists.
func Partition(collages []*models.Collage, now time.Time) *models.Partition {
	p := &models.Partition{
		Active:  []*models.Collage{},
		Expired: []*models.Collage{},
	}
	for _, c := range collages {
		if c == nil {
			continue
		}
		if c.IsActive(now) {
			p.Active = append(p.Active, c)
		} else {
			p.Expired = append(p.Expired, c)
		}
	}
	return p
}
