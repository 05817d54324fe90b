// Package realtime turns backend change notifications into fresh photo lists
// and fans them out to connected peers.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"collage-sync/internal/models"

	"github.com/rs/zerolog"
)

// Feed is the part of the backend the bridge listens to and re-reads
type Feed interface {
	SubscribePhotos(ctx context.Context, collageID string) (<-chan models.PhotoChange, error)
	ListPhotos(ctx context.Context, collageID string) ([]*models.Photo, error)
}

// Bridge subscribes to a collage's photo changes
type Bridge struct {
	feed             Feed
	resubscribeDelay time.Duration
	log              zerolog.Logger
}

// NewBridge creates a new realtime bridge. When the feed drops, the bridge
// subscribes again after resubscribeDelay.
func NewBridge(feed Feed, resubscribeDelay time.Duration, logger zerolog.Logger) *Bridge {
	return &Bridge{
		feed:             feed,
		resubscribeDelay: resubscribeDelay,
		log:              logger.With().Str("component", "realtime").Logger(),
	}
}

// Subscription is a live photo subscription
type Subscription struct {
	collageID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

// Cancel stops further callbacks and releases the feed. It waits for a
// callback already running but not for the loop to exit, so onChange must
// not call it.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Done is closed once the subscription loop has exited
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// CollageID returns the subscribed collage
func (s *Subscription) CollageID() string {
	return s.collageID
}

// Subscribe calls onChange with the full photo list, oldest first, after
// every change to collageID. onChange runs on the subscription goroutine and
// is never invoked after Cancel or after ctx ends.
func (b *Bridge) Subscribe(ctx context.Context, collageID string, onChange func([]*models.Photo)) (*Subscription, error) {
	sctx, cancel := context.WithCancel(ctx)
	changes, err := b.feed.SubscribePhotos(sctx, collageID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to photos: %w", err)
	}

	sub := &Subscription{
		collageID: collageID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go b.run(sctx, sub, changes, onChange)
	return sub, nil
}

func (b *Bridge) run(ctx context.Context, sub *Subscription, changes <-chan models.PhotoChange, onChange func([]*models.Photo)) {
	defer close(sub.done)
	defer sub.cancel()

	logger := b.log.With().Str("collage_id", sub.collageID).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if ok {
				logger.Debug().Str("photo_id", change.PhotoID).Str("op", string(change.Op)).Msg("Photo change")
				b.deliver(ctx, logger, sub, onChange)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Msg("Photo feed dropped, resubscribing")
			changes = b.resubscribe(ctx, logger, sub.collageID)
			if changes == nil {
				return
			}
			// Changes made while disconnected were missed.
			b.deliver(ctx, logger, sub, onChange)
		}
	}
}

// resubscribe retries until it gets a feed or ctx ends, in which case it returns nil
func (b *Bridge) resubscribe(ctx context.Context, logger zerolog.Logger, collageID string) <-chan models.PhotoChange {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.resubscribeDelay):
		}

		changes, err := b.feed.SubscribePhotos(ctx, collageID)
		if err == nil {
			return changes
		}
		logger.Error().Err(err).Msg("Failed to resubscribe to photo feed")
	}
}

func (b *Bridge) deliver(ctx context.Context, logger zerolog.Logger, sub *Subscription, onChange func([]*models.Photo)) {
	photos, err := b.feed.ListPhotos(ctx, sub.collageID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to refresh photos")
		return
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed || ctx.Err() != nil {
		return
	}
	onChange(photos)
}
