// Package lifecycle removes the photos of collages whose deadline has passed.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const removeConcurrency = 8

// Store is the part of the backend cleanup touches
type Store interface {
	IsCollageExpired(ctx context.Context, id string) (bool, error)
	ListExpiredCollages(ctx context.Context) ([]*models.Collage, error)
	ListPhotos(ctx context.Context, collageID string) ([]*models.Photo, error)
	DeletePhotosByCollage(ctx context.Context, collageID string) (int64, error)
	Remove(ctx context.Context, bucket, path string) error
}

// CleanupResult describes one collage cleanup
type CleanupResult struct {
	CollageID      string `json:"collage_id"`
	RowsDeleted    int64  `json:"rows_deleted"`
	ObjectsDeleted int    `json:"objects_deleted"`
	ObjectFailures int    `json:"object_failures"`
}

// SweepResult describes a cleanup pass over every expired collage
type SweepResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Reconciler deletes photo rows and stored objects of expired collages
type Reconciler struct {
	store   Store
	bucket  string
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewReconciler creates a new reconciler. timeout bounds each triggered cleanup.
func NewReconciler(store Store, bucket string, timeout time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		bucket:   bucket,
		timeout:  timeout,
		log:      logger.With().Str("component", "lifecycle").Logger(),
		inflight: make(map[string]struct{}),
	}
}

// Trigger starts a detached cleanup of collageID unless one is already
// running for it. Failures are logged, never returned.
func (r *Reconciler) Trigger(collageID string) {
	r.mu.Lock()
	if _, busy := r.inflight[collageID]; busy {
		r.mu.Unlock()
		return
	}
	r.inflight[collageID] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	Spawn(r.log, "cleanup_expired_collage", func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.inflight, collageID)
			r.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if _, err := r.CleanupExpiredCollage(ctx, collageID); err != nil {
			r.log.Error().Err(err).Str("collage_id", collageID).Msg("Failed to clean up expired collage")
		}
	})
}

// Wait blocks until every triggered cleanup has finished
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// CleanupExpiredCollage removes the photos of collageID after the database
// confirms it has expired. Object deletions that fail are counted and the
// rows are deleted anyway. Running it again on a clean collage is a no-op.
func (r *Reconciler) CleanupExpiredCollage(ctx context.Context, collageID string) (*CleanupResult, error) {
	expired, err := r.store.IsCollageExpired(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check collage expiry: %w", err)
	}
	if !expired {
		return nil, apperr.New(apperr.Invalid, "cleanup collage", "collage has not expired")
	}

	photos, err := r.store.ListPhotos(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	result := &CleanupResult{CollageID: collageID}
	var deleted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(removeConcurrency)
	for _, p := range photos {
		if p.StoragePath == "" {
			continue
		}
		g.Go(func() error {
			if err := r.store.Remove(gctx, r.bucket, p.StoragePath); err != nil {
				failed.Add(1)
				r.log.Warn().Err(err).
					Str("collage_id", collageID).
					Str("photo_id", p.ID).
					Str("path", p.StoragePath).
					Msg("Failed to remove photo object")
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result.ObjectsDeleted = int(deleted.Load())
	result.ObjectFailures = int(failed.Load())

	rows, err := r.store.DeletePhotosByCollage(ctx, collageID)
	if err != nil {
		return result, fmt.Errorf("failed to delete photo rows: %w", err)
	}
	result.RowsDeleted = rows

	if rows > 0 || result.ObjectFailures > 0 {
		r.log.Info().
			Str("collage_id", collageID).
			Int64("rows_deleted", rows).
			Int("objects_deleted", result.ObjectsDeleted).
			Int("object_failures", result.ObjectFailures).
			Msg("Expired collage cleaned up")
	}

	return result, nil
}

// CleanupAllExpiredCollages cleans every expired collage independently
func (r *Reconciler) CleanupAllExpiredCollages(ctx context.Context) (*SweepResult, error) {
	collages, err := r.store.ListExpiredCollages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired collages: %w", err)
	}

	result := &SweepResult{}
	for _, c := range collages {
		if _, err := r.CleanupExpiredCollage(ctx, c.ID); err != nil {
			result.Failed++
			r.log.Error().Err(err).Str("collage_id", c.ID).Msg("Failed to clean up expired collage")
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
