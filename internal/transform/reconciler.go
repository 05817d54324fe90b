// Package transform keeps optimistic photo placements while a gesture is in
// progress and commits them once when it ends.
package transform

import (
	"context"
	"fmt"
	"sync"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"

	"github.com/rs/zerolog"
)

// Gesture is the interaction currently changing a photo
type Gesture int

const (
	Idle Gesture = iota
	Drag
	Rotate
	Scale
)

func (g Gesture) String() string {
	switch g {
	case Drag:
		return "drag"
	case Rotate:
		return "rotate"
	case Scale:
		return "scale"
	}
	return "idle"
}

// ParseGesture maps a wire name to a gesture
func ParseGesture(s string) (Gesture, error) {
	switch s {
	case "drag":
		return Drag, nil
	case "rotate":
		return Rotate, nil
	case "scale":
		return Scale, nil
	}
	return Idle, apperr.New(apperr.Invalid, "parse gesture", fmt.Sprintf("unknown gesture %q", s))
}

// Delta is the cumulative change since the gesture began
type Delta struct {
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
	DRotation   float64 `json:"d_rotation"`
	ScaleFactor float64 `json:"scale_factor"`
}

// Apply adds translation and rotation to base and multiplies its scale.
// A non-positive scale factor leaves the scale unchanged.
func Apply(base models.Transform, d Delta) models.Transform {
	t := models.Transform{
		X:        base.X + d.DX,
		Y:        base.Y + d.DY,
		Rotation: base.Rotation + d.DRotation,
		Scale:    base.Scale,
	}
	if d.ScaleFactor > 0 {
		t.Scale *= d.ScaleFactor
	}
	return t
}

// Store is the backend a gesture commits to
type Store interface {
	UpdatePhotoTransform(ctx context.Context, id string, t models.Transform) error
	DeletePhoto(ctx context.Context, id, ownerID string) error
}

// Result is the outcome of a finished gesture. StoragePath is set for a
// deleted photo, whose stored object is then unreferenced.
type Result struct {
	PhotoID     string           `json:"photo_id"`
	Transform   models.Transform `json:"transform"`
	Deleted     bool             `json:"deleted"`
	StoragePath string           `json:"-"`
}

type photoState struct {
	ownerID   string
	collageID string
	path      string
	baseline  models.Transform
	display   models.Transform
	gesture   Gesture
}

// Reconciler tracks the photos one user is manipulating
type Reconciler struct {
	store  Store
	userID string
	log    zerolog.Logger

	mu     sync.Mutex
	photos map[string]*photoState
}

// NewReconciler creates a reconciler acting as userID
func NewReconciler(store Store, userID string, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		userID: userID,
		log:    logger.With().Str("component", "transform").Str("user_id", userID).Logger(),
		photos: make(map[string]*photoState),
	}
}

// Track records p's committed transform as its baseline. A photo with a
// gesture in progress keeps its local state.
func (r *Reconciler) Track(p *models.Photo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track(p)
}

func (r *Reconciler) track(p *models.Photo) {
	if s, ok := r.photos[p.ID]; ok && s.gesture != Idle {
		return
	}
	r.photos[p.ID] = &photoState{
		ownerID:   p.OwnerID,
		collageID: p.CollageID,
		path:      p.StoragePath,
		baseline:  p.Transform,
		display:   p.Transform,
	}
}

// Sync replaces the tracked photos of collageID with photos. Photos of that
// collage that disappeared are forgotten unless a gesture is in progress on
// them.
func (r *Reconciler) Sync(collageID string, photos []*models.Photo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	present := make(map[string]struct{}, len(photos))
	for _, p := range photos {
		present[p.ID] = struct{}{}
		r.track(p)
	}
	for id, s := range r.photos {
		if s.collageID != collageID {
			continue
		}
		if _, ok := present[id]; !ok && s.gesture == Idle {
			delete(r.photos, id)
		}
	}
}

// Begin starts a gesture on photoID
func (r *Reconciler) Begin(photoID string, g Gesture) error {
	if g == Idle {
		return apperr.New(apperr.Invalid, "begin gesture", "gesture kind required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.state(photoID)
	if err != nil {
		return err
	}
	if s.gesture != Idle {
		return apperr.New(apperr.Invalid, "begin gesture", "a gesture is already in progress")
	}
	s.gesture = g
	return nil
}

// Update moves the displayed transform to baseline plus d. Nothing is sent
// to the backend.
func (r *Reconciler) Update(photoID string, d Delta) (models.Transform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.active(photoID, "update gesture")
	if err != nil {
		return models.Transform{}, err
	}
	s.display = Apply(s.baseline, d)
	return s.display, nil
}

// End finishes the gesture with exactly one backend call. A drag released
// over the delete target deletes the photo instead, which only its owner may
// do. Otherwise the final transform becomes the baseline whether or not the
// commit succeeds, and a failed commit is not retried.
func (r *Reconciler) End(ctx context.Context, photoID string, overDeleteTarget bool) (*Result, error) {
	r.mu.Lock()
	s, err := r.active(photoID, "end gesture")
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	deleting := overDeleteTarget && s.gesture == Drag
	s.gesture = Idle

	if deleting && s.ownerID != r.userID {
		s.display = s.baseline
		r.mu.Unlock()
		return &Result{PhotoID: photoID, Transform: s.baseline},
			apperr.New(apperr.Unauthorized, "delete photo", "only the owner can delete this photo")
	}

	final, base, path := s.display, s.baseline, s.path
	if !deleting {
		s.baseline = final
	}
	r.mu.Unlock()

	if deleting {
		if err := r.store.DeletePhoto(ctx, photoID, r.userID); err != nil {
			r.mu.Lock()
			s.display = base
			r.mu.Unlock()
			return &Result{PhotoID: photoID, Transform: base}, fmt.Errorf("failed to delete photo: %w", err)
		}
		r.mu.Lock()
		delete(r.photos, photoID)
		r.mu.Unlock()
		return &Result{PhotoID: photoID, Deleted: true, StoragePath: path}, nil
	}

	if err := r.store.UpdatePhotoTransform(ctx, photoID, final); err != nil {
		r.log.Warn().Err(err).Str("photo_id", photoID).Msg("Failed to commit transform")
		return &Result{PhotoID: photoID, Transform: final}, fmt.Errorf("failed to commit transform: %w", err)
	}
	return &Result{PhotoID: photoID, Transform: final}, nil
}

// Cancel abandons an active gesture and restores the baseline
func (r *Reconciler) Cancel(photoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.photos[photoID]; ok && s.gesture != Idle {
		s.display = s.baseline
		s.gesture = Idle
	}
}

// Display returns the transform currently shown for photoID
func (r *Reconciler) Display(photoID string) (models.Transform, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.photos[photoID]
	if !ok {
		return models.Transform{}, false
	}
	return s.display, true
}

// CollageOf returns the collage a tracked photo belongs to
func (r *Reconciler) CollageOf(photoID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.photos[photoID]
	if !ok {
		return "", false
	}
	return s.collageID, true
}

// Gesture returns the gesture in progress on photoID
func (r *Reconciler) Gesture(photoID string) Gesture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.photos[photoID]; ok {
		return s.gesture
	}
	return Idle
}

// Reset forgets every tracked photo
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = make(map[string]*photoState)
}

func (r *Reconciler) state(photoID string) (*photoState, error) {
	s, ok := r.photos[photoID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "transform", "photo is not on the canvas")
	}
	return s, nil
}

func (r *Reconciler) active(photoID, op string) (*photoState, error) {
	s, err := r.state(photoID)
	if err != nil {
		return nil, err
	}
	if s.gesture == Idle {
		return nil, apperr.New(apperr.Invalid, op, "no gesture in progress")
	}
	return s, nil
}
