package services

import (
	"context"
	"fmt"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"
	"collage-sync/internal/transform"

	"github.com/google/uuid"
)

// UploadPhoto stores image on an active collage at the identity transform
func (c *Client) UploadPhoto(ctx context.Context, collageID string, image []byte) (*models.Photo, error) {
	if len(image) == 0 {
		return nil, apperr.New(apperr.Invalid, "upload photo", "image is required")
	}
	if err := c.requireMember(ctx, collageID); err != nil {
		return nil, err
	}
	if _, err := c.activeCollage(ctx, collageID); err != nil {
		return nil, err
	}

	// Generate photo ID; objects live at {collage_id}/{photo_id}.jpg
	photoID := uuid.New().String()
	path, url, err := c.deps.Gateway.Upload(ctx, c.deps.Bucket, collageID, photoID+".jpg", image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	photo := &models.Photo{
		ID:          photoID,
		CollageID:   collageID,
		OwnerID:     c.userID,
		ImageURL:    url,
		StoragePath: path,
		Transform:   models.IdentityTransform(),
	}
	if err := c.deps.Gateway.CreatePhoto(ctx, photo); err != nil {
		c.removeObject(ctx, path)
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	c.transforms.Track(photo)
	c.log.Info().Str("collage_id", collageID).Str("photo_id", photoID).Msg("Photo uploaded")
	return photo, nil
}

// PastePhoto places clipboard image data on the canvas
func (c *Client) PastePhoto(ctx context.Context, collageID string, clipboard []byte) (*models.Photo, error) {
	if len(clipboard) == 0 {
		return nil, apperr.New(apperr.Invalid, "paste photo", "nothing to paste")
	}
	return c.UploadPhoto(ctx, collageID, clipboard)
}

// DeletePhoto removes one of the user's own photos and its stored object
func (c *Client) DeletePhoto(ctx context.Context, photoID string) error {
	photo, err := c.deps.Gateway.GetPhoto(ctx, photoID)
	if err != nil {
		return fmt.Errorf("failed to get photo: %w", err)
	}
	if photo.OwnerID != c.userID {
		return apperr.New(apperr.Unauthorized, "delete photo", "only the owner can delete this photo")
	}

	if err := c.deps.Gateway.DeletePhoto(ctx, photoID, c.userID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	c.removeObject(ctx, photo.StoragePath)
	return nil
}

// CommitTransform sets a photo's placement directly, outside of a gesture
func (c *Client) CommitTransform(ctx context.Context, photoID string, t models.Transform) (*models.Photo, error) {
	if t.Scale <= 0 {
		return nil, apperr.New(apperr.Invalid, "commit transform", "scale must be positive")
	}

	photo, err := c.deps.Gateway.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	if err := c.requireMember(ctx, photo.CollageID); err != nil {
		return nil, err
	}
	if _, err := c.activeCollage(ctx, photo.CollageID); err != nil {
		return nil, err
	}

	if err := c.deps.Gateway.UpdatePhotoTransform(ctx, photoID, t); err != nil {
		return nil, fmt.Errorf("failed to update transform: %w", err)
	}
	photo.Transform = t
	c.transforms.Track(photo)
	return photo, nil
}

// EndGesture finishes a gesture and removes the stored object of a photo
// dropped on the delete target. A gesture on an expired collage is reverted
// and nothing is committed.
func (c *Client) EndGesture(ctx context.Context, photoID string, overDeleteTarget bool) (*transform.Result, error) {
	if collageID, ok := c.transforms.CollageOf(photoID); ok && c.transforms.Gesture(photoID) != transform.Idle {
		if _, err := c.activeCollage(ctx, collageID); err != nil {
			c.transforms.Cancel(photoID)
			return nil, err
		}
	}
	res, err := c.transforms.End(ctx, photoID, overDeleteTarget)
	if err != nil {
		return res, err
	}
	if res.Deleted {
		c.removeObject(ctx, res.StoragePath)
	}
	return res, nil
}

// removeObject deletes a stored object. Failures are only logged.
func (c *Client) removeObject(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := c.deps.Gateway.Remove(ctx, c.deps.Bucket, path); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("Failed to remove photo object")
	}
}
