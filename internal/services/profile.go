package services

import (
	"context"
	"fmt"
	"strings"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"

	"github.com/google/uuid"
)

// UpdateUsername renames the user
func (c *Client) UpdateUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := c.deps.Gateway.UpdateUsername(ctx, c.userID, username); err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}
	c.invalidateUser(c.userID)
	return c.Me(ctx)
}

// UpdateAvatar stores a new avatar image and points the profile at it
func (c *Client) UpdateAvatar(ctx context.Context, image []byte) (*models.User, error) {
	if len(image) == 0 {
		return nil, apperr.New(apperr.Invalid, "update avatar", "image is required")
	}

	_, url, err := c.deps.Gateway.Upload(ctx, c.deps.Bucket, "avatars/"+c.userID, uuid.New().String()+".jpg", image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}
	if err := c.deps.Gateway.UpdateAvatar(ctx, c.userID, url); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	c.invalidateUser(c.userID)
	return c.Me(ctx)
}

// UpdatePushToken sets or, with an empty token, clears the device token
func (c *Client) UpdatePushToken(ctx context.Context, token string) error {
	var t *string
	if token = strings.TrimSpace(token); token != "" {
		t = &token
	}
	if err := c.deps.Gateway.UpdatePushToken(ctx, c.userID, t); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	c.invalidateUser(c.userID)
	return nil
}

// ListThemes returns the theme catalogue
func (c *Client) ListThemes(ctx context.Context) ([]*models.Theme, error) {
	themes, err := c.deps.Gateway.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	return themes, nil
}
