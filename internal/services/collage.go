package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway"
	"collage-sync/internal/models"

	"github.com/google/uuid"
)

// CreateCollageRequest describes a new collage
type CreateCollageRequest struct {
	Theme     string
	Duration  time.Duration
	PartyMode bool
}

// CreateCollage starts a collage owned by the user. A clashing invite code is
// regenerated up to the configured number of attempts.
func (c *Client) CreateCollage(ctx context.Context, req CreateCollageRequest) (*models.Collage, error) {
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		return nil, apperr.New(apperr.Invalid, "create collage", "theme is required")
	}

	duration := req.Duration
	if duration == 0 {
		duration = c.deps.Collage.DefaultDuration
	}
	if duration < 0 || duration > c.deps.Collage.MaxDuration {
		return nil, apperr.New(apperr.Invalid, "create collage",
			fmt.Sprintf("duration must be between 0 and %s", c.deps.Collage.MaxDuration))
	}

	now := c.deps.Now()
	attempts := max(c.deps.Collage.InviteCodeAttempts, 1)
	for i := 0; i < attempts; i++ {
		code, err := gateway.NewInviteCode()
		if err != nil {
			return nil, err
		}

		collage := &models.Collage{
			ID:         uuid.New().String(),
			Theme:      theme,
			CreatorID:  c.userID,
			InviteCode: code,
			StartsAt:   now,
			ExpiresAt:  now.Add(duration),
			PartyMode:  req.PartyMode,
		}
		err = c.deps.Gateway.CreateCollage(ctx, collage)
		if apperr.Is(err, apperr.Conflict) {
			c.log.Warn().Str("invite_code", code).Msg("Invite code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create collage: %w", err)
		}

		c.invalidateMembership(collage.ID, c.userID)
		c.log.Info().Str("collage_id", collage.ID).Str("invite_code", code).Msg("Collage created")
		return collage, nil
	}

	return nil, apperr.New(apperr.Conflict, "create collage",
		fmt.Sprintf("could not allocate a unique invite code after %d attempts", attempts))
}

// JoinByCode adds the user to the collage with the given invite code.
// Joining a collage twice is a no-op.
func (c *Client) JoinByCode(ctx context.Context, code string) (*models.Collage, error) {
	code = gateway.NormalizeInviteCode(code)
	if !gateway.ValidInviteCode(code) {
		return nil, apperr.New(apperr.Invalid, "join collage", "invalid invite code")
	}

	collage, err := c.deps.Gateway.GetCollageByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find collage: %w", err)
	}
	if collage.IsExpired(c.deps.Now()) {
		return nil, apperr.New(apperr.Expired, "join collage", "")
	}

	if err := c.join(ctx, collage.ID); err != nil {
		return nil, err
	}
	return collage, nil
}

func (c *Client) join(ctx context.Context, collageID string) error {
	err := c.deps.Gateway.AddMember(ctx, collageID, c.userID)
	if err != nil && !apperr.Is(err, apperr.Conflict) {
		return fmt.Errorf("failed to join collage: %w", err)
	}
	c.invalidateMembership(collageID, c.userID)
	return nil
}

// UpdatePreview stores a rendered snapshot of the canvas as the collage preview
func (c *Client) UpdatePreview(ctx context.Context, collageID string, image []byte) (string, error) {
	if err := c.requireMember(ctx, collageID); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", apperr.New(apperr.Invalid, "update preview", "image is required")
	}

	_, url, err := c.deps.Gateway.Upload(ctx, c.deps.Bucket, "previews/"+collageID, uuid.New().String()+".jpg", image)
	if err != nil {
		return "", fmt.Errorf("failed to upload preview: %w", err)
	}
	if err := c.deps.Gateway.UpdateCollagePreview(ctx, collageID, url); err != nil {
		return "", fmt.Errorf("failed to update preview: %w", err)
	}
	return url, nil
}
