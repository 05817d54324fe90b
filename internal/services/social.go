package services

import (
	"context"
	"fmt"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"
	"collage-sync/internal/push"

	"github.com/google/uuid"
)

// SendFriendRequest asks username to become a friend. A previously rejected
// request is sent again by reopening it.
func (c *Client) SendFriendRequest(ctx context.Context, username string) (*models.Friendship, error) {
	target, err := c.deps.Gateway.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target.ID == c.userID {
		return nil, apperr.New(apperr.Invalid, "send friend request", "you cannot befriend yourself")
	}

	existing, err := c.cache.Friendship(ctx, c.userID, target.ID)
	switch {
	case apperr.Is(err, apperr.NotFound):
		f := &models.Friendship{
			ID:       uuid.New().String(),
			UserID:   c.userID,
			FriendID: target.ID,
			Status:   models.StatusPending,
		}
		if err := c.deps.Gateway.CreateFriendship(ctx, f); err != nil {
			return nil, fmt.Errorf("failed to create friendship: %w", err)
		}
		existing = f
	case err != nil:
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	case existing.Status == models.StatusRejected:
		if err := c.deps.Gateway.ReopenFriendship(ctx, existing.ID, c.userID, target.ID); err != nil {
			return nil, fmt.Errorf("failed to reopen friendship: %w", err)
		}
		reopened := *existing
		reopened.UserID, reopened.FriendID, reopened.Status = c.userID, target.ID, models.StatusPending
		existing = &reopened
	case existing.Status == models.StatusPending:
		return nil, apperr.New(apperr.Conflict, "send friend request", "a friend request is already pending")
	default:
		return nil, apperr.New(apperr.Conflict, "send friend request", "you are already friends")
	}

	c.invalidateFriendship(c.userID, target.ID)
	if me, err := c.Me(ctx); err == nil {
		c.notify(target, push.FriendRequest(me.Username))
	}
	return existing, nil
}

// RespondFriendRequest accepts or rejects a pending request sent to the user
func (c *Client) RespondFriendRequest(ctx context.Context, friendshipID string, accept bool) (*models.Friendship, error) {
	f, err := c.deps.Gateway.GetFriendship(ctx, friendshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	if f.FriendID != c.userID {
		return nil, apperr.New(apperr.Unauthorized, "respond friend request", "this request was not sent to you")
	}
	if f.Status != models.StatusPending {
		return nil, apperr.New(apperr.Invalid, "respond friend request", "request is no longer pending")
	}

	status := models.StatusRejected
	if accept {
		status = models.StatusAccepted
	}
	if err := c.deps.Gateway.UpdateFriendshipStatus(ctx, f.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update friendship: %w", err)
	}
	f.Status = status
	c.invalidateFriendship(f.UserID, f.FriendID)
	return f, nil
}

// FriendshipWith returns the relation between the user and otherID in either
// direction, or nil when there is none
func (c *Client) FriendshipWith(ctx context.Context, otherID string) (*models.Friendship, error) {
	f, err := c.cache.Friendship(ctx, c.userID, otherID)
	if apperr.Is(err, apperr.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return f, nil
}

// ListFriends returns the users with an accepted friendship
func (c *Client) ListFriends(ctx context.Context) ([]*models.User, error) {
	friendships, err := c.deps.Gateway.ListFriendships(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}

	var ids []string
	for _, f := range friendships {
		if f.Status == models.StatusAccepted {
			ids = append(ids, f.Other(c.userID))
		}
	}
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	users, err := c.deps.Gateway.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	return users, nil
}

// ListFriendRequests returns pending requests sent to the user
func (c *Client) ListFriendRequests(ctx context.Context) ([]*models.Friendship, error) {
	friendships, err := c.deps.Gateway.ListFriendships(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}

	requests := []*models.Friendship{}
	for _, f := range friendships {
		if f.Status == models.StatusPending && f.FriendID == c.userID {
			requests = append(requests, f)
		}
	}
	return requests, nil
}

// SendInvite invites receiverID into an active collage the user belongs to.
// A rejected invite is reopened.
func (c *Client) SendInvite(ctx context.Context, collageID, receiverID string) (*models.CollageInvite, error) {
	if receiverID == c.userID {
		return nil, apperr.New(apperr.Invalid, "send invite", "you cannot invite yourself")
	}
	if err := c.requireMember(ctx, collageID); err != nil {
		return nil, err
	}
	collage, err := c.activeCollage(ctx, collageID)
	if err != nil {
		return nil, err
	}

	receiver, err := c.cache.User(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver: %w", err)
	}
	members, err := c.cache.Members(ctx, collageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.UserID == receiverID {
			return nil, apperr.New(apperr.Conflict, "send invite", "user is already a member")
		}
	}

	inv, err := c.deps.Gateway.GetInviteByReceiver(ctx, collageID, receiverID)
	switch {
	case apperr.Is(err, apperr.NotFound):
		inv = &models.CollageInvite{
			ID:         uuid.New().String(),
			CollageID:  collageID,
			SenderID:   c.userID,
			ReceiverID: receiverID,
			Status:     models.StatusPending,
		}
		if err := c.deps.Gateway.CreateInvite(ctx, inv); err != nil {
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to get invite: %w", err)
	case inv.Status == models.StatusRejected:
		if err := c.deps.Gateway.ReopenInvite(ctx, inv.ID, c.userID); err != nil {
			return nil, fmt.Errorf("failed to reopen invite: %w", err)
		}
		inv.SenderID, inv.Status = c.userID, models.StatusPending
	default:
		return nil, apperr.New(apperr.Conflict, "send invite", "user was already invited")
	}

	c.invalidateInvites(receiverID)
	if me, err := c.Me(ctx); err == nil {
		c.notify(receiver, push.CollageInvite(me.Username, collage.Theme, collageID))
	}
	return inv, nil
}

// RespondInvite accepts or rejects an invite sent to the user. Accepting
// joins the collage, which must not have expired.
func (c *Client) RespondInvite(ctx context.Context, inviteID string, accept bool) (*models.CollageInvite, error) {
	inv, err := c.deps.Gateway.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	if inv.ReceiverID != c.userID {
		return nil, apperr.New(apperr.Unauthorized, "respond invite", "this invite was not sent to you")
	}
	if inv.Status != models.StatusPending {
		return nil, apperr.New(apperr.Invalid, "respond invite", "invite is no longer pending")
	}

	status := models.StatusRejected
	if accept {
		if _, err := c.activeCollage(ctx, inv.CollageID); err != nil {
			return nil, err
		}
		if err := c.join(ctx, inv.CollageID); err != nil {
			return nil, err
		}
		status = models.StatusAccepted
	}

	if err := c.deps.Gateway.UpdateInviteStatus(ctx, inv.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update invite: %w", err)
	}
	inv.Status = status
	c.invalidateInvites(c.userID)
	return inv, nil
}

// ListInvites returns the invites waiting for the user
func (c *Client) ListInvites(ctx context.Context) ([]*models.CollageInvite, error) {
	return c.cache.PendingInvites(ctx, c.userID)
}
