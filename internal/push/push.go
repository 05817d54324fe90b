// Package push delivers invite and friend-request alerts to devices.
package push

import (
	"context"
	"fmt"

	"collage-sync/internal/config"

	"github.com/rs/zerolog"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notification is an alert for one device
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends notifications to device tokens
type Notifier interface {
	Notify(ctx context.Context, deviceToken string, n Notification) error
}

// FriendRequest builds the alert for a new friend request
func FriendRequest(fromUsername string) Notification {
	return Notification{
		Title: "New friend request",
		Body:  fmt.Sprintf("%s wants to be your friend", fromUsername),
		Data:  map[string]string{"kind": "friend_request", "from": fromUsername},
	}
}

// CollageInvite builds the alert for an invite into a collage
func CollageInvite(fromUsername, theme, collageID string) Notification {
	return Notification{
		Title: "Collage invite",
		Body:  fmt.Sprintf("%s invited you to \"%s\"", fromUsername, theme),
		Data:  map[string]string{"kind": "collage_invite", "from": fromUsername, "collage_id": collageID},
	}
}

type sender interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNs sends notifications through Apple's push service with token auth
type APNs struct {
	client sender
	topic  string
	log    zerolog.Logger
}

// NewAPNs loads the .p8 signing key and creates a client for the configured environment
func NewAPNs(cfg config.APNsConfig, logger zerolog.Logger) (*APNs, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNs{
		client: client,
		topic:  cfg.Topic,
		log:    logger.With().Str("component", "push").Logger(),
	}, nil
}

// Notify pushes n to deviceToken
func (a *APNs) Notify(ctx context.Context, deviceToken string, n Notification) error {
	p := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Sound("default")
	for k, v := range n.Data {
		p = p.Custom(k, v)
	}

	res, err := a.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	a.log.Debug().Str("apns_id", res.ApnsID).Msg("Notification sent")
	return nil
}

// Noop drops every notification
type Noop struct{}

// Notify does nothing
func (Noop) Notify(context.Context, string, Notification) error {
	return nil
}
