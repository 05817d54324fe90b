package models

import "time"

// User represents an account in the system
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	PushToken *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Collage represents a time-boxed shared canvas
type Collage struct {
	ID         string    `json:"id"`
	Theme      string    `json:"theme"`
	CreatorID  string    `json:"creator_id"`
	InviteCode string    `json:"invite_code"`
	StartsAt   time.Time `json:"starts_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	PreviewURL *string   `json:"preview_url,omitempty"`
	PartyMode  bool      `json:"party_mode"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsActive reports whether the collage still accepts edits at now.
// A collage whose expiry equals now is no longer active.
func (c *Collage) IsActive(now time.Time) bool {
	return c.ExpiresAt.After(now)
}

// IsExpired is the complement of IsActive.
func (c *Collage) IsExpired(now time.Time) bool {
	return !c.IsActive(now)
}

// Membership joins a user to a collage
type Membership struct {
	CollageID string    `json:"collage_id"`
	UserID    string    `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Transform is a photo's placement on the canvas.
// Rotation is in degrees, Scale is multiplicative with 1.0 as baseline.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// IdentityTransform is the placement of a freshly uploaded photo
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// Photo represents an image placed on a collage
type Photo struct {
	ID          string    `json:"id"`
	CollageID   string    `json:"collage_id"`
	OwnerID     string    `json:"owner_id"`
	ImageURL    string    `json:"image_url"`
	StoragePath string    `json:"-"`
	Transform
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the lifecycle of a friendship or an invite
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Friendship is an unordered relation between two users.
// UserID is the requester of the current pending round.
type Friendship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Other returns the member of the pair that is not userID
func (f *Friendship) Other(userID string) string {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}

// Involves reports whether userID is one side of the friendship
func (f *Friendship) Involves(userID string) bool {
	return f.UserID == userID || f.FriendID == userID
}

// CollageInvite invites a user into a collage
type CollageInvite struct {
	ID         string    `json:"id"`
	CollageID  string    `json:"collage_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Theme is a suggested collage prompt
type Theme struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// ChangeOp is the kind of row change reported by the photo feed
type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// PhotoChange is a push notification for a collage's photo set
type PhotoChange struct {
	CollageID string   `json:"collage_id"`
	PhotoID   string   `json:"photo_id"`
	Op        ChangeOp `json:"op"`
}
