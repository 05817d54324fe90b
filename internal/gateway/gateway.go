// Package gateway is the only boundary between the service and the hosted
// backend: Postgres tables, object storage and the photo change feed.
package gateway

import (
	"context"

	"collage-sync/internal/models"
)

// UserStore reads and writes user records
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User, passwordHash string) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetCredentials(ctx context.Context, email string) (*models.User, string, error)
	UpdateUsername(ctx context.Context, userID, username string) error
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
	UpdatePushToken(ctx context.Context, userID string, token *string) error
}

// CollageStore reads and writes collages
type CollageStore interface {
	CreateCollage(ctx context.Context, c *models.Collage) error
	GetCollage(ctx context.Context, id string) (*models.Collage, error)
	GetCollageByInviteCode(ctx context.Context, code string) (*models.Collage, error)
	ListExpiredCollages(ctx context.Context) ([]*models.Collage, error)
	IsCollageExpired(ctx context.Context, id string) (bool, error)
	UpdateCollagePreview(ctx context.Context, id, previewURL string) error
}

// MemberStore reads and writes collage memberships
type MemberStore interface {
	AddMember(ctx context.Context, collageID, userID string) error
	ListMembers(ctx context.Context, collageID string) ([]models.Membership, error)
	ListMemberships(ctx context.Context, userID string) ([]models.Membership, error)
	IsMember(ctx context.Context, collageID, userID string) (bool, error)
}

// PhotoStore reads and writes photo rows
type PhotoStore interface {
	CreatePhoto(ctx context.Context, p *models.Photo) error
	GetPhoto(ctx context.Context, id string) (*models.Photo, error)
	ListPhotos(ctx context.Context, collageID string) ([]*models.Photo, error)
	UpdatePhotoTransform(ctx context.Context, id string, t models.Transform) error
	DeletePhoto(ctx context.Context, id, ownerID string) error
	DeletePhotosByCollage(ctx context.Context, collageID string) (int64, error)
}

// SocialStore reads and writes friendships and collage invites
type SocialStore interface {
	CreateFriendship(ctx context.Context, f *models.Friendship) error
	GetFriendship(ctx context.Context, id string) (*models.Friendship, error)
	GetFriendshipByPair(ctx context.Context, a, b string) (*models.Friendship, error)
	ListFriendships(ctx context.Context, userID string) ([]*models.Friendship, error)
	ReopenFriendship(ctx context.Context, id, requesterID, receiverID string) error
	UpdateFriendshipStatus(ctx context.Context, id string, status models.Status) error

	CreateInvite(ctx context.Context, inv *models.CollageInvite) error
	GetInvite(ctx context.Context, id string) (*models.CollageInvite, error)
	GetInviteByReceiver(ctx context.Context, collageID, receiverID string) (*models.CollageInvite, error)
	ListPendingInvites(ctx context.Context, receiverID string) ([]*models.CollageInvite, error)
	ReopenInvite(ctx context.Context, id, senderID string) error
	UpdateInviteStatus(ctx context.Context, id string, status models.Status) error
}

// ThemeStore reads the theme catalogue
type ThemeStore interface {
	ListThemes(ctx context.Context) ([]*models.Theme, error)
}

// ObjectStore is binary storage addressed by bucket and path
type ObjectStore interface {
	// Upload transcodes data to JPEG and stores it at folder/filename,
	// returning the stored path and its public URL.
	Upload(ctx context.Context, bucket, folder, filename string, data []byte) (path, publicURL string, err error)
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Remove(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
}

// PhotoFeed is the push-subscription primitive for a collage's photo set
type PhotoFeed interface {
	// SubscribePhotos delivers change notifications for collageID until ctx
	// ends or the underlying channel drops, then closes the returned channel.
	SubscribePhotos(ctx context.Context, collageID string) (<-chan models.PhotoChange, error)
}

// Gateway is the full backend surface
type Gateway interface {
	UserStore
	CollageStore
	MemberStore
	PhotoStore
	SocialStore
	ThemeStore
	ObjectStore
	PhotoFeed
}
