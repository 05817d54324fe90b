package gateway

import (
	"context"
	"errors"
	"path"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"
	"collage-sync/internal/repository"
	"collage-sync/internal/storage"
)

// Blobs is the raw object storage the Remote gateway writes to
type Blobs interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// Repositories groups the table repositories used by Remote
type Repositories struct {
	Users       *repository.UserRepository
	Collages    *repository.CollageRepository
	Members     *repository.MembershipRepository
	Photos      *repository.PhotoRepository
	Friendships *repository.FriendshipRepository
	Invites     *repository.InviteRepository
	Themes      *repository.ThemeRepository
	Listener    *repository.PhotoListener
}

// Remote implements Gateway over Postgres and S3-compatible storage
type Remote struct {
	repos      Repositories
	blobs      Blobs
	transcoder storage.Transcoder
	now        func() time.Time
}

// NewRemote creates a new remote gateway
func NewRemote(repos Repositories, blobs Blobs, transcoder storage.Transcoder) *Remote {
	return &Remote{
		repos:      repos,
		blobs:      blobs,
		transcoder: transcoder,
		now:        time.Now,
	}
}

var _ Gateway = (*Remote)(nil)

// stamp is captured once per write so every time column of that write agrees
func (g *Remote) stamp() time.Time {
	return repository.Stamp(g.now())
}

// Users

func (g *Remote) CreateUser(ctx context.Context, user *models.User, passwordHash string) error {
	ts := g.stamp()
	user.CreatedAt, user.UpdatedAt = ts, ts
	return g.repos.Users.Create(ctx, user, passwordHash)
}

func (g *Remote) GetUser(ctx context.Context, id string) (*models.User, error) {
	return g.repos.Users.GetByID(ctx, id)
}

func (g *Remote) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	return g.repos.Users.GetByIDs(ctx, ids)
}

func (g *Remote) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return g.repos.Users.GetByUsername(ctx, username)
}

func (g *Remote) GetCredentials(ctx context.Context, email string) (*models.User, string, error) {
	return g.repos.Users.GetCredentials(ctx, email)
}

func (g *Remote) UpdateUsername(ctx context.Context, userID, username string) error {
	return g.repos.Users.UpdateUsername(ctx, userID, username, g.stamp())
}

func (g *Remote) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	return g.repos.Users.UpdateAvatar(ctx, userID, avatarURL, g.stamp())
}

func (g *Remote) UpdatePushToken(ctx context.Context, userID string, token *string) error {
	return g.repos.Users.UpdatePushToken(ctx, userID, token, g.stamp())
}

// Collages

func (g *Remote) CreateCollage(ctx context.Context, c *models.Collage) error {
	ts := g.stamp()
	c.CreatedAt, c.UpdatedAt = ts, ts
	return g.repos.Collages.Create(ctx, c)
}

func (g *Remote) GetCollage(ctx context.Context, id string) (*models.Collage, error) {
	return g.repos.Collages.GetByID(ctx, id)
}

func (g *Remote) GetCollageByInviteCode(ctx context.Context, code string) (*models.Collage, error) {
	return g.repos.Collages.GetByInviteCode(ctx, code)
}

func (g *Remote) ListExpiredCollages(ctx context.Context) ([]*models.Collage, error) {
	return g.repos.Collages.ListExpired(ctx)
}

func (g *Remote) IsCollageExpired(ctx context.Context, id string) (bool, error) {
	return g.repos.Collages.IsExpired(ctx, id)
}

func (g *Remote) UpdateCollagePreview(ctx context.Context, id, previewURL string) error {
	return g.repos.Collages.UpdatePreview(ctx, id, previewURL, g.stamp())
}

// Memberships

func (g *Remote) AddMember(ctx context.Context, collageID, userID string) error {
	return g.repos.Members.Add(ctx, collageID, userID, g.stamp())
}

func (g *Remote) ListMembers(ctx context.Context, collageID string) ([]models.Membership, error) {
	return g.repos.Members.ListByCollage(ctx, collageID)
}

func (g *Remote) ListMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	return g.repos.Members.ListByUser(ctx, userID)
}

func (g *Remote) IsMember(ctx context.Context, collageID, userID string) (bool, error) {
	return g.repos.Members.Exists(ctx, collageID, userID)
}

// Photos

func (g *Remote) CreatePhoto(ctx context.Context, p *models.Photo) error {
	ts := g.stamp()
	p.CreatedAt, p.UpdatedAt = ts, ts
	return g.repos.Photos.Create(ctx, p)
}

func (g *Remote) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	return g.repos.Photos.GetByID(ctx, id)
}

func (g *Remote) ListPhotos(ctx context.Context, collageID string) ([]*models.Photo, error) {
	return g.repos.Photos.ListByCollage(ctx, collageID)
}

func (g *Remote) UpdatePhotoTransform(ctx context.Context, id string, t models.Transform) error {
	return g.repos.Photos.UpdateTransform(ctx, id, t, g.stamp())
}

func (g *Remote) DeletePhoto(ctx context.Context, id, ownerID string) error {
	return g.repos.Photos.Delete(ctx, id, ownerID)
}

func (g *Remote) DeletePhotosByCollage(ctx context.Context, collageID string) (int64, error) {
	return g.repos.Photos.DeleteByCollage(ctx, collageID)
}

// Friendships and invites

func (g *Remote) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	ts := g.stamp()
	f.CreatedAt, f.UpdatedAt = ts, ts
	return g.repos.Friendships.Create(ctx, f)
}

func (g *Remote) GetFriendship(ctx context.Context, id string) (*models.Friendship, error) {
	return g.repos.Friendships.GetByID(ctx, id)
}

func (g *Remote) GetFriendshipByPair(ctx context.Context, a, b string) (*models.Friendship, error) {
	return g.repos.Friendships.GetByPair(ctx, a, b)
}

func (g *Remote) ListFriendships(ctx context.Context, userID string) ([]*models.Friendship, error) {
	return g.repos.Friendships.ListByUser(ctx, userID)
}

func (g *Remote) ReopenFriendship(ctx context.Context, id, requesterID, receiverID string) error {
	return g.repos.Friendships.Reopen(ctx, id, requesterID, receiverID, g.stamp())
}

func (g *Remote) UpdateFriendshipStatus(ctx context.Context, id string, status models.Status) error {
	return g.repos.Friendships.UpdateStatus(ctx, id, status, g.stamp())
}

func (g *Remote) CreateInvite(ctx context.Context, inv *models.CollageInvite) error {
	ts := g.stamp()
	inv.CreatedAt, inv.UpdatedAt = ts, ts
	return g.repos.Invites.Create(ctx, inv)
}

func (g *Remote) GetInvite(ctx context.Context, id string) (*models.CollageInvite, error) {
	return g.repos.Invites.GetByID(ctx, id)
}

func (g *Remote) GetInviteByReceiver(ctx context.Context, collageID, receiverID string) (*models.CollageInvite, error) {
	return g.repos.Invites.GetByReceiver(ctx, collageID, receiverID)
}

func (g *Remote) ListPendingInvites(ctx context.Context, receiverID string) ([]*models.CollageInvite, error) {
	return g.repos.Invites.ListPending(ctx, receiverID)
}

func (g *Remote) ReopenInvite(ctx context.Context, id, senderID string) error {
	return g.repos.Invites.Reopen(ctx, id, senderID, g.stamp())
}

func (g *Remote) UpdateInviteStatus(ctx context.Context, id string, status models.Status) error {
	return g.repos.Invites.UpdateStatus(ctx, id, status, g.stamp())
}

// Themes

func (g *Remote) ListThemes(ctx context.Context) ([]*models.Theme, error) {
	return g.repos.Themes.List(ctx)
}

// Storage

func (g *Remote) Upload(ctx context.Context, bucket, folder, filename string, data []byte) (string, string, error) {
	encoded, err := g.transcoder.Transcode(data)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Invalid, "transcode upload", err)
	}

	key := path.Join(folder, filename)
	if err := g.blobs.Put(ctx, bucket, key, encoded, "image/jpeg"); err != nil {
		return "", "", apperr.Wrap(apperr.Transport, "upload object", err)
	}
	return key, g.blobs.PublicURL(bucket, key), nil
}

func (g *Remote) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := g.blobs.Get(ctx, bucket, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, "download object", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Transport, "download object", err)
	}
	return data, nil
}

func (g *Remote) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys, err := g.blobs.List(ctx, bucket, prefix)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transport, "list objects", err)
	}
	return keys, nil
}

func (g *Remote) Remove(ctx context.Context, bucket, key string) error {
	return apperr.Wrap(apperr.Transport, "remove object", g.blobs.Delete(ctx, bucket, key))
}

func (g *Remote) PublicURL(bucket, key string) string {
	return g.blobs.PublicURL(bucket, key)
}

// Realtime

func (g *Remote) SubscribePhotos(ctx context.Context, collageID string) (<-chan models.PhotoChange, error) {
	return g.repos.Listener.Listen(ctx, collageID)
}
