// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway"
	"collage-sync/internal/models"
)

// Fake is an in-memory backend. It enforces the same uniqueness rules as the
// Postgres schema and publishes photo changes like the notify trigger does.
type Fake struct {
	mu sync.Mutex

	Now func() time.Time

	users       map[string]*models.User
	hashes      map[string]string
	collages    map[string]*models.Collage
	members     map[string][]models.Membership
	photos      map[string]*models.Photo
	friendships map[string]*models.Friendship
	invites     map[string]*models.CollageInvite
	themes      []*models.Theme
	objects     map[string][]byte
	feeds       map[string][]chan models.PhotoChange

	failures map[string]error
	calls    map[string]int
	seq      int
}

// New returns an empty fake whose clock is time.Now
func New() *Fake {
	return &Fake{
		Now:         time.Now,
		users:       map[string]*models.User{},
		hashes:      map[string]string{},
		collages:    map[string]*models.Collage{},
		members:     map[string][]models.Membership{},
		photos:      map[string]*models.Photo{},
		friendships: map[string]*models.Friendship{},
		invites:     map[string]*models.CollageInvite{},
		objects:     map[string][]byte{},
		feeds:       map[string][]chan models.PhotoChange{},
		failures:    map[string]error{},
		calls:       map[string]int{},
	}
}

var _ gateway.Gateway = (*Fake)(nil)

// Fail makes every later call to method return err until cleared with a nil err
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// Calls returns how many times method was invoked
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// enter records a call and returns the injected failure, if any. Callers hold f.mu.
func (f *Fake) enter(method string) error {
	f.calls[method]++
	return f.failures[method]
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *Fake) stamp() time.Time {
	return f.Now().UTC().Truncate(time.Microsecond)
}

func notFound(op string) error {
	return apperr.New(apperr.NotFound, op, "not found")
}

func conflict(op string) error {
	return apperr.New(apperr.Conflict, op, "already exists")
}

// Seeding helpers

// AddUser stores a user directly
func (f *Fake) AddUser(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = f.nextID("user")
	}
	cp := *u
	f.users[u.ID] = &cp
	return u
}

// AddCollage stores a collage directly, without memberships
func (f *Fake) AddCollage(c *models.Collage) *models.Collage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = f.nextID("collage")
	}
	cp := *c
	f.collages[c.ID] = &cp
	return c
}

// AddMembership stores a membership directly
func (f *Fake) AddMembership(collageID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[collageID] = append(f.members[collageID], models.Membership{
		CollageID: collageID, UserID: userID, JoinedAt: f.stamp(),
	})
}

// AddPhoto stores a photo row and its object without publishing a change
func (f *Fake) AddPhoto(p *models.Photo) *models.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = f.nextID("photo")
	}
	if p.StoragePath == "" {
		p.StoragePath = path.Join(p.CollageID, p.ID+".jpg")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = f.stamp().Add(time.Duration(f.seq) * time.Microsecond)
	}
	cp := *p
	f.photos[p.ID] = &cp
	f.objects[p.StoragePath] = []byte("jpeg")
	return p
}

// AddTheme appends a theme to the catalogue
func (f *Fake) AddTheme(t *models.Theme) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes = append(f.themes, t)
}

// SetExpiry changes a collage's expiry
func (f *Fake) SetExpiry(collageID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collages[collageID]; ok {
		c.ExpiresAt = at
	}
}

// Friendships returns a copy of every stored friendship
func (f *Fake) Friendships() []models.Friendship {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Friendship, 0, len(f.friendships))
	for _, fr := range f.friendships {
		out = append(out, *fr)
	}
	return out
}

// Memberships returns the stored memberships of a collage
func (f *Fake) Memberships(collageID string) []models.Membership {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Membership(nil), f.members[collageID]...)
}

// ObjectCount returns the number of stored objects
func (f *Fake) ObjectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// HasObject reports whether an object exists at key
func (f *Fake) HasObject(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// PhotoCount returns the number of stored photo rows of a collage
func (f *Fake) PhotoCount(collageID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.photos {
		if p.CollageID == collageID {
			n++
		}
	}
	return n
}

// Publish delivers a change to the collage's subscribers
func (f *Fake) Publish(change models.PhotoChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publish(change)
}

// DropFeeds closes every open subscription of a collage, like a lost connection
func (f *Fake) DropFeeds(collageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.feeds[collageID] {
		close(ch)
	}
	delete(f.feeds, collageID)
}

// FeedCount returns the number of open subscriptions of a collage
func (f *Fake) FeedCount(collageID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.feeds[collageID])
}

func (f *Fake) publish(change models.PhotoChange) {
	for _, ch := range f.feeds[change.CollageID] {
		select {
		case ch <- change:
		default:
		}
	}
}

// Users

func (f *Fake) CreateUser(_ context.Context, user *models.User, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateUser"); err != nil {
		return err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return conflict("create user")
		}
	}
	ts := f.stamp()
	user.CreatedAt, user.UpdatedAt = ts, ts
	cp := *user
	f.users[user.ID] = &cp
	f.hashes[user.ID] = passwordHash
	return nil
}

func (f *Fake) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUser"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) GetUsers(_ context.Context, ids []string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUsers"); err != nil {
		return nil, err
	}
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *Fake) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUserByUsername"); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("get user by username")
}

func (f *Fake) GetCredentials(_ context.Context, email string) (*models.User, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetCredentials"); err != nil {
		return nil, "", err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, f.hashes[u.ID], nil
		}
	}
	return nil, "", notFound("get credentials")
}

func (f *Fake) UpdateUsername(_ context.Context, userID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateUsername"); err != nil {
		return err
	}
	for _, u := range f.users {
		if u.Username == username && u.ID != userID {
			return conflict("update username")
		}
	}
	u, ok := f.users[userID]
	if !ok {
		return notFound("update username")
	}
	u.Username = username
	u.UpdatedAt = f.stamp()
	return nil
}

func (f *Fake) UpdateAvatar(_ context.Context, userID, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateAvatar"); err != nil {
		return err
	}
	u, ok := f.users[userID]
	if !ok {
		return notFound("update avatar")
	}
	u.AvatarURL = &avatarURL
	u.UpdatedAt = f.stamp()
	return nil
}

func (f *Fake) UpdatePushToken(_ context.Context, userID string, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdatePushToken"); err != nil {
		return err
	}
	u, ok := f.users[userID]
	if !ok {
		return notFound("update push token")
	}
	u.PushToken = token
	return nil
}

// Collages

func (f *Fake) CreateCollage(_ context.Context, c *models.Collage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateCollage"); err != nil {
		return err
	}
	for _, existing := range f.collages {
		if existing.InviteCode == c.InviteCode {
			return conflict("create collage")
		}
	}
	ts := f.stamp()
	c.CreatedAt, c.UpdatedAt = ts, ts
	cp := *c
	f.collages[c.ID] = &cp
	f.members[c.ID] = append(f.members[c.ID], models.Membership{CollageID: c.ID, UserID: c.CreatorID, JoinedAt: ts})
	return nil
}

func (f *Fake) GetCollage(_ context.Context, id string) (*models.Collage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetCollage"); err != nil {
		return nil, err
	}
	c, ok := f.collages[id]
	if !ok {
		return nil, notFound("get collage")
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) GetCollageByInviteCode(_ context.Context, code string) (*models.Collage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetCollageByInviteCode"); err != nil {
		return nil, err
	}
	for _, c := range f.collages {
		if c.InviteCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("get collage by invite code")
}

func (f *Fake) ListExpiredCollages(_ context.Context) ([]*models.Collage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListExpiredCollages"); err != nil {
		return nil, err
	}
	now := f.Now()
	var out []*models.Collage
	for _, c := range f.collages {
		if c.IsExpired(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (f *Fake) IsCollageExpired(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("IsCollageExpired"); err != nil {
		return false, err
	}
	c, ok := f.collages[id]
	if !ok {
		return false, notFound("check collage expiry")
	}
	return c.IsExpired(f.Now()), nil
}

func (f *Fake) UpdateCollagePreview(_ context.Context, id, previewURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateCollagePreview"); err != nil {
		return err
	}
	c, ok := f.collages[id]
	if !ok {
		return notFound("update collage preview")
	}
	c.PreviewURL = &previewURL
	c.UpdatedAt = f.stamp()
	return nil
}

// Memberships

func (f *Fake) AddMember(_ context.Context, collageID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AddMember"); err != nil {
		return err
	}
	if _, ok := f.collages[collageID]; !ok {
		return notFound("add member")
	}
	for _, m := range f.members[collageID] {
		if m.UserID == userID {
			return conflict("add member")
		}
	}
	f.members[collageID] = append(f.members[collageID], models.Membership{
		CollageID: collageID, UserID: userID, JoinedAt: f.stamp(),
	})
	return nil
}

func (f *Fake) ListMembers(_ context.Context, collageID string) ([]models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMembers"); err != nil {
		return nil, err
	}
	return append([]models.Membership(nil), f.members[collageID]...), nil
}

func (f *Fake) ListMemberships(_ context.Context, userID string) ([]models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMemberships"); err != nil {
		return nil, err
	}
	var out []models.Membership
	for _, list := range f.members {
		for _, m := range list {
			if m.UserID == userID {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollageID < out[j].CollageID })
	return out, nil
}

func (f *Fake) IsMember(_ context.Context, collageID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("IsMember"); err != nil {
		return false, err
	}
	for _, m := range f.members[collageID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Photos

func (f *Fake) CreatePhoto(_ context.Context, p *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePhoto"); err != nil {
		return err
	}
	if _, ok := f.collages[p.CollageID]; !ok {
		return notFound("create photo")
	}
	ts := f.stamp().Add(time.Duration(f.seq) * time.Microsecond)
	f.seq++
	p.CreatedAt, p.UpdatedAt = ts, ts
	cp := *p
	f.photos[p.ID] = &cp
	f.publish(models.PhotoChange{CollageID: p.CollageID, PhotoID: p.ID, Op: models.ChangeInsert})
	return nil
}

func (f *Fake) GetPhoto(_ context.Context, id string) (*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetPhoto"); err != nil {
		return nil, err
	}
	p, ok := f.photos[id]
	if !ok {
		return nil, notFound("get photo")
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) ListPhotos(_ context.Context, collageID string) ([]*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListPhotos"); err != nil {
		return nil, err
	}
	out := []*models.Photo{}
	for _, p := range f.photos {
		if p.CollageID == collageID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *Fake) UpdatePhotoTransform(_ context.Context, id string, t models.Transform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdatePhotoTransform"); err != nil {
		return err
	}
	p, ok := f.photos[id]
	if !ok {
		return notFound("update photo transform")
	}
	p.Transform = t
	p.UpdatedAt = f.stamp()
	f.publish(models.PhotoChange{CollageID: p.CollageID, PhotoID: id, Op: models.ChangeUpdate})
	return nil
}

func (f *Fake) DeletePhoto(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePhoto"); err != nil {
		return err
	}
	p, ok := f.photos[id]
	if !ok || p.OwnerID != ownerID {
		return notFound("delete photo")
	}
	delete(f.photos, id)
	f.publish(models.PhotoChange{CollageID: p.CollageID, PhotoID: id, Op: models.ChangeDelete})
	return nil
}

func (f *Fake) DeletePhotosByCollage(_ context.Context, collageID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePhotosByCollage"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range f.photos {
		if p.CollageID == collageID {
			delete(f.photos, id)
			n++
			f.publish(models.PhotoChange{CollageID: collageID, PhotoID: id, Op: models.ChangeDelete})
		}
	}
	return n, nil
}

// Friendships

func (f *Fake) CreateFriendship(_ context.Context, fr *models.Friendship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateFriendship"); err != nil {
		return err
	}
	for _, existing := range f.friendships {
		if existing.Involves(fr.UserID) && existing.Involves(fr.FriendID) {
			return conflict("create friendship")
		}
	}
	ts := f.stamp()
	fr.CreatedAt, fr.UpdatedAt = ts, ts
	cp := *fr
	f.friendships[fr.ID] = &cp
	return nil
}

func (f *Fake) GetFriendship(_ context.Context, id string) (*models.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetFriendship"); err != nil {
		return nil, err
	}
	fr, ok := f.friendships[id]
	if !ok {
		return nil, notFound("get friendship")
	}
	cp := *fr
	return &cp, nil
}

func (f *Fake) GetFriendshipByPair(_ context.Context, a, b string) (*models.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetFriendshipByPair"); err != nil {
		return nil, err
	}
	for _, fr := range f.friendships {
		if fr.Involves(a) && fr.Involves(b) {
			cp := *fr
			return &cp, nil
		}
	}
	return nil, notFound("get friendship by pair")
}

func (f *Fake) ListFriendships(_ context.Context, userID string) ([]*models.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListFriendships"); err != nil {
		return nil, err
	}
	var out []*models.Friendship
	for _, fr := range f.friendships {
		if fr.Involves(userID) {
			cp := *fr
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) ReopenFriendship(_ context.Context, id, requesterID, receiverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ReopenFriendship"); err != nil {
		return err
	}
	fr, ok := f.friendships[id]
	if !ok {
		return notFound("reopen friendship")
	}
	fr.UserID, fr.FriendID = requesterID, receiverID
	fr.Status = models.StatusPending
	fr.UpdatedAt = f.stamp()
	return nil
}

func (f *Fake) UpdateFriendshipStatus(_ context.Context, id string, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateFriendshipStatus"); err != nil {
		return err
	}
	fr, ok := f.friendships[id]
	if !ok {
		return notFound("update friendship status")
	}
	fr.Status = status
	fr.UpdatedAt = f.stamp()
	return nil
}

// Invites

func (f *Fake) CreateInvite(_ context.Context, inv *models.CollageInvite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateInvite"); err != nil {
		return err
	}
	for _, existing := range f.invites {
		if existing.CollageID == inv.CollageID && existing.ReceiverID == inv.ReceiverID {
			return conflict("create invite")
		}
	}
	ts := f.stamp()
	inv.CreatedAt, inv.UpdatedAt = ts, ts
	cp := *inv
	f.invites[inv.ID] = &cp
	return nil
}

func (f *Fake) GetInvite(_ context.Context, id string) (*models.CollageInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetInvite"); err != nil {
		return nil, err
	}
	inv, ok := f.invites[id]
	if !ok {
		return nil, notFound("get invite")
	}
	cp := *inv
	return &cp, nil
}

func (f *Fake) GetInviteByReceiver(_ context.Context, collageID, receiverID string) (*models.CollageInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetInviteByReceiver"); err != nil {
		return nil, err
	}
	for _, inv := range f.invites {
		if inv.CollageID == collageID && inv.ReceiverID == receiverID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, notFound("get invite by receiver")
}

func (f *Fake) ListPendingInvites(_ context.Context, receiverID string) ([]*models.CollageInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListPendingInvites"); err != nil {
		return nil, err
	}
	out := []*models.CollageInvite{}
	for _, inv := range f.invites {
		if inv.ReceiverID == receiverID && inv.Status == models.StatusPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) ReopenInvite(_ context.Context, id, senderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ReopenInvite"); err != nil {
		return err
	}
	inv, ok := f.invites[id]
	if !ok {
		return notFound("reopen invite")
	}
	inv.SenderID = senderID
	inv.Status = models.StatusPending
	inv.UpdatedAt = f.stamp()
	return nil
}

func (f *Fake) UpdateInviteStatus(_ context.Context, id string, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateInviteStatus"); err != nil {
		return err
	}
	inv, ok := f.invites[id]
	if !ok {
		return notFound("update invite status")
	}
	inv.Status = status
	inv.UpdatedAt = f.stamp()
	return nil
}

// Themes

func (f *Fake) ListThemes(_ context.Context) ([]*models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListThemes"); err != nil {
		return nil, err
	}
	return append([]*models.Theme{}, f.themes...), nil
}

// Storage

func (f *Fake) Upload(_ context.Context, bucket, folder, filename string, data []byte) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Upload"); err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", apperr.New(apperr.Invalid, "transcode upload", "empty image data")
	}
	key := path.Join(folder, filename)
	f.objects[key] = append([]byte(nil), data...)
	return key, f.publicURL(bucket, key), nil
}

func (f *Fake) Download(_ context.Context, _, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Download"); err != nil {
		return nil, err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, notFound("download object")
	}
	return append([]byte(nil), data...), nil
}

func (f *Fake) List(_ context.Context, _, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("List"); err != nil {
		return nil, err
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *Fake) Remove(_ context.Context, _, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Remove"); err != nil {
		return err
	}
	delete(f.objects, key)
	return nil
}

func (f *Fake) PublicURL(bucket, key string) string {
	return f.publicURL(bucket, key)
}

func (f *Fake) publicURL(bucket, key string) string {
	return "https://storage.test/" + path.Join(bucket, key)
}

// Realtime

func (f *Fake) SubscribePhotos(ctx context.Context, collageID string) (<-chan models.PhotoChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SubscribePhotos"); err != nil {
		return nil, err
	}
	ch := make(chan models.PhotoChange, 64)
	f.feeds[collageID] = append(f.feeds[collageID], ch)

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		feeds := f.feeds[collageID]
		for i, c := range feeds {
			if c == ch {
				f.feeds[collageID] = append(feeds[:i], feeds[i+1:]...)
				close(ch)
				return
			}
		}
	}()

	return ch, nil
}
