package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway"
	"collage-sync/internal/models"
	"collage-sync/internal/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCollage(t *testing.T) {
	ctx := context.Background()

	t.Run("creator becomes a member", func(t *testing.T) {
		e := newEnv(t)
		c := e.client(t, "alice")

		collage, err := c.CreateCollage(ctx, CreateCollageRequest{Theme: " Summer "})
		require.NoError(t, err)
		assert.Equal(t, "Summer", collage.Theme)
		assert.True(t, gateway.ValidInviteCode(collage.InviteCode))
		assert.Equal(t, now.Add(24*time.Hour), collage.ExpiresAt)

		s, err := c.Session(ctx, collage.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", s.Creator.ID)
		assert.Len(t, s.Members, 1)
	})

	t.Run("shows up in sessions after a cached read", func(t *testing.T) {
		e := newEnv(t)
		c := e.client(t, "alice")

		p, err := c.Sessions(ctx)
		require.NoError(t, err)
		assert.Empty(t, p.Active)

		_, err = c.CreateCollage(ctx, CreateCollageRequest{Theme: "Summer"})
		require.NoError(t, err)
		p, err = c.Sessions(ctx)
		require.NoError(t, err)
		assert.Len(t, p.Active, 1)
	})

	t.Run("gives up after repeated invite code collisions", func(t *testing.T) {
		e := newEnv(t)
		e.fake.Fail("CreateCollage", apperr.New(apperr.Conflict, "create collage", "duplicate"))

		_, err := e.client(t, "alice").CreateCollage(ctx, CreateCollageRequest{Theme: "Summer"})
		assert.True(t, apperr.Is(err, apperr.Conflict))
		assert.Equal(t, 3, e.fake.Calls("CreateCollage"))
	})

	t.Run("validation", func(t *testing.T) {
		e := newEnv(t)
		c := e.client(t, "alice")

		_, err := c.CreateCollage(ctx, CreateCollageRequest{Theme: "  "})
		assert.True(t, apperr.Is(err, apperr.Invalid))

		_, err = c.CreateCollage(ctx, CreateCollageRequest{Theme: "Summer", Duration: 30 * 24 * time.Hour})
		assert.True(t, apperr.Is(err, apperr.Invalid))
	})
}

func TestJoinByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("joins once", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		bob := e.client(t, "bob")

		collage, err := bob.JoinByCode(ctx, " abcd2345 ")
		require.NoError(t, err)
		assert.Equal(t, "c1", collage.ID)

		_, err = bob.JoinByCode(ctx, "ABCD2345")
		require.NoError(t, err, "joining twice is a no-op")
		assert.Len(t, e.fake.Memberships("c1"), 2)

		s, err := bob.Session(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, s.Members, 2)
	})

	t.Run("expired collage", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		e.fake.SetExpiry("c1", now)

		_, err := e.client(t, "bob").JoinByCode(ctx, "ABCD2345")
		assert.True(t, apperr.Is(err, apperr.Expired))
		assert.Equal(t, "this collage has expired", apperr.Message(err))
	})

	t.Run("concurrent joins make one membership", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		bob := e.client(t, "bob")

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := bob.JoinByCode(ctx, "ABCD2345")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		joined := 0
		for _, m := range e.fake.Memberships("c1") {
			if m.UserID == "bob" {
				joined++
			}
		}
		assert.Equal(t, 1, joined)

		s, err := bob.Session(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, s.Members, 2)
	})

	t.Run("malformed and unknown codes", func(t *testing.T) {
		e := newEnv(t)
		bob := e.client(t, "bob")

		_, err := bob.JoinByCode(ctx, "ABC")
		assert.True(t, apperr.Is(err, apperr.Invalid))

		_, err = bob.JoinByCode(ctx, "ZZZZ2345")
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})
}

func TestSession_ExpiresOnSchedule(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.fake.AddCollage(&models.Collage{
		ID: "c1", Theme: "Lunch", CreatorID: "alice", InviteCode: "ABCD2345",
		StartsAt: now, ExpiresAt: now.Add(1800 * time.Second),
	})
	e.fake.AddMembership("c1", "alice")
	e.fake.AddPhoto(&models.Photo{CollageID: "c1", OwnerID: "alice", Transform: models.IdentityTransform()})
	alice := e.client(t, "alice")

	e.clock.Advance(1700 * time.Second)
	s, err := alice.Session(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, s.Expired)
	assert.Len(t, s.Photos, 1)
	assert.Empty(t, e.cleaner.triggered())

	e.clock.Advance(200 * time.Second)
	s, err = alice.Session(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, s.Expired)
	assert.Empty(t, s.Photos)
	assert.Equal(t, []string{"c1"}, e.cleaner.triggered())

	partition, err := alice.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, partition.Active)
	require.Len(t, partition.Expired, 1)
	assert.Equal(t, "c1", partition.Expired[0].ID)
}

func TestSession_RequiresMembership(t *testing.T) {
	e := newEnv(t)
	e.activeCollage("c1", "alice")

	_, err := e.client(t, "bob").Session(context.Background(), "c1")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestUpdatePreview(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.activeCollage("c1", "alice")

	url, err := e.client(t, "alice").UpdatePreview(ctx, "c1", []byte("jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://storage.test/photos/previews/c1/"))

	collage, err := e.fake.GetCollage(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, collage.PreviewURL)
	assert.Equal(t, url, *collage.PreviewURL)
}

func TestPhotos(t *testing.T) {
	ctx := context.Background()

	t.Run("upload then list", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice", "bob")
		alice := e.client(t, "alice")

		photo, err := alice.UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)
		assert.Equal(t, models.IdentityTransform(), photo.Transform)
		assert.Equal(t, "c1/"+photo.ID+".jpg", photo.StoragePath)
		assert.True(t, e.fake.HasObject(photo.StoragePath))

		s, err := e.client(t, "bob").Session(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, s.Photos, 1)
		assert.Equal(t, photo.ID, s.Photos[0].ID)
	})

	t.Run("expired collage refuses uploads", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		e.fake.SetExpiry("c1", now.Add(-time.Second))

		_, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
		assert.True(t, apperr.Is(err, apperr.Expired))
		assert.Equal(t, []string{"c1"}, e.cleaner.triggered())
		assert.Zero(t, e.fake.ObjectCount())
	})

	t.Run("empty paste", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")

		_, err := e.client(t, "alice").PastePhoto(ctx, "c1", nil)
		assert.True(t, apperr.Is(err, apperr.Invalid))
		assert.Equal(t, "nothing to paste", apperr.Message(err))
		assert.Zero(t, e.fake.Calls("Upload"))
	})

	t.Run("failed row insert removes the object", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		e.fake.Fail("CreatePhoto", apperr.New(apperr.Transport, "create photo", "offline"))

		_, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
		assert.True(t, apperr.Is(err, apperr.Transport))
		assert.Zero(t, e.fake.ObjectCount())
	})

	t.Run("only the owner deletes", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice", "bob")
		photo, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)

		err = e.client(t, "bob").DeletePhoto(ctx, photo.ID)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))

		require.NoError(t, e.client(t, "alice").DeletePhoto(ctx, photo.ID))
		assert.False(t, e.fake.HasObject(photo.StoragePath))
		assert.Zero(t, e.fake.PhotoCount("c1"))
	})

	t.Run("commit transform", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice", "bob")
		photo, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)

		want := models.Transform{X: 3, Y: 4, Rotation: 45, Scale: 2}
		got, err := e.client(t, "bob").CommitTransform(ctx, photo.ID, want)
		require.NoError(t, err)
		assert.Equal(t, want, got.Transform)

		_, err = e.client(t, "bob").CommitTransform(ctx, photo.ID, models.Transform{})
		assert.True(t, apperr.Is(err, apperr.Invalid))

		_, err = e.client(t, "carol").CommitTransform(ctx, photo.ID, want)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})

	t.Run("committed transform reads back exactly", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice", "bob")
		photo, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)

		want := models.Transform{X: 10, Y: 20, Rotation: 45, Scale: 1.5}
		_, err = e.client(t, "alice").CommitTransform(ctx, photo.ID, want)
		require.NoError(t, err)

		s, err := e.client(t, "bob").Session(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, s.Photos, 1)
		assert.Equal(t, want, s.Photos[0].Transform)
	})

	t.Run("gesture on an expired collage is reverted", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		alice := e.client(t, "alice")
		photo, err := alice.UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)

		require.NoError(t, alice.Transforms().Begin(photo.ID, transform.Drag))
		_, err = alice.Transforms().Update(photo.ID, transform.Delta{DX: 50})
		require.NoError(t, err)
		e.fake.SetExpiry("c1", now.Add(-time.Second))

		_, err = alice.EndGesture(ctx, photo.ID, false)
		assert.True(t, apperr.Is(err, apperr.Expired))
		assert.Zero(t, e.fake.Calls("UpdatePhotoTransform"))
		display, ok := alice.Transforms().Display(photo.ID)
		require.True(t, ok)
		assert.Equal(t, models.IdentityTransform(), display)
		assert.Equal(t, transform.Idle, alice.Transforms().Gesture(photo.ID))
		assert.Equal(t, []string{"c1"}, e.cleaner.triggered())
	})

	t.Run("gesture dropped on the delete target", func(t *testing.T) {
		e := newEnv(t)
		e.activeCollage("c1", "alice")
		alice := e.client(t, "alice")
		photo, err := alice.UploadPhoto(ctx, "c1", []byte("jpeg"))
		require.NoError(t, err)

		require.NoError(t, alice.Transforms().Begin(photo.ID, transform.Drag))
		res, err := alice.EndGesture(ctx, photo.ID, true)
		require.NoError(t, err)
		assert.True(t, res.Deleted)
		assert.False(t, e.fake.HasObject(photo.StoragePath))
	})
}

func TestSubscribe_RequiresMembership(t *testing.T) {
	e := newEnv(t)
	e.activeCollage("c1", "alice")

	_, err := e.client(t, "bob").Subscribe(context.Background(), "c1", func([]*models.Photo) {})
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestSubscribe_TracksDeliveredPhotos(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.activeCollage("c1", "alice", "bob")
	bob := e.client(t, "bob")

	got := make(chan []*models.Photo, 4)
	sub, err := bob.Subscribe(ctx, "c1", func(p []*models.Photo) { got <- p })
	require.NoError(t, err)
	defer sub.Cancel()

	photo, err := e.client(t, "alice").UploadPhoto(ctx, "c1", []byte("jpeg"))
	require.NoError(t, err)

	select {
	case photos := <-got:
		require.Len(t, photos, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no photo list delivered")
	}
	_, ok := bob.Transforms().Display(photo.ID)
	assert.True(t, ok)
}
