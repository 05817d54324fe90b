package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway/gatewaytest"
	"collage-sync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*gatewaytest.Fake, *Reconciler) {
	t.Helper()
	fake := gatewaytest.New()
	fake.Now = func() time.Time { return now }
	return fake, NewReconciler(fake, "photos", time.Second, zerolog.Nop())
}

func addExpired(fake *gatewaytest.Fake, id string, photos int) {
	fake.AddCollage(&models.Collage{ID: id, ExpiresAt: now.Add(-time.Hour)})
	for i := 0; i < photos; i++ {
		fake.AddPhoto(&models.Photo{CollageID: id, OwnerID: "alice"})
	}
}

func TestCleanupExpiredCollage(t *testing.T) {
	ctx := context.Background()

	t.Run("removes objects and rows", func(t *testing.T) {
		fake, r := setup(t)
		addExpired(fake, "c1", 3)
		fake.AddCollage(&models.Collage{ID: "live", ExpiresAt: now.Add(time.Hour)})
		fake.AddPhoto(&models.Photo{CollageID: "live", OwnerID: "alice"})

		res, err := r.CleanupExpiredCollage(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.RowsDeleted)
		assert.Equal(t, 3, res.ObjectsDeleted)
		assert.Zero(t, res.ObjectFailures)
		assert.Equal(t, 0, fake.PhotoCount("c1"))
		assert.Equal(t, 1, fake.PhotoCount("live"))
		assert.Equal(t, 1, fake.ObjectCount())
	})

	t.Run("is idempotent", func(t *testing.T) {
		fake, r := setup(t)
		addExpired(fake, "c1", 2)

		_, err := r.CleanupExpiredCollage(ctx, "c1")
		require.NoError(t, err)
		res, err := r.CleanupExpiredCollage(ctx, "c1")
		require.NoError(t, err)
		assert.Zero(t, res.RowsDeleted)
		assert.Zero(t, res.ObjectsDeleted)
	})

	t.Run("refuses an active collage", func(t *testing.T) {
		fake, r := setup(t)
		fake.AddCollage(&models.Collage{ID: "c1", ExpiresAt: now.Add(time.Minute)})
		fake.AddPhoto(&models.Photo{CollageID: "c1", OwnerID: "alice"})

		_, err := r.CleanupExpiredCollage(ctx, "c1")
		assert.True(t, apperr.Is(err, apperr.Invalid))
		assert.Equal(t, 1, fake.PhotoCount("c1"))
		assert.Equal(t, 0, fake.Calls("ListPhotos"))
	})

	t.Run("object failures do not abort row deletion", func(t *testing.T) {
		fake, r := setup(t)
		addExpired(fake, "c1", 2)
		fake.Fail("Remove", apperr.New(apperr.Transport, "remove object", "offline"))

		res, err := r.CleanupExpiredCollage(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 2, res.ObjectFailures)
		assert.Equal(t, int64(2), res.RowsDeleted)
		assert.Equal(t, 0, fake.PhotoCount("c1"))
	})

	t.Run("missing collage", func(t *testing.T) {
		_, r := setup(t)
		_, err := r.CleanupExpiredCollage(ctx, "nope")
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})
}

func TestCleanupAllExpiredCollages(t *testing.T) {
	ctx := context.Background()
	fake, r := setup(t)
	addExpired(fake, "c1", 1)
	addExpired(fake, "c2", 2)
	fake.AddCollage(&models.Collage{ID: "live", ExpiresAt: now.Add(time.Hour)})

	res, err := r.CleanupAllExpiredCollages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Zero(t, res.Failed)

	fake.Fail("DeletePhotosByCollage", apperr.New(apperr.Transport, "delete photos", "offline"))
	res, err = r.CleanupAllExpiredCollages(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
}

func TestTrigger(t *testing.T) {
	fake, r := setup(t)
	addExpired(fake, "c1", 2)

	r.Trigger("c1")
	r.Trigger("c1")
	r.Wait()

	assert.Equal(t, 0, fake.PhotoCount("c1"))
	assert.LessOrEqual(t, fake.Calls("IsCollageExpired"), 2)

	r.Trigger("c1")
	r.Wait()
	assert.Equal(t, 0, fake.PhotoCount("c1"))
}

func TestTrigger_FailureIsSwallowed(t *testing.T) {
	fake, r := setup(t)
	fake.AddCollage(&models.Collage{ID: "live", ExpiresAt: now.Add(time.Hour)})

	r.Trigger("live")
	r.Wait()
	assert.Equal(t, 1, fake.Calls("IsCollageExpired"))
}

func TestSpawn_RecoversPanic(t *testing.T) {
	var after atomic.Bool
	done := make(chan struct{})

	Spawn(zerolog.Nop(), "boom", func() {
		defer close(done)
		panic("boom")
	})
	<-done

	Spawn(zerolog.Nop(), "ok", func() { after.Store(true) })
	assert.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()

	t.Run("run now records status", func(t *testing.T) {
		fake, r := setup(t)
		addExpired(fake, "c1", 1)
		s := NewSweeper(r, time.Hour, time.Second, zerolog.Nop())

		res, err := s.RunNow(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)

		st := s.Status()
		assert.False(t, st.Running)
		assert.False(t, st.LastRun.IsZero())
		assert.Equal(t, 1, st.LastResult.Succeeded)
	})

	t.Run("start sweeps immediately and stop waits", func(t *testing.T) {
		fake, r := setup(t)
		addExpired(fake, "c1", 1)
		s := NewSweeper(r, time.Hour, time.Second, zerolog.Nop())

		s.Start()
		assert.Eventually(t, func() bool { return fake.PhotoCount("c1") == 0 }, time.Second, 5*time.Millisecond)
		assert.True(t, s.Status().Enabled)

		s.Stop()
		s.Stop()
		assert.False(t, s.Status().Enabled)
	})

	t.Run("list failure is reported", func(t *testing.T) {
		fake, r := setup(t)
		fake.Fail("ListExpiredCollages", apperr.New(apperr.Transport, "list", "offline"))
		s := NewSweeper(r, time.Hour, time.Second, zerolog.Nop())

		_, err := s.RunNow(ctx)
		assert.True(t, apperr.Is(err, apperr.Transport))
		assert.NotEmpty(t, s.Status().LastError)
	})
}
