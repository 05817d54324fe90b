package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"collage-sync/internal/config"
	"collage-sync/internal/gateway/gatewaytest"
	"collage-sync/internal/models"
	"collage-sync/internal/push"
	"collage-sync/internal/realtime"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingCleaner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingCleaner) Trigger(collageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, collageID)
}

func (r *recordingCleaner) triggered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type sentNotification struct {
	token string
	n     push.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, token string, n push.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{token: token, n: n})
	return nil
}

func (r *recordingNotifier) all() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotification(nil), r.sent...)
}

// testClock starts at now and only moves when advanced
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

type env struct {
	fake     *gatewaytest.Fake
	cleaner  *recordingCleaner
	notifier *recordingNotifier
	clock    *testClock
	manager  *Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, nil)
}

// newEnvWith is newEnv with configure applied to the manager's deps
func newEnvWith(t *testing.T, configure func(*Deps)) *env {
	t.Helper()
	clock := &testClock{at: now}
	fake := gatewaytest.New()
	fake.Now = clock.Now

	token := "device-bob"
	fake.AddUser(&models.User{ID: "alice", Email: "alice@example.com", Username: "alice"})
	fake.AddUser(&models.User{ID: "bob", Email: "bob@example.com", Username: "bob", PushToken: &token})
	fake.AddUser(&models.User{ID: "carol", Email: "carol@example.com", Username: "carol"})

	e := &env{
		fake:     fake,
		cleaner:  &recordingCleaner{},
		notifier: &recordingNotifier{},
		clock:    clock,
	}
	deps := Deps{
		Gateway:  fake,
		Cleaner:  e.cleaner,
		Bridge:   realtime.NewBridge(fake, 10*time.Millisecond, zerolog.Nop()),
		Notifier: e.notifier,
		Bucket:   "photos",
		Collage: config.CollageConfig{
			DefaultDuration:    24 * time.Hour,
			MaxDuration:        7 * 24 * time.Hour,
			InviteCodeAttempts: 3,
		},
		Log: zerolog.Nop(),
		Now: clock.Now,
	}
	if configure != nil {
		configure(&deps)
	}
	e.manager = NewManager(deps, NewAuthService(fake, "test-secret", time.Hour))
	return e
}

func (e *env) client(t *testing.T, userID string) *Client {
	t.Helper()
	c, err := e.manager.Client(context.Background(), userID)
	require.NoError(t, err)
	return c
}

// activeCollage seeds a collage created by creatorID with the given members
func (e *env) activeCollage(id, creatorID string, members ...string) *models.Collage {
	c := e.fake.AddCollage(&models.Collage{
		ID: id, Theme: "Summer", CreatorID: creatorID, InviteCode: "ABCD2345",
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	})
	e.fake.AddMembership(id, creatorID)
	for _, m := range members {
		e.fake.AddMembership(id, m)
	}
	return c
}
