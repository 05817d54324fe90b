package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// subscriberBuffer bounds the changes queued for one subscriber. A full
// buffer already holds a pending refresh, so further changes are dropped.
const subscriberBuffer = 64

// PhotoListener holds one dedicated LISTEN connection outside the pool and
// fans the photos trigger notifications out to subscribers by collage id
type PhotoListener struct {
	connString string
	retryDelay time.Duration

	mu        sync.Mutex
	connected bool
	subs      map[string]map[chan models.PhotoChange]struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPhotoListener creates a stopped listener. After a lost connection it
// reconnects every retryDelay.
func NewPhotoListener(connString string, retryDelay time.Duration) *PhotoListener {
	return &PhotoListener{
		connString: connString,
		retryDelay: retryDelay,
		subs:       make(map[string]map[chan models.PhotoChange]struct{}),
	}
}

// Start connects and listens in the background until Close. The first
// connection is made before returning.
func (l *PhotoListener) Start(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}

	lctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancel = cancel
	l.done = make(chan struct{})
	l.connected = true
	l.mu.Unlock()

	go l.run(lctx, conn)
	return nil
}

// Close stops listening and closes every subscriber channel
func (l *PhotoListener) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Listen forwards the changes for collageID. The channel closes when ctx
// ends or the listener loses its connection.
func (l *PhotoListener) Listen(ctx context.Context, collageID string) (<-chan models.PhotoChange, error) {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return nil, apperr.New(apperr.Transport, "listen", "photo listener is not connected")
	}
	ch := make(chan models.PhotoChange, subscriberBuffer)
	group, ok := l.subs[collageID]
	if !ok {
		group = make(map[chan models.PhotoChange]struct{})
		l.subs[collageID] = group
	}
	group[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.remove(collageID, ch)
	}()
	return ch, nil
}

func (l *PhotoListener) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return nil, classify("connect listener", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+PhotoChannel); err != nil {
		conn.Close(context.Background())
		return nil, classify("listen", err)
	}
	return conn, nil
}

func (l *PhotoListener) run(ctx context.Context, conn *pgx.Conn) {
	defer close(l.done)

	for {
		err := l.receive(ctx, conn)
		conn.Close(context.Background())
		l.disconnect()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("Photo listener connection lost")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retryDelay):
			}
			conn, err = l.connect(ctx)
			if err == nil {
				break
			}
			log.Error().Err(err).Msg("Failed to reconnect photo listener")
		}

		l.mu.Lock()
		l.connected = true
		l.mu.Unlock()
		log.Info().Msg("Photo listener reconnected")
	}
}

func (l *PhotoListener) receive(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, err := decodeChange(n.Payload)
		if err != nil {
			log.Warn().Err(err).Str("payload", n.Payload).Msg("Dropping malformed photo notification")
			continue
		}
		l.dispatch(change)
	}
}

func (l *PhotoListener) dispatch(change models.PhotoChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs[change.CollageID] {
		select {
		case ch <- change:
		default:
		}
	}
}

// disconnect closes every subscriber channel so subscribers resubscribe
func (l *PhotoListener) disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	for _, group := range l.subs {
		for ch := range group {
			close(ch)
		}
	}
	l.subs = make(map[string]map[chan models.PhotoChange]struct{})
}

func (l *PhotoListener) remove(collageID string, ch chan models.PhotoChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	group := l.subs[collageID]
	if _, ok := group[ch]; !ok {
		return
	}
	delete(group, ch)
	close(ch)
	if len(group) == 0 {
		delete(l.subs, collageID)
	}
}

// subscribers returns the number of open subscriptions of collageID
func (l *PhotoListener) subscribers(collageID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[collageID])
}

func decodeChange(payload string) (models.PhotoChange, error) {
	var change models.PhotoChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, fmt.Errorf("failed to decode notification: %w", err)
	}
	if change.CollageID == "" {
		return change, fmt.Errorf("notification without collage_id")
	}
	return change, nil
}
