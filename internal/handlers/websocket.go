package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"collage-sync/internal/apperr"
	"collage-sync/internal/models"
	"collage-sync/internal/realtime"
	"collage-sync/internal/services"
	"collage-sync/internal/transform"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message types received from peers
const (
	TypeGestureBegin  = "gesture_begin"
	TypeGestureUpdate = "gesture_update"
	TypeGestureEnd    = "gesture_end"
	TypeGestureCancel = "gesture_cancel"
)

// GestureMessage is a gesture event sent by a client
type GestureMessage struct {
	Type             string          `json:"type"`
	PhotoID          string          `json:"photo_id"`
	Gesture          string          `json:"gesture,omitempty"`
	Delta            transform.Delta `json:"delta"`
	OverDeleteTarget bool            `json:"over_delete_target,omitempty"`
}

// WebSocketHandler streams a collage to its members and takes gestures back
type WebSocketHandler struct {
	manager  *services.Manager
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. An empty allowedOrigins
// accepts every origin.
func NewWebSocketHandler(manager *services.Manager, hub *realtime.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket handles GET /ws?token=...&collage_id=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}
	collageID := r.URL.Query().Get("collage_id")
	if collageID == "" {
		respondError(w, "collage_id required", http.StatusBadRequest)
		return
	}

	c, err := h.manager.ClientForToken(r.Context(), token)
	if apperr.Is(err, apperr.Unauthorized) {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	session, err := c.Session(r.Context(), collageID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	if session.Expired {
		respondAppError(w, r, apperr.New(apperr.Expired, "open collage stream", "collage has expired"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	release := c.Hold()
	defer release()

	peer := realtime.NewPeer(c.UserID(), collageID, conn)
	h.hub.Register(peer)
	defer h.hub.Unregister(peer)

	conv := &conversation{hub: h.hub, client: c, peer: peer, gestures: make(map[string]struct{})}
	defer conv.abandonGestures()

	// Signing out ends the connection; its Client no longer sees invalidations.
	go func() {
		select {
		case <-c.Done():
			h.hub.Unregister(peer)
		case <-ctx.Done():
		}
	}()

	if err := peer.Send(photosMessage(collageID, session.Photos)); err != nil {
		log.Error().Err(err).Str("user_id", c.UserID()).Msg("Failed to send initial photos")
		return
	}

	sub, err := c.Subscribe(ctx, collageID, func(photos []*models.Photo) {
		if err := peer.Send(photosMessage(collageID, photos)); err != nil {
			log.Debug().Err(err).Str("user_id", c.UserID()).Msg("Failed to push photos")
		}
	})
	if err != nil {
		h.sendError(peer, err)
		return
	}
	defer sub.Cancel()

	log.Info().Str("user_id", c.UserID()).Str("collage_id", collageID).Msg("WebSocket connection established")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", c.UserID()).Msg("WebSocket error")
			}
			return
		}

		var msg GestureMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(peer, apperr.New(apperr.Invalid, "parse message", "invalid message format"))
			continue
		}
		if err := conv.handle(ctx, msg); err != nil {
			log.Debug().Err(err).Str("user_id", c.UserID()).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(peer, err)
		}
	}
}

// conversation is the gesture state of one connection. It is only used by
// the connection's read loop.
type conversation struct {
	hub      *realtime.Hub
	client   *services.Client
	peer     *realtime.Peer
	gestures map[string]struct{}
}

// handle applies one gesture event. Live placements are shown to the other
// peers of the collage; the sender already displays its own.
func (cv *conversation) handle(ctx context.Context, msg GestureMessage) error {
	if msg.PhotoID == "" {
		return apperr.New(apperr.Invalid, "handle message", "photo_id required")
	}
	transforms := cv.client.Transforms()
	if collageID, ok := transforms.CollageOf(msg.PhotoID); !ok || collageID != cv.peer.CollageID {
		return apperr.New(apperr.NotFound, "handle message", "photo is not in this collage")
	}

	switch msg.Type {
	case TypeGestureBegin:
		g, err := transform.ParseGesture(msg.Gesture)
		if err != nil {
			return err
		}
		if err := transforms.Begin(msg.PhotoID, g); err != nil {
			return err
		}
		cv.gestures[msg.PhotoID] = struct{}{}
		return nil

	case TypeGestureUpdate:
		t, err := transforms.Update(msg.PhotoID, msg.Delta)
		if err != nil {
			return err
		}
		cv.hub.Broadcast(cv.peer.CollageID, cv.peer.ID, transformMessage(cv.peer, msg.PhotoID, t))
		return nil

	case TypeGestureEnd:
		delete(cv.gestures, msg.PhotoID)
		// The commit outlives the connection.
		res, err := cv.client.EndGesture(context.WithoutCancel(ctx), msg.PhotoID, msg.OverDeleteTarget)
		if err != nil {
			// The display has reverted; everyone goes back to the last known placement.
			cv.broadcastDisplay(msg.PhotoID, "")
			return err
		}
		if !res.Deleted {
			cv.hub.Broadcast(cv.peer.CollageID, cv.peer.ID, transformMessage(cv.peer, msg.PhotoID, res.Transform))
		}
		return nil

	case TypeGestureCancel:
		delete(cv.gestures, msg.PhotoID)
		transforms.Cancel(msg.PhotoID)
		cv.broadcastDisplay(msg.PhotoID, "")
		return nil
	}
	return apperr.New(apperr.Invalid, "handle message", "unknown message type")
}

// abandonGestures cancels the gestures left open when the connection ends
// and shows the others the restored placements
func (cv *conversation) abandonGestures() {
	transforms := cv.client.Transforms()
	for photoID := range cv.gestures {
		transforms.Cancel(photoID)
		cv.broadcastDisplay(photoID, cv.peer.ID)
	}
	clear(cv.gestures)
}

func (cv *conversation) broadcastDisplay(photoID, exceptID string) {
	if t, ok := cv.client.Transforms().Display(photoID); ok {
		cv.hub.Broadcast(cv.peer.CollageID, exceptID, transformMessage(cv.peer, photoID, t))
	}
}

// sendError reports err to the peer
func (h *WebSocketHandler) sendError(peer *realtime.Peer, err error) {
	msg := realtime.Message{
		Type:      realtime.TypeError,
		CollageID: peer.CollageID,
		Message:   apperr.Message(err),
	}
	if sendErr := peer.Send(msg); sendErr != nil {
		log.Debug().Err(sendErr).Str("user_id", peer.UserID).Msg("Failed to send error")
	}
}

func photosMessage(collageID string, photos []*models.Photo) realtime.Message {
	return realtime.Message{
		Type:      realtime.TypePhotos,
		CollageID: collageID,
		Data:      photos,
	}
}

func transformMessage(peer *realtime.Peer, photoID string, t models.Transform) realtime.Message {
	return realtime.Message{
		Type:      realtime.TypeTransform,
		CollageID: peer.CollageID,
		UserID:    peer.UserID,
		PhotoID:   photoID,
		Data:      t,
	}
}
