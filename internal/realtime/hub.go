package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message types sent to peers
const (
	TypePhotos       = "photos"
	TypeMemberStatus = "member_status"
	TypeTransform    = "transform"
	TypeError        = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string `json:"type"`
	CollageID string `json:"collage_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	PhotoID   string `json:"photo_id,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Conn is the write side of a WebSocket connection
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Peer is one WebSocket connection watching one collage
type Peer struct {
	ID        string
	UserID    string
	CollageID string

	mu   sync.Mutex
	conn Conn
}

// NewPeer wraps conn for userID watching collageID
func NewPeer(userID, collageID string, conn Conn) *Peer {
	return &Peer{
		ID:        uuid.NewString(),
		UserID:    userID,
		CollageID: collageID,
		conn:      conn,
	}
}

// Send writes msg to the peer. Writes to one peer are serialized.
func (p *Peer) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Hub manages the peers of every collage
type Hub struct {
	mu    sync.RWMutex
	peers map[string]map[string]*Peer
	log   zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		peers: make(map[string]map[string]*Peer),
		log:   logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds a peer and tells the collage's other peers it came online
func (h *Hub) Register(p *Peer) {
	h.mu.Lock()
	group, ok := h.peers[p.CollageID]
	if !ok {
		group = make(map[string]*Peer)
		h.peers[p.CollageID] = group
	}
	group[p.ID] = p
	h.mu.Unlock()

	h.log.Info().Str("user_id", p.UserID).Str("collage_id", p.CollageID).Msg("WebSocket peer registered")
	h.notifyStatus(p, true)
}

// Unregister removes a peer, closes its connection and tells the collage's
// other peers it went offline
func (h *Hub) Unregister(p *Peer) {
	h.mu.Lock()
	group := h.peers[p.CollageID]
	_, ok := group[p.ID]
	if ok {
		delete(group, p.ID)
		if len(group) == 0 {
			delete(h.peers, p.CollageID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	p.conn.Close()
	h.log.Info().Str("user_id", p.UserID).Str("collage_id", p.CollageID).Msg("WebSocket peer unregistered")
	h.notifyStatus(p, false)
}

// Broadcast sends msg to every peer of collageID except the one with exceptID
func (h *Hub) Broadcast(collageID, exceptID string, msg Message) {
	for _, p := range h.snapshot(collageID) {
		if p.ID == exceptID {
			continue
		}
		if err := p.Send(msg); err != nil {
			h.log.Error().Err(err).Str("user_id", p.UserID).Str("collage_id", collageID).Msg("Failed to broadcast message")
		}
	}
}

// Online returns the ids of users with at least one peer on collageID
func (h *Hub) Online(collageID string) []string {
	seen := make(map[string]struct{})
	var users []string
	for _, p := range h.snapshot(collageID) {
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		users = append(users, p.UserID)
	}
	return users
}

// PeerCount returns the number of peers on collageID
func (h *Hub) PeerCount(collageID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers[collageID])
}

func (h *Hub) snapshot(collageID string) []*Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := make([]*Peer, 0, len(h.peers[collageID]))
	for _, p := range h.peers[collageID] {
		peers = append(peers, p)
	}
	return peers
}

func (h *Hub) notifyStatus(p *Peer, online bool) {
	h.Broadcast(p.CollageID, p.ID, Message{
		Type:      TypeMemberStatus,
		CollageID: p.CollageID,
		UserID:    p.UserID,
		Online:    &online,
	})
}
