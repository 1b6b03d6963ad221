// internal/transport/registry.go
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
)

const sendTimeout = 5 * time.Second

// wsSocket is one live connection. The player identity starts as the token's
// user id with a spectator role and is refined once the join action resolves.
type wsSocket struct {
	id     string
	gameID uuid.UUID
	conn   *websocket.Conn

	mu       sync.RWMutex
	playerID uuid.UUID
	role     models.Role
}

func (s *wsSocket) ID() string { return s.id }

func (s *wsSocket) PlayerID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerID
}

func (s *wsSocket) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *wsSocket) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) setIdentity(playerID uuid.UUID, role models.Role) {
	s.mu.Lock()
	s.playerID = playerID
	s.role = role
	s.mu.Unlock()
}

// SocketHub tracks live sockets per game and implements the broadcast
// registry contract.
type SocketHub struct {
	mu     sync.RWMutex
	byGame map[uuid.UUID]map[string]*wsSocket
	byID   map[string]*wsSocket
}

// NewSocketHub builds an empty hub.
func NewSocketHub() *SocketHub {
	return &SocketHub{
		byGame: make(map[uuid.UUID]map[string]*wsSocket),
		byID:   make(map[string]*wsSocket),
	}
}

// SocketsForGame returns the live sockets attached to a game.
func (h *SocketHub) SocketsForGame(gameID uuid.UUID) []broadcast.Socket {
	h.mu.RLock()
	defer h.mu.RUnlock()
	socks := h.byGame[gameID]
	out := make([]broadcast.Socket, 0, len(socks))
	for _, s := range socks {
		out = append(out, s)
	}
	return out
}

// SocketByID resolves one socket, nil when gone.
func (h *SocketHub) SocketByID(socketID string) broadcast.Socket {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.byID[socketID]; ok {
		return s
	}
	return nil
}

// SetSocketIdentity refreshes a socket's resolved player identity. The
// mutation processor calls it once a session update lands, which covers joins
// that executed from the action queue with no caller attached.
func (h *SocketHub) SetSocketIdentity(socketID string, playerID uuid.UUID, role models.Role) {
	h.mu.RLock()
	s := h.byID[socketID]
	h.mu.RUnlock()
	if s != nil {
		s.setIdentity(playerID, role)
	}
}

func (h *SocketHub) add(s *wsSocket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byGame[s.gameID] == nil {
		h.byGame[s.gameID] = make(map[string]*wsSocket)
	}
	h.byGame[s.gameID][s.id] = s
	h.byID[s.id] = s
}

func (h *SocketHub) remove(s *wsSocket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, s.id)
	if game := h.byGame[s.gameID]; game != nil {
		delete(game, s.id)
		if len(game) == 0 {
			delete(h.byGame, s.gameID)
		}
	}
}
