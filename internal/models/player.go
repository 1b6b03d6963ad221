// internal/models/player.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a participant may do within a game.
type Role string

const (
	RolePlayer    Role = "PLAYER"
	RoleShowman   Role = "SHOWMAN"
	RoleSpectator Role = "SPECTATOR"
)

// PlayerStatus tracks whether a participant currently holds a live connection.
type PlayerStatus string

const (
	StatusInGame       PlayerStatus = "IN_GAME"
	StatusDisconnected PlayerStatus = "DISCONNECTED"
)

// Player is a participant record. Players are never deleted mid-game:
// disconnects flip Status so turn history and stats stay valid, and the
// record is purged only when the game key itself expires.
type Player struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Role   Role         `json:"role"`
	Status PlayerStatus `json:"status"`
	Score  int          `json:"score"`
	// Slot is the board position; players only, nil for showman/spectators.
	Slot     *int      `json:"slot,omitempty"`
	Ready    bool      `json:"ready"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IsActivePlayer reports whether this participant is a connected scoring player.
func (p *Player) IsActivePlayer() bool {
	return p.Role == RolePlayer && p.Status == StatusInGame
}
