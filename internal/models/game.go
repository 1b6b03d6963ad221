// internal/models/game.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Game is the aggregate root for one match. At any instant it is owned
// exclusively by whichever execution holds its lock; everything here is
// persisted as a flat field map under the game key.
type Game struct {
	ID        uuid.UUID `json:"id"`
	JoinCode  string    `json:"joinCode"`
	PackageID uuid.UUID `json:"packageId"`
	Players   []*Player `json:"players"`
	State     GameState `json:"state"`
	Paused    bool      `json:"paused"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Hash field names for the persisted game record.
const (
	fieldID        = "id"
	fieldJoinCode  = "joinCode"
	fieldPackageID = "packageId"
	fieldPlayers   = "players"
	fieldState     = "state"
	fieldPaused    = "paused"
	fieldCreated   = "createdAt"
	fieldStarted   = "startedAt"
	fieldFinished  = "finishedAt"
)

// ToHash flattens the game into store hash fields. The players list and the
// state machine are serialized as JSON documents inside single fields.
func (g *Game) ToHash() (map[string]string, error) {
	players, err := json.Marshal(g.Players)
	if err != nil {
		return nil, fmt.Errorf("marshal players: %w", err)
	}
	state, err := json.Marshal(&g.State)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	h := map[string]string{
		fieldID:        g.ID.String(),
		fieldJoinCode:  g.JoinCode,
		fieldPackageID: g.PackageID.String(),
		fieldPlayers:   string(players),
		fieldState:     string(state),
		fieldPaused:    strconv.FormatBool(g.Paused),
		fieldCreated:   strconv.FormatInt(g.CreatedAt.UnixMilli(), 10),
	}
	if g.StartedAt != nil {
		h[fieldStarted] = strconv.FormatInt(g.StartedAt.UnixMilli(), 10)
	} else {
		h[fieldStarted] = ""
	}
	if g.FinishedAt != nil {
		h[fieldFinished] = strconv.FormatInt(g.FinishedAt.UnixMilli(), 10)
	} else {
		h[fieldFinished] = ""
	}
	return h, nil
}

// GameFromHash rebuilds a game from its stored field map.
func GameFromHash(h map[string]string) (*Game, error) {
	id, err := uuid.Parse(h[fieldID])
	if err != nil {
		return nil, fmt.Errorf("parse game id: %w", err)
	}
	pkgID, err := uuid.Parse(h[fieldPackageID])
	if err != nil {
		return nil, fmt.Errorf("parse package id: %w", err)
	}
	g := &Game{
		ID:        id,
		JoinCode:  h[fieldJoinCode],
		PackageID: pkgID,
	}
	if raw := h[fieldPlayers]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &g.Players); err != nil {
			return nil, fmt.Errorf("unmarshal players: %w", err)
		}
	}
	if raw := h[fieldState]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &g.State); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
	}
	g.Paused, _ = strconv.ParseBool(h[fieldPaused])
	g.CreatedAt = parseMillis(h[fieldCreated])
	if ts := h[fieldStarted]; ts != "" {
		t := parseMillis(ts)
		g.StartedAt = &t
	}
	if ts := h[fieldFinished]; ts != "" {
		t := parseMillis(ts)
		g.FinishedAt = &t
	}
	return g, nil
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// PlayerByID finds a participant by id, nil when absent.
func (g *Game) PlayerByID(id uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Showman returns the moderator, nil when the seat is empty.
func (g *Game) Showman() *Player {
	for _, p := range g.Players {
		if p.Role == RoleShowman {
			return p
		}
	}
	return nil
}

// ActivePlayers returns connected scoring players in join order.
func (g *Game) ActivePlayers() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.IsActivePlayer() {
			out = append(out, p)
		}
	}
	return out
}

// Started reports whether play has begun and not yet finished.
func (g *Game) Started() bool {
	return g.StartedAt != nil && g.FinishedAt == nil
}
