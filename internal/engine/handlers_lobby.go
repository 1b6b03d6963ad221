// internal/engine/handlers_lobby.go
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// LobbyHandlers covers joining, readiness, lifecycle and administrative
// actions outside the question flow.
type LobbyHandlers struct {
	router *Router
}

// NewLobbyHandlers builds the lobby handler set.
func NewLobbyHandlers(router *Router) *LobbyHandlers {
	return &LobbyHandlers{router: router}
}

type joinPayload struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	Slot *int        `json:"slot,omitempty"`
}

// Join adds a participant to the game, or flips an existing participant back
// to connected when they rejoin with a fresh socket.
func (h *LobbyHandlers) Join(hc *HandlerContext) (*HandlerResult, error) {
	if hc.Session == nil {
		return nil, NewClientError(CodeValidation, "socket has no session")
	}
	var pl joinPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	g := hc.Game

	if existing := g.PlayerByID(hc.Session.UserID); existing != nil {
		return h.reconnectPlayer(hc, existing)
	}

	switch pl.Role {
	case models.RolePlayer, models.RoleSpectator:
	case models.RoleShowman:
		if g.Showman() != nil {
			return nil, NewClientError(CodeValidation, "game already has a showman")
		}
	default:
		return nil, NewClientError(CodeValidation, "unknown role %q", pl.Role)
	}

	p := &models.Player{
		ID:       hc.Session.UserID,
		Name:     pl.Name,
		Role:     pl.Role,
		Status:   models.StatusInGame,
		JoinedAt: time.Now().UTC(),
	}
	if pl.Role == models.RolePlayer {
		slot, err := h.resolveSlot(g, pl.Slot)
		if err != nil {
			return nil, err
		}
		p.Slot = &slot
	}
	g.Players = append(g.Players, p)

	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			mutation.UpdateSocketSession{
				SocketID: socketID(hc),
				Session:  &models.SocketSession{UserID: p.ID, GameID: g.ID},
			},
			mutation.UpdatePlayerStats{PlayerID: p.ID, Op: mutation.StatsStartSession},
			snapshotBroadcast(broadcast.EventPlayerJoined),
		},
		Response: p,
	}, nil
}

func (h *LobbyHandlers) reconnectPlayer(hc *HandlerContext, p *models.Player) (*HandlerResult, error) {
	p.Status = models.StatusInGame
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: hc.Game},
			mutation.UpdateSocketSession{
				SocketID: socketID(hc),
				Session:  &models.SocketSession{UserID: p.ID, GameID: hc.Game.ID},
			},
			mutation.UpdatePlayerStats{PlayerID: p.ID, Op: mutation.StatsClearLeftAt},
			snapshotBroadcast(broadcast.EventPlayerJoined),
		},
		Response: p,
	}, nil
}

// Reconnect restores a returning participant's connection state.
func (h *LobbyHandlers) Reconnect(hc *HandlerContext) (*HandlerResult, error) {
	if hc.Session == nil {
		return nil, NewClientError(CodeValidation, "socket has no session")
	}
	p := hc.Game.PlayerByID(hc.Session.UserID)
	if p == nil {
		return nil, NewClientError(CodePlayerNotFound, "not a participant of this game")
	}
	return h.reconnectPlayer(hc, p)
}

// Ready marks a player ready for the game to start.
func (h *LobbyHandlers) Ready(hc *HandlerContext) (*HandlerResult, error) {
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	if hc.Game.Started() {
		return nil, NewClientError(CodeInvalidPhase, "game already started")
	}
	p.Ready = true
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: hc.Game},
			snapshotBroadcast(broadcast.EventGameUpdated),
		},
	}, nil
}

// Start begins play: showman only, every seated player must be ready.
func (h *LobbyHandlers) Start(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	g := hc.Game
	if g.Started() {
		return nil, NewClientError(CodeInvalidPhase, "game already started")
	}
	active := g.ActivePlayers()
	if len(active) == 0 {
		return nil, NewClientError(CodeValidation, "no players seated")
	}
	for _, p := range active {
		if !p.Ready {
			return nil, NewClientError(CodeValidation, "player %s is not ready", p.Name)
		}
	}

	round, err := hc.Questions.GetRound(hc.Ctx, g.ID.String(), 0)
	if err != nil {
		return nil, NewServerError("load round 0: %v", err)
	}
	if round == nil {
		return nil, NewServerError("package for game %s has no rounds", g.ID)
	}

	now := time.Now().UTC()
	g.StartedAt = &now
	muts := []mutation.Mutation{mutation.SaveGame{Game: g}}
	if round.IsFinal {
		muts = append(muts, h.router.EnterFinalRound(g, round)...)
	} else {
		muts = append(muts, h.router.EnterRound(g, round)...)
		g.State.CurrentTurnPlayerID = active[0].ID
	}
	muts = append(muts, snapshotBroadcast(broadcast.EventGameStarted))

	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type targetPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
}

// Leave handles a participant leaving on their own initiative.
func (h *LobbyHandlers) Leave(hc *HandlerContext) (*HandlerResult, error) {
	if hc.CurrentPlayer == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	return h.depart(hc, hc.CurrentPlayer, dropSessionMutation(hc))
}

// Kick removes a participant at the showman's request.
func (h *LobbyHandlers) Kick(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	var pl targetPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	target := hc.Game.PlayerByID(pl.PlayerID)
	if target == nil {
		return nil, NewClientError(CodePlayerNotFound, "player %s not in game", pl.PlayerID)
	}
	if target.Role == models.RoleShowman {
		return nil, NewClientError(CodeValidation, "the showman cannot be kicked")
	}
	return h.depart(hc, target, nil)
}

// Disconnect records a dropped socket. The participant record is retained so
// stats and turn history stay valid.
func (h *LobbyHandlers) Disconnect(hc *HandlerContext) (*HandlerResult, error) {
	var target *models.Player
	if hc.CurrentPlayer != nil {
		target = hc.CurrentPlayer
	} else {
		var pl targetPayload
		if err := decode(hc, &pl); err != nil {
			return nil, err
		}
		target = hc.Game.PlayerByID(pl.PlayerID)
	}
	if target == nil {
		return nil, NewClientError(CodePlayerNotFound, "unknown player")
	}
	if target.Status == models.StatusDisconnected {
		// Already handled; nothing to persist.
		return &HandlerResult{Success: true}, nil
	}
	return h.depart(hc, target, dropSessionMutation(hc))
}

// depart is the shared leave/kick/disconnect path: flip status, resolve any
// sub-phase the player was holding up, record the left-at mark.
func (h *LobbyHandlers) depart(hc *HandlerContext, target *models.Player, sessionMut mutation.Mutation) (*HandlerResult, error) {
	g := hc.Game
	target.Status = models.StatusDisconnected

	muts := []mutation.Mutation{}
	if g.Started() {
		muts = append(muts, h.router.ResolveDeparture(g, target.ID)...)
	}
	muts = append(muts, mutation.SaveGame{Game: g})
	if sessionMut != nil {
		muts = append(muts, sessionMut)
	}
	muts = append(muts,
		mutation.UpdatePlayerStats{PlayerID: target.ID, Op: mutation.StatsSetLeftAt},
		snapshotBroadcast(broadcast.EventPlayerLeft),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type roleChangePayload struct {
	PlayerID uuid.UUID   `json:"playerId"`
	Role     models.Role `json:"role"`
}

// RoleChange reassigns a participant's role, showman only.
func (h *LobbyHandlers) RoleChange(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	var pl roleChangePayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	g := hc.Game
	target := g.PlayerByID(pl.PlayerID)
	if target == nil {
		return nil, NewClientError(CodePlayerNotFound, "player %s not in game", pl.PlayerID)
	}
	if pl.Role == models.RoleShowman {
		return nil, NewClientError(CodeValidation, "showman seat cannot be reassigned mid-game")
	}
	if target.Role == pl.Role {
		return &HandlerResult{Success: true}, nil
	}

	target.Role = pl.Role
	if pl.Role == models.RolePlayer {
		slot, err := h.resolveSlot(g, nil)
		if err != nil {
			return nil, err
		}
		target.Slot = &slot
	} else {
		target.Slot = nil
	}
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			snapshotBroadcast(broadcast.EventGameUpdated),
		},
	}, nil
}

type scoreChangePayload struct {
	PlayerID uuid.UUID `json:"playerId"`
	Score    int       `json:"score"`
}

// ScoreChange sets a player's score directly, showman only.
func (h *LobbyHandlers) ScoreChange(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	var pl scoreChangePayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	target := hc.Game.PlayerByID(pl.PlayerID)
	if target == nil {
		return nil, NewClientError(CodePlayerNotFound, "player %s not in game", pl.PlayerID)
	}
	if target.Role != models.RolePlayer {
		return nil, NewClientError(CodeValidation, "only players hold scores")
	}
	target.Score = clampScore(pl.Score, hc.Cfg.ScoreCap)
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: hc.Game},
			snapshotBroadcast(broadcast.EventGameUpdated),
		},
	}, nil
}

type slotChangePayload struct {
	PlayerID uuid.UUID `json:"playerId,omitempty"`
	Slot     int       `json:"slot"`
}

// SlotChange moves a player to a free board slot. Players move themselves;
// the showman may move anyone.
func (h *LobbyHandlers) SlotChange(hc *HandlerContext) (*HandlerResult, error) {
	if hc.CurrentPlayer == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	var pl slotChangePayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	g := hc.Game

	target := hc.CurrentPlayer
	if pl.PlayerID != uuid.Nil && pl.PlayerID != hc.CurrentPlayer.ID {
		if hc.CurrentPlayer.Role != models.RoleShowman {
			return nil, NewClientError(CodeInvalidRole, "only the showman may move other players")
		}
		target = g.PlayerByID(pl.PlayerID)
		if target == nil {
			return nil, NewClientError(CodePlayerNotFound, "player %s not in game", pl.PlayerID)
		}
	}
	if target.Role != models.RolePlayer {
		return nil, NewClientError(CodeValidation, "only players occupy slots")
	}
	for _, p := range g.Players {
		if p.Slot != nil && *p.Slot == pl.Slot && p.ID != target.ID {
			return nil, NewClientError(CodeValidation, "slot %d is taken", pl.Slot)
		}
	}
	slot := pl.Slot
	target.Slot = &slot
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			snapshotBroadcast(broadcast.EventGameUpdated),
		},
	}, nil
}

// Pause freezes the game and snapshots the outstanding countdown so Unpause
// can resume it with the remaining duration.
func (h *LobbyHandlers) Pause(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	g := hc.Game
	if g.Paused {
		return nil, NewClientError(CodeValidation, "game already paused")
	}
	g.Paused = true
	muts := []mutation.Mutation{}
	if hc.Timer != nil {
		frozen := hc.Timer.Freeze(time.Now())
		g.State.PausedTimer = &frozen
		muts = append(muts, mutation.TimerDelete{})
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventGamePaused),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// Unpause resumes play and restarts the frozen countdown, if any.
func (h *LobbyHandlers) Unpause(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	g := hc.Game
	if !g.Paused {
		return nil, NewClientError(CodeValidation, "game is not paused")
	}
	g.Paused = false
	muts := []mutation.Mutation{}
	if g.State.PausedTimer != nil {
		resumed := *g.State.PausedTimer
		resumed.StartedAt = time.Now().UnixMilli()
		g.State.PausedTimer = nil
		if resumed.Remaining() > 0 {
			muts = append(muts, mutation.TimerSet{Timer: resumed})
		}
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventGameUnpaused),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// Finish ends the game explicitly at the showman's request.
func (h *LobbyHandlers) Finish(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	return finishGame(hc.Game), nil
}

// finishGame stamps the end of play and declares completion bookkeeping.
func finishGame(g *models.Game) *HandlerResult {
	now := time.Now().UTC()
	g.FinishedAt = &now
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			mutation.TimerDelete{},
			snapshotBroadcast(broadcast.EventGameFinished),
			mutation.GameCompletion{Game: g},
		},
	}
}

// resolveSlot returns the requested slot when free, else the first free one.
func (h *LobbyHandlers) resolveSlot(g *models.Game, want *int) (int, error) {
	taken := make(map[int]bool)
	for _, p := range g.Players {
		if p.Slot != nil {
			taken[*p.Slot] = true
		}
	}
	if want != nil {
		if taken[*want] {
			return 0, NewClientError(CodeValidation, "slot %d is taken", *want)
		}
		return *want, nil
	}
	slot := 0
	for taken[slot] {
		slot++
	}
	return slot, nil
}

func socketID(hc *HandlerContext) string {
	return hc.SocketID
}

// dropSessionMutation declares the session delete for the acting socket, or
// nil when the action did not originate from a socket.
func dropSessionMutation(hc *HandlerContext) mutation.Mutation {
	if socketID(hc) == "" {
		return nil
	}
	return mutation.UpdateSocketSession{SocketID: socketID(hc), Session: nil}
}
