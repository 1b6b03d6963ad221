// internal/mutation/mutation.go
package mutation

import (
	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// Mutation is one declared, not-yet-applied side effect returned by an action
// handler. The set is closed: the processor's switch over it is total, and a
// new case cannot be added without extending the processor.
//
// Mutations are produced by handlers, consumed exactly once by the processor,
// and never persisted themselves.
type Mutation interface {
	isMutation()
}

// SaveGame persists the full game hash and refreshes its TTLs. Required
// persistence: a failure aborts the action.
type SaveGame struct {
	Game *models.Game
}

// TimerSet replaces the game's outstanding countdown.
type TimerSet struct {
	Timer models.Timer
}

// TimerDelete removes the outstanding countdown before it expires.
type TimerDelete struct{}

// Broadcast declares one event to fan out after persistence succeeds.
type Broadcast struct {
	Event broadcast.Event
	// WithSnapshot attaches a role-filtered game snapshot as the payload at
	// emit time, built from the resolved broadcast game.
	WithSnapshot bool
}

// GameCompletion finalizes a finished game: statistics persistence and store
// cleanup. Runs last, after clients were notified.
type GameCompletion struct {
	Game *models.Game
}

// UpdateSocketSession writes a socket's session record. Best effort.
type UpdateSocketSession struct {
	SocketID string
	// Session nil means delete.
	Session *models.SocketSession
}

// StatsOp selects which best-effort player-stat side effect to run.
type StatsOp string

const (
	StatsStartSession StatsOp = "START_SESSION"
	StatsClearLeftAt  StatsOp = "CLEAR_LEFT_AT"
	StatsSetLeftAt    StatsOp = "SET_LEFT_AT"
)

// UpdatePlayerStats declares one best-effort stats side effect.
type UpdatePlayerStats struct {
	PlayerID uuid.UUID
	Op       StatsOp
}

func (SaveGame) isMutation()            {}
func (TimerSet) isMutation()            {}
func (TimerDelete) isMutation()         {}
func (Broadcast) isMutation()           {}
func (GameCompletion) isMutation()      {}
func (UpdateSocketSession) isMutation() {}
func (UpdatePlayerStats) isMutation()   {}
