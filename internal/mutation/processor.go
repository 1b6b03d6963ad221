// internal/mutation/processor.go
package mutation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/cache"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// OutFlusher is the OUT side of the store round trips: the batched
// persistence write plus the finished-game key cleanup.
type OutFlusher interface {
	Flush(ctx context.Context, gameID string, batch cache.OutBatch) (int64, error)
	DeleteGame(ctx context.Context, gameID string) error
}

// SessionWriter applies socket-session mutations.
type SessionWriter interface {
	Set(ctx context.Context, socketID string, sess models.SocketSession) error
	Delete(ctx context.Context, socketID string) error
}

// IdentityNotifier lets the transport refresh a socket's resolved player
// identity once a session mutation lands. A join that ran from the queue has
// no caller to hand its response to, so the identity travels this way.
type IdentityNotifier interface {
	SetSocketIdentity(socketID string, playerID uuid.UUID, role models.Role)
}

// StatsService applies best-effort player-stat side effects.
type StatsService interface {
	InitializePlayerSession(ctx context.Context, playerID uuid.UUID) error
	ClearPlayerLeftAt(ctx context.Context, playerID uuid.UUID) error
	SetPlayerLeftAt(ctx context.Context, playerID uuid.UUID) error
}

// Archiver persists a finished game's final standings.
type Archiver interface {
	ArchiveGame(ctx context.Context, game *models.Game) error
}

// Result is what the processor reports back to the executor.
type Result struct {
	// QueueLen is the pending-action count read in the OUT round trip; the
	// executor drains the queue when it is non-zero.
	QueueLen int64
}

// Processor classifies a handler's declared mutations and applies them in
// fixed order: required persistence first (one round trip), then best-effort
// side effects, then broadcasts, then completion bookkeeping.
type Processor struct {
	pipe     OutFlusher
	sessions SessionWriter
	stats    StatsService
	emitter  broadcast.Emitter
	archiver Archiver
	identity IdentityNotifier
	log      *logrus.Logger
}

// NewProcessor wires the processor's collaborators. identity may be nil when
// no transport is attached.
func NewProcessor(pipe OutFlusher, sessions SessionWriter, stats StatsService, emitter broadcast.Emitter, archiver Archiver, identity IdentityNotifier, log *logrus.Logger) *Processor {
	return &Processor{
		pipe:     pipe,
		sessions: sessions,
		stats:    stats,
		emitter:  emitter,
		archiver: archiver,
		identity: identity,
		log:      log,
	}
}

// classified buckets one handler's mutations by tag.
type classified struct {
	save        *SaveGame
	setTimer    *TimerSet
	deleteTimer bool
	broadcasts  []Broadcast
	sessions    []UpdateSocketSession
	stats       []UpdatePlayerStats
	completions []GameCompletion
}

func classify(muts []Mutation) (classified, error) {
	var c classified
	for _, m := range muts {
		switch mut := m.(type) {
		case SaveGame:
			c.save = &mut
		case TimerSet:
			c.setTimer = &mut
		case TimerDelete:
			c.deleteTimer = true
		case Broadcast:
			c.broadcasts = append(c.broadcasts, mut)
		case UpdateSocketSession:
			c.sessions = append(c.sessions, mut)
		case UpdatePlayerStats:
			c.stats = append(c.stats, mut)
		case GameCompletion:
			c.completions = append(c.completions, mut)
		default:
			return c, fmt.Errorf("unknown mutation %T", m)
		}
	}
	return c, nil
}

// Apply executes the mutation list. success gates broadcasts; prefetched and
// broadcastOverride feed the broadcast-game resolution. Returns the queue
// length observed in the OUT round trip.
func (p *Processor) Apply(ctx context.Context, gameID uuid.UUID, muts []Mutation, success bool, broadcastOverride, prefetched *models.Game) (Result, error) {
	c, err := classify(muts)
	if err != nil {
		return Result{}, err
	}
	log := p.log.WithField("gameId", gameID)

	// 1. OUT pipeline: required persistence plus the queue-length read.
	batch := cache.OutBatch{DeleteTimer: c.deleteTimer}
	if c.save != nil {
		hash, err := c.save.Game.ToHash()
		if err != nil {
			return Result{}, fmt.Errorf("serialize game: %w", err)
		}
		batch.SaveGame = hash
	}
	if c.setTimer != nil {
		t := c.setTimer.Timer
		batch.SetTimer = &t
	}
	queueLen, err := p.pipe.Flush(ctx, gameID.String(), batch)
	if err != nil {
		return Result{}, err
	}
	bg := p.resolveBroadcastGame(broadcastOverride, c.save, prefetched)

	// 2. Socket-session updates. Best effort; never rolls back the save.
	for _, s := range c.sessions {
		var err error
		if s.Session == nil {
			err = p.sessions.Delete(ctx, s.SocketID)
		} else {
			err = p.sessions.Set(ctx, s.SocketID, *s.Session)
		}
		if err != nil {
			log.WithError(err).WithField("socketId", s.SocketID).Warn("mutation: session update failed")
			continue
		}
		// The transport learns who this socket became even when the action
		// ran from the queue with nobody waiting on its response.
		if s.Session != nil && p.identity != nil && bg != nil {
			if pl := bg.PlayerByID(s.Session.UserID); pl != nil {
				p.identity.SetSocketIdentity(s.SocketID, pl.ID, pl.Role)
			}
		}
	}

	// 3. Player-stat side effects. Same isolation as sessions.
	for _, s := range c.stats {
		var err error
		switch s.Op {
		case StatsStartSession:
			err = p.stats.InitializePlayerSession(ctx, s.PlayerID)
		case StatsClearLeftAt:
			err = p.stats.ClearPlayerLeftAt(ctx, s.PlayerID)
		case StatsSetLeftAt:
			err = p.stats.SetPlayerLeftAt(ctx, s.PlayerID)
		}
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"playerId": s.PlayerID,
				"op":       s.Op,
			}).Warn("mutation: player stats update failed")
		}
	}

	// 4. Broadcasts, only on success and only after state is durable, so any
	// client that re-queries on receipt observes the post-write state.
	if success {
		for _, b := range c.broadcasts {
			p.emit(ctx, gameID, b, bg)
		}
		if c.setTimer != nil {
			p.emitter.Emit(ctx, gameID, broadcast.Event{
				Type:   broadcast.EventTimerStarted,
				Target: broadcast.TargetGame,
				Payload: map[string]interface{}{
					"kind":       c.setTimer.Timer.Kind,
					"durationMs": c.setTimer.Timer.DurationMs,
					"startedAt":  c.setTimer.Timer.StartedAt,
				},
			})
		}
	}

	// 5. Completion bookkeeping runs last; clients are already notified.
	for _, comp := range c.completions {
		if err := p.archiver.ArchiveGame(ctx, comp.Game); err != nil {
			log.WithError(err).Warn("mutation: game archive failed")
		}
		if err := p.pipe.DeleteGame(ctx, gameID.String()); err != nil {
			log.WithError(err).Warn("mutation: game cleanup failed")
		}
	}

	return Result{QueueLen: queueLen}, nil
}

// resolveBroadcastGame picks the game used for snapshot payloads: handler
// override first, else the freshly saved game, else the prefetched one.
func (p *Processor) resolveBroadcastGame(override *models.Game, save *SaveGame, prefetched *models.Game) *models.Game {
	if override != nil {
		return override
	}
	if save != nil {
		return save.Game
	}
	return prefetched
}

func (p *Processor) emit(ctx context.Context, gameID uuid.UUID, b Broadcast, bg *models.Game) {
	if !b.WithSnapshot || bg == nil {
		p.emitter.Emit(ctx, gameID, b.Event)
		return
	}

	// Snapshot events split by role: the showman's view carries sub-phase
	// internals, everyone else gets the sanitized snapshot.
	showman := b.Event
	showman.Target = broadcast.TargetGame
	showman.Roles = []models.Role{models.RoleShowman}
	showman.Payload = bg.Snapshot(models.RoleShowman)
	p.emitter.Emit(ctx, gameID, showman)

	rest := b.Event
	rest.Target = broadcast.TargetGame
	rest.Roles = []models.Role{models.RolePlayer, models.RoleSpectator}
	rest.Payload = bg.Snapshot(models.RolePlayer)
	p.emitter.Emit(ctx, gameID, rest)
}
