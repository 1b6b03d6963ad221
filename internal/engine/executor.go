// internal/engine/executor.go
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/cache"
	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// LockPipeline is the IN side of the store round trips: lock acquisition
// bundled with the game/timer/session prefetch, plus the token-guarded
// release.
type LockPipeline interface {
	AcquireAndFetch(ctx context.Context, gameID, socketID string) (*cache.Prefetch, error)
	ReleaseLock(ctx context.Context, gameID, token string)
}

// ActionQueue is the per-game FIFO for actions that lost the lock race.
type ActionQueue interface {
	Enqueue(ctx context.Context, env models.ActionEnvelope) error
	Requeue(ctx context.Context, env models.ActionEnvelope) error
	Dequeue(ctx context.Context, gameID string) (*models.ActionEnvelope, error)
	Len(ctx context.Context, gameID string) (int64, error)
}

// AuditTrail records every handled action.
type AuditTrail interface {
	Record(gameID uuid.UUID, actionType models.ActionType, playerID uuid.UUID, success bool)
}

// MutationApplier consumes a handler's declared mutations.
type MutationApplier interface {
	Apply(ctx context.Context, gameID uuid.UUID, muts []mutation.Mutation, success bool, broadcastOverride, prefetched *models.Game) (mutation.Result, error)
}

// Outcome is what an execution reports back to its caller.
type Outcome struct {
	// Queued means the lock was contended and the action now waits in the
	// game's FIFO; the current lock holder will execute it.
	Queued bool
	// QueueLen is the pending-action count observed when this action's writes
	// flushed. The executor drains only when it is non-zero, so an idle game
	// pays no extra queue round trip.
	QueueLen int64
	Response interface{}
}

// Executor owns the per-game execution discipline: one lock acquisition with
// bundled prefetch, one handler run, one mutation batch out, then a drain of
// whatever queued up behind the lock.
type Executor struct {
	cfg       *config.Config
	log       *logrus.Logger
	pipe      LockPipeline
	queue     ActionQueue
	audit     AuditTrail
	registry  *Registry
	processor MutationApplier
	questions QuestionStore
	emitter   broadcast.Emitter
}

// NewExecutor wires the executor's collaborators.
func NewExecutor(
	cfg *config.Config,
	log *logrus.Logger,
	pipe LockPipeline,
	queue ActionQueue,
	audit AuditTrail,
	registry *Registry,
	processor MutationApplier,
	questions QuestionStore,
	emitter broadcast.Emitter,
) *Executor {
	return &Executor{
		cfg:       cfg,
		log:       log,
		pipe:      pipe,
		queue:     queue,
		audit:     audit,
		registry:  registry,
		processor: processor,
		questions: questions,
		emitter:   emitter,
	}
}

// Execute runs one action end to end. When the action itself could not take
// the lock it is queued and the outcome says so; otherwise the action ran,
// and any actions that queued up behind it were drained before returning.
func (e *Executor) Execute(ctx context.Context, env models.ActionEnvelope) (*Outcome, error) {
	out, err := e.runOne(ctx, env, false)
	if err != nil {
		// The mutation flush never ran, so no queue length was observed;
		// check explicitly before giving the lock up for good.
		e.drainIfPending(ctx, env.GameID)
		return nil, err
	}
	if !out.Queued && out.QueueLen > 0 {
		e.drain(ctx, env.GameID)
	}
	return out, nil
}

// runOne performs a single acquire-handle-apply-release cycle. fromQueue
// marks actions popped off the FIFO: losing the lock puts those back at the
// head instead of the tail so they cannot fall behind later arrivals.
func (e *Executor) runOne(ctx context.Context, env models.ActionEnvelope, fromQueue bool) (*Outcome, error) {
	gameID := env.GameID.String()
	log := e.log.WithFields(logrus.Fields{
		"gameId": env.GameID,
		"action": env.Type,
	})

	pf, err := e.pipe.AcquireAndFetch(ctx, gameID, env.SocketID)
	if err != nil {
		return nil, NewServerError("acquire: %v", err)
	}
	if !pf.Acquired {
		if fromQueue {
			err = e.queue.Requeue(ctx, env)
		} else {
			err = e.queue.Enqueue(ctx, env)
		}
		if err != nil {
			return nil, NewServerError("enqueue: %v", err)
		}
		log.Debug("executor: lock contended, action queued")
		return &Outcome{Queued: true}, nil
	}
	defer e.pipe.ReleaseLock(ctx, gameID, pf.LockToken)

	if len(pf.GameData) == 0 {
		return nil, NewClientError(CodeGameNotFound, "game %s not found", env.GameID)
	}
	game, err := models.GameFromHash(pf.GameData)
	if err != nil {
		return nil, NewServerError("rebuild game %s: %v", env.GameID, err)
	}

	var current *models.Player
	if pf.Session != nil {
		current = game.PlayerByID(pf.Session.UserID)
	}

	handler := e.registry.Get(env.Type)
	if handler == nil {
		return nil, NewServerError("no handler for action %s", env.Type)
	}

	hc := &HandlerContext{
		Ctx:           ctx,
		Cfg:           e.cfg,
		Log:           log,
		Game:          game,
		CurrentPlayer: current,
		Payload:       env.Payload,
		Timer:         pf.Timer,
		Session:       pf.Session,
		SocketID:      env.SocketID,
		Questions:     e.questions,
	}

	res, herr := handler.Handle(hc)
	playerID := uuid.Nil
	if current != nil {
		playerID = current.ID
	}
	e.audit.Record(env.GameID, env.Type, playerID, herr == nil)

	if herr != nil {
		e.reportError(ctx, env, herr, log)
		return nil, herr
	}

	applied, err := e.processor.Apply(ctx, env.GameID, res.Mutations, res.Success, res.BroadcastGame, game)
	if err != nil {
		return nil, NewServerError("apply mutations: %v", err)
	}
	return &Outcome{Response: res.Response, QueueLen: applied.QueueLen}, nil
}

// drainIfPending drains only when the FIFO actually holds something. Used on
// failure paths where the OUT pipeline's queue-length read never happened.
func (e *Executor) drainIfPending(ctx context.Context, gameID uuid.UUID) {
	n, err := e.queue.Len(ctx, gameID.String())
	if err != nil {
		e.log.WithError(err).WithField("gameId", gameID).Warn("executor: queue length check failed")
		return
	}
	if n > 0 {
		e.drain(ctx, gameID)
	}
}

// drain executes queued actions until the observed backlog is gone. Losing
// the lock to a concurrent execution stops the drain; the popped action went
// back to the head of the queue and the new holder takes over from there.
func (e *Executor) drain(ctx context.Context, gameID uuid.UUID) {
	for {
		env, err := e.queue.Dequeue(ctx, gameID.String())
		if err != nil {
			e.log.WithError(err).WithField("gameId", gameID).Warn("executor: queue drain failed")
			return
		}
		if env == nil {
			return
		}
		out, err := e.runOne(ctx, *env, true)
		if err != nil {
			// Queued actions have no caller waiting; the failure was already
			// reported to the originating socket where possible.
			e.log.WithError(err).WithFields(logrus.Fields{
				"gameId": gameID,
				"action": env.Type,
			}).Info("executor: queued action failed")
			continue
		}
		if out.Queued || out.QueueLen == 0 {
			return
		}
	}
}

// reportError surfaces a failure to the originating socket. Client errors go
// out typed; server errors are logged in full and surfaced generically.
func (e *Executor) reportError(ctx context.Context, env models.ActionEnvelope, herr error, log *logrus.Entry) {
	ce, isClient := IsClientError(herr)
	if !isClient {
		log.WithError(herr).Error("executor: action failed")
	}
	if env.SocketID == "" {
		return
	}

	payload := map[string]interface{}{
		"action":  env.Type,
		"code":    "INTERNAL",
		"message": "internal server error",
	}
	if isClient {
		payload["code"] = ce.Code
		payload["message"] = ce.Message
	}
	e.emitter.Emit(ctx, env.GameID, broadcast.Event{
		Type:     broadcast.EventActionError,
		Target:   broadcast.TargetSocket,
		SocketID: env.SocketID,
		Payload:  payload,
	})
}
