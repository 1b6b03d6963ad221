// internal/engine/handler.go
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// QuestionStore is the read-only package collaborator. Populated once at
// game creation, never mutated during play.
type QuestionStore interface {
	GetRound(ctx context.Context, gameID string, order int) (*models.Round, error)
	GetQuestion(ctx context.Context, gameID, questionID string) (*models.Question, error)
	GetQuestionWithTheme(ctx context.Context, gameID, questionID string) (*models.Question, *models.Theme, error)
}

// HandlerContext is everything a handler may read: the prefetched game, the
// resolved acting participant, the raw payload, and read-only collaborators.
// Handlers are pure decisions over this context; all side effects go out as
// declared mutations.
type HandlerContext struct {
	Ctx context.Context
	Cfg *config.Config
	Log *logrus.Entry

	Game          *models.Game
	CurrentPlayer *models.Player // nil for timer-originated actions
	Payload       json.RawMessage
	Timer         *models.Timer
	Session       *models.SocketSession
	SocketID      string

	Questions QuestionStore
}

// HandlerResult is the shared output contract of every handler.
type HandlerResult struct {
	Success   bool
	Mutations []mutation.Mutation
	Response  interface{}
	// BroadcastGame overrides the game used for snapshot broadcasts.
	BroadcastGame *models.Game
}

// Handler decides one action type. Implementations are stateless and hold
// only references to read-only collaborators.
type Handler interface {
	Handle(hc *HandlerContext) (*HandlerResult, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(hc *HandlerContext) (*HandlerResult, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(hc *HandlerContext) (*HandlerResult, error) {
	return f(hc)
}

// Registry is the closed table from action type to handler. Registration is
// explicit; Validate checks totality at startup.
type Registry struct {
	handlers map[models.ActionType]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.ActionType]Handler)}
}

// Register binds one or more action types to a handler. A single handler
// instance may serve multiple types when behavior is identical.
func (r *Registry) Register(h Handler, types ...models.ActionType) {
	for _, t := range types {
		if _, dup := r.handlers[t]; dup {
			panic(fmt.Sprintf("engine: duplicate handler for %s", t))
		}
		r.handlers[t] = h
	}
}

// Get returns the handler for an action type, nil when unrouted.
func (r *Registry) Get(t models.ActionType) Handler {
	return r.handlers[t]
}

// Validate ensures every defined action type has a registered handler.
func (r *Registry) Validate() error {
	for _, t := range models.AllActionTypes() {
		if _, ok := r.handlers[t]; !ok {
			return fmt.Errorf("engine: no handler registered for %s", t)
		}
	}
	return nil
}

// decode unmarshals the payload into dst, mapping failures to validation
// errors.
func decode(hc *HandlerContext, dst interface{}) error {
	if len(hc.Payload) == 0 {
		return NewClientError(CodeValidation, "missing payload")
	}
	if err := json.Unmarshal(hc.Payload, dst); err != nil {
		return NewClientError(CodeValidation, "malformed payload: %v", err)
	}
	return nil
}

// requireShowman ensures the acting participant is the moderator.
func requireShowman(hc *HandlerContext) (*models.Player, error) {
	if hc.CurrentPlayer == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	if hc.CurrentPlayer.Role != models.RoleShowman {
		return nil, NewClientError(CodeInvalidRole, "only the showman may do this")
	}
	return hc.CurrentPlayer, nil
}

// requirePlayer ensures the acting participant is a scoring player.
func requirePlayer(hc *HandlerContext) (*models.Player, error) {
	if hc.CurrentPlayer == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	if hc.CurrentPlayer.Role != models.RolePlayer {
		return nil, NewClientError(CodeInvalidRole, "only players may do this")
	}
	return hc.CurrentPlayer, nil
}

// requirePhase ensures the question state machine sits in one of the given
// phases.
func requirePhase(hc *HandlerContext, states ...models.QuestionState) error {
	for _, s := range states {
		if hc.Game.State.QuestionState == s {
			return nil
		}
	}
	return NewClientError(CodeInvalidPhase, "action not allowed in phase %s", hc.Game.State.QuestionState)
}

// requireUnpaused rejects gameplay actions while the game is paused.
func requireUnpaused(hc *HandlerContext) error {
	if hc.Game.Paused {
		return NewClientError(CodeGamePaused, "game is paused")
	}
	return nil
}
