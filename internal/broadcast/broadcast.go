// internal/broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// EventType names one out-of-band event fanned out to clients.
type EventType string

const (
	EventGameUpdated     EventType = "game_updated"
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerLeft      EventType = "player_left"
	EventGameStarted     EventType = "game_started"
	EventGameFinished    EventType = "game_finished"
	EventQuestionPicked  EventType = "question_picked"
	EventAnswerRequest   EventType = "answer_request"
	EventAnswerResult    EventType = "answer_result"
	EventQuestionSkip    EventType = "question_skip"
	EventRoundChanged    EventType = "round_changed"
	EventStakeBid        EventType = "stake_bid"
	EventStakeWinner     EventType = "stake_winner"
	EventSecretTransfer  EventType = "secret_transfer"
	EventThemeEliminated EventType = "theme_eliminated"
	EventFinalBid        EventType = "final_bid"
	EventFinalAnswer     EventType = "final_answer"
	EventFinalReview     EventType = "final_review"
	EventTimerStarted    EventType = "timer_started"
	EventTimerStopped    EventType = "timer_stopped"
	EventGamePaused      EventType = "game_paused"
	EventGameUnpaused    EventType = "game_unpaused"
	EventActionError     EventType = "action_error"
)

// Target selects who receives an event.
type Target string

const (
	TargetGame   Target = "GAME"   // every socket attached to the game
	TargetPlayer Target = "PLAYER" // every socket of one player
	TargetSocket Target = "SOCKET" // exactly one socket
)

// Event is one declared broadcast. Roles, when set, restricts a GAME target
// to sockets whose participant holds one of the listed roles.
type Event struct {
	Type     EventType     `json:"type"`
	Payload  interface{}   `json:"payload,omitempty"`
	Target   Target        `json:"-"`
	PlayerID uuid.UUID     `json:"-"`
	SocketID string        `json:"-"`
	Roles    []models.Role `json:"-"`
}

// Socket is one live client connection the service can push to.
type Socket interface {
	ID() string
	PlayerID() uuid.UUID
	Role() models.Role
	Send(ctx context.Context, data []byte) error
}

// SocketRegistry resolves the sockets currently attached to a game.
type SocketRegistry interface {
	SocketsForGame(gameID uuid.UUID) []Socket
	SocketByID(socketID string) Socket
}

// Emitter fans declared events out to the transport layer.
type Emitter interface {
	Emit(ctx context.Context, gameID uuid.UUID, ev Event)
}

// Service is the thin edge between declared broadcasts and live sockets.
// Delivery is best effort; a slow or dead socket never fails an action.
type Service struct {
	sockets SocketRegistry
	log     *logrus.Logger
}

// NewService builds the broadcast service.
func NewService(sockets SocketRegistry, log *logrus.Logger) *Service {
	return &Service{sockets: sockets, log: log}
}

// Emit delivers one event to its target set, applying the role filter.
func (s *Service) Emit(ctx context.Context, gameID uuid.UUID, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Error("broadcast: marshal event")
		return
	}

	switch ev.Target {
	case TargetSocket:
		if sock := s.sockets.SocketByID(ev.SocketID); sock != nil {
			s.send(ctx, sock, ev.Type, data)
		}
	case TargetPlayer:
		for _, sock := range s.sockets.SocketsForGame(gameID) {
			if sock.PlayerID() == ev.PlayerID {
				s.send(ctx, sock, ev.Type, data)
			}
		}
	default: // TargetGame
		for _, sock := range s.sockets.SocketsForGame(gameID) {
			if len(ev.Roles) > 0 && !roleAllowed(ev.Roles, sock.Role()) {
				continue
			}
			s.send(ctx, sock, ev.Type, data)
		}
	}
}

func (s *Service) send(ctx context.Context, sock Socket, t EventType, data []byte) {
	if err := sock.Send(ctx, data); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"socketId": sock.ID(),
			"event":    t,
		}).Warn("broadcast: send failed")
	}
}

func roleAllowed(roles []models.Role, r models.Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}
