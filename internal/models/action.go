// internal/models/action.go
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ActionType names one typed request to mutate a single game.
type ActionType string

// Lobby and lifecycle actions.
const (
	ActionPlayerJoin       ActionType = "PLAYER_JOIN"
	ActionPlayerReady      ActionType = "PLAYER_READY"
	ActionStart            ActionType = "START"
	ActionPlayerLeave      ActionType = "PLAYER_LEAVE"
	ActionPlayerKick       ActionType = "PLAYER_KICK"
	ActionPlayerDisconnect ActionType = "PLAYER_DISCONNECT"
	ActionPlayerReconnect  ActionType = "PLAYER_RECONNECT"
	ActionRoleChange       ActionType = "ROLE_CHANGE"
	ActionScoreChange      ActionType = "SCORE_CHANGE"
	ActionSlotChange       ActionType = "SLOT_CHANGE"
	ActionPause            ActionType = "PAUSE"
	ActionUnpause          ActionType = "UNPAUSE"
	ActionFinishGame       ActionType = "FINISH_GAME"
)

// Ordinary question flow.
const (
	ActionPickQuestion   ActionType = "PICK_QUESTION"
	ActionAnswerRequest  ActionType = "ANSWER_REQUEST"
	ActionAnswerSubmit   ActionType = "ANSWER_SUBMIT"
	ActionAnswerResult   ActionType = "ANSWER_RESULT"
	ActionSkipQuestion   ActionType = "SKIP_QUESTION"
	ActionForceSkip      ActionType = "FORCE_SKIP"
	ActionUnskipQuestion ActionType = "UNSKIP_QUESTION"
	ActionShowAnswer     ActionType = "SHOW_ANSWER"
	ActionNextRound      ActionType = "NEXT_ROUND"
)

// Sub-protocols.
const (
	ActionStakeBid            ActionType = "STAKE_BID"
	ActionSecretTransfer      ActionType = "SECRET_TRANSFER"
	ActionFinalThemeEliminate ActionType = "FINAL_THEME_ELIMINATE"
	ActionFinalBid            ActionType = "FINAL_BID"
	ActionFinalAnswerSubmit   ActionType = "FINAL_ANSWER_SUBMIT"
	ActionFinalAnswerReview   ActionType = "FINAL_ANSWER_REVIEW"
)

// Timer expirations. Every variant shares one handler; the handler routes on
// the game's actual phase, which is authoritative under the lock.
const (
	ActionQuestionTimerExpired   ActionType = "QUESTION_TIMER_EXPIRED"
	ActionAnsweringTimerExpired  ActionType = "ANSWERING_TIMER_EXPIRED"
	ActionBiddingTimerExpired    ActionType = "BIDDING_TIMER_EXPIRED"
	ActionFinalPhaseTimerExpired ActionType = "FINAL_PHASE_TIMER_EXPIRED"
)

// AllActionTypes enumerates every action the engine accepts. The registry is
// checked against this list at startup so no action can arrive unrouted.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionPlayerJoin, ActionPlayerReady, ActionStart,
		ActionPlayerLeave, ActionPlayerKick, ActionPlayerDisconnect,
		ActionPlayerReconnect, ActionRoleChange, ActionScoreChange,
		ActionSlotChange, ActionPause, ActionUnpause, ActionFinishGame,
		ActionPickQuestion, ActionAnswerRequest, ActionAnswerSubmit,
		ActionAnswerResult, ActionSkipQuestion, ActionForceSkip,
		ActionUnskipQuestion, ActionShowAnswer, ActionNextRound,
		ActionStakeBid, ActionSecretTransfer,
		ActionFinalThemeEliminate, ActionFinalBid,
		ActionFinalAnswerSubmit, ActionFinalAnswerReview,
		ActionQuestionTimerExpired, ActionAnsweringTimerExpired,
		ActionBiddingTimerExpired, ActionFinalPhaseTimerExpired,
	}
}

// ActionEnvelope is the transport-agnostic shape of one action request.
type ActionEnvelope struct {
	Type     ActionType      `json:"type"`
	GameID   uuid.UUID       `json:"gameId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SocketID string          `json:"socketId,omitempty"`
}

// Marshal serializes the envelope for the queue.
func (e ActionEnvelope) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEnvelope parses a queued envelope.
func UnmarshalEnvelope(raw string) (ActionEnvelope, error) {
	var e ActionEnvelope
	err := json.Unmarshal([]byte(raw), &e)
	return e, err
}

// SocketSession associates a socket with a user and the game it joined.
type SocketSession struct {
	UserID uuid.UUID `json:"userId"`
	GameID uuid.UUID `json:"gameId"`
}

// ToHash flattens the session for the store.
func (s SocketSession) ToHash() map[string]string {
	return map[string]string{
		"userId": s.UserID.String(),
		"gameId": s.GameID.String(),
	}
}

// SessionFromHash rebuilds a session; nil when the hash is empty.
func SessionFromHash(h map[string]string) *SocketSession {
	if len(h) == 0 {
		return nil
	}
	userID, err := uuid.Parse(h["userId"])
	if err != nil {
		return nil
	}
	s := &SocketSession{UserID: userID}
	if gameID, err := uuid.Parse(h["gameId"]); err == nil {
		s.GameID = gameID
	}
	return s
}
