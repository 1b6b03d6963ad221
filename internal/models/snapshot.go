// internal/models/snapshot.go
package models

import (
	"github.com/google/uuid"
)

// PlayerSnapshot is one participant as seen by a client.
type PlayerSnapshot struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Role          Role         `json:"role"`
	Status        PlayerStatus `json:"status"`
	Score         int          `json:"score"`
	Slot          *int         `json:"slot,omitempty"`
	Ready         bool         `json:"ready"`
	IsCurrentTurn bool         `json:"isCurrentTurn"`
}

// GameSnapshot is the game state tailored to one observer role. The showman
// sees sub-phase internals (stake bids, final answers before review); players
// and spectators get the sanitized view.
type GameSnapshot struct {
	GameID              uuid.UUID        `json:"gameId"`
	JoinCode            string           `json:"joinCode"`
	QuestionState       QuestionState    `json:"questionState"`
	CurrentRound        int              `json:"currentRound"`
	CurrentQuestionID   string           `json:"currentQuestionId,omitempty"`
	CurrentTurnPlayerID uuid.UUID        `json:"currentTurnPlayerId,omitempty"`
	AnsweringPlayerID   uuid.UUID        `json:"answeringPlayerId,omitempty"`
	Paused              bool             `json:"paused"`
	Started             bool             `json:"started"`
	Finished            bool             `json:"finished"`
	Players             []PlayerSnapshot `json:"players"`
	PlayedQuestions     []string         `json:"playedQuestions"`

	Stake  *StakeQuestionData  `json:"stakeQuestionData,omitempty"`
	Secret *SecretQuestionData `json:"secretQuestionData,omitempty"`
	Final  *FinalRoundData     `json:"finalRoundData,omitempty"`
}

// Snapshot builds the observer view for the given role.
func (g *Game) Snapshot(forRole Role) GameSnapshot {
	snap := GameSnapshot{
		GameID:              g.ID,
		JoinCode:            g.JoinCode,
		QuestionState:       g.State.QuestionState,
		CurrentRound:        g.State.CurrentRound,
		CurrentQuestionID:   g.State.CurrentQuestionID,
		CurrentTurnPlayerID: g.State.CurrentTurnPlayerID,
		AnsweringPlayerID:   g.State.AnsweringPlayerID,
		Paused:              g.Paused,
		Started:             g.Started(),
		Finished:            g.FinishedAt != nil,
		PlayedQuestions:     g.State.PlayedQuestions,
		Secret:              g.State.Secret,
	}

	snap.Players = make([]PlayerSnapshot, len(g.Players))
	for i, p := range g.Players {
		snap.Players[i] = PlayerSnapshot{
			ID:            p.ID,
			Name:          p.Name,
			Role:          p.Role,
			Status:        p.Status,
			Score:         p.Score,
			Slot:          p.Slot,
			Ready:         p.Ready,
			IsCurrentTurn: p.ID == g.State.CurrentTurnPlayerID,
		}
	}

	if g.State.Stake != nil {
		snap.Stake = g.State.Stake
	}

	if g.State.Final != nil {
		if forRole == RoleShowman {
			snap.Final = g.State.Final
		} else {
			// Hide bids and answer texts until review reveals them.
			redacted := *g.State.Final
			redacted.Bids = nil
			redacted.Answers = redactAnswers(g.State.Final)
			snap.Final = &redacted
		}
	}

	return snap
}

// redactAnswers keeps only submission facts (who, when, reviewed verdicts)
// for non-showman observers.
func redactAnswers(f *FinalRoundData) []FinalAnswer {
	if f.Answers == nil {
		return nil
	}
	out := make([]FinalAnswer, len(f.Answers))
	for i, a := range f.Answers {
		out[i] = a
		if f.Phase != FinalReviewing || a.IsCorrect == nil {
			out[i].Text = ""
		}
	}
	return out
}
