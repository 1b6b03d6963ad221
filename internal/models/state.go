// internal/models/state.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionState is the phase of the per-question state machine.
// Ordinary loop: CHOOSING -> SHOWING -> ANSWERING -> SHOWING_ANSWER -> CHOOSING.
// Stake and secret questions branch into BIDDING / SECRET_TRANSFER for exactly
// one question; the final round runs THEME_ELIMINATION -> BIDDING -> ANSWERING
// -> REVIEWING.
type QuestionState string

const (
	StateChoosing         QuestionState = "CHOOSING"
	StateShowing          QuestionState = "SHOWING"
	StateAnswering        QuestionState = "ANSWERING"
	StateShowingAnswer    QuestionState = "SHOWING_ANSWER"
	StateSecretTransfer   QuestionState = "SECRET_TRANSFER"
	StateBidding          QuestionState = "BIDDING"
	StateThemeElimination QuestionState = "THEME_ELIMINATION"
	StateReviewing        QuestionState = "REVIEWING"
)

// AnswerVerdict records how an answer attempt resolved.
type AnswerVerdict string

const (
	VerdictCorrect AnswerVerdict = "CORRECT"
	VerdictWrong   AnswerVerdict = "WRONG"
	VerdictSkip    AnswerVerdict = "SKIP"
)

// AnsweredEntry records one resolved answer attempt for the current question.
type AnsweredEntry struct {
	PlayerID   uuid.UUID     `json:"playerId"`
	Verdict    AnswerVerdict `json:"verdict"`
	ScoreDelta int           `json:"scoreDelta"`
}

// StakeBidType classifies a stake-auction bid.
type StakeBidType string

const (
	BidNormal StakeBidType = "NORMAL"
	BidPass   StakeBidType = "PASS"
	BidAllIn  StakeBidType = "ALL_IN"
)

// StakeQuestionData is the bidding sub-state for a stake question.
// HighestBid is monotonically non-decreasing while BiddingPhase holds; once
// AllInPlaced is set, only PASS or an equal-or-greater all-in is legal.
type StakeQuestionData struct {
	PickerID           uuid.UUID         `json:"pickerId"`
	QuestionID         string            `json:"questionId"`
	BiddingOrder       []uuid.UUID       `json:"biddingOrder"`
	CurrentBidderIndex int               `json:"currentBidderIndex"`
	Bids               map[uuid.UUID]int `json:"bids"`
	HighestBid         int               `json:"highestBid"`
	WinnerPlayerID     *uuid.UUID        `json:"winnerPlayerId,omitempty"`
	PassedPlayers      []uuid.UUID       `json:"passedPlayers"`
	AllInPlaced        bool              `json:"allInPlaced"`
	MaxPrice           int               `json:"maxPrice"`
	BiddingPhase       bool              `json:"biddingPhase"`
}

// CurrentBidder returns the player whose turn it is to bid, or uuid.Nil once
// the order is exhausted.
func (s *StakeQuestionData) CurrentBidder() uuid.UUID {
	if s.CurrentBidderIndex < 0 || s.CurrentBidderIndex >= len(s.BiddingOrder) {
		return uuid.Nil
	}
	return s.BiddingOrder[s.CurrentBidderIndex]
}

// HasPassed reports whether the given player already passed this auction.
func (s *StakeQuestionData) HasPassed(playerID uuid.UUID) bool {
	for _, id := range s.PassedPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// SecretQuestionData is the transfer sub-state for a secret question.
// Created when the question is picked, cleared once the transferred player
// finishes answering or leaves.
type SecretQuestionData struct {
	PickerID      uuid.UUID `json:"pickerId"`
	TransferType  string    `json:"transferType"`
	QuestionID    string    `json:"questionId"`
	TransferPhase bool      `json:"transferPhase"`
}

// FinalRoundPhase sequences the closing round.
type FinalRoundPhase string

const (
	FinalThemeElimination FinalRoundPhase = "THEME_ELIMINATION"
	FinalBidding          FinalRoundPhase = "BIDDING"
	FinalAnswering        FinalRoundPhase = "ANSWERING"
	FinalReviewing        FinalRoundPhase = "REVIEWING"
)

// FinalAnswer is one blind answer submitted during the final round.
type FinalAnswer struct {
	ID          uuid.UUID `json:"id"`
	PlayerID    uuid.UUID `json:"playerId"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
	IsCorrect   *bool     `json:"isCorrect,omitempty"`
	// AutoLoss marks answers the engine fabricated for players who never
	// submitted before the deadline.
	AutoLoss bool `json:"autoLoss"`
}

// FinalRoundData is the sub-state for the final round. Players with a bid
// of zero or less are exempt from the all-answers-submitted check.
type FinalRoundData struct {
	Phase            FinalRoundPhase   `json:"phase"`
	TurnOrder        []uuid.UUID       `json:"turnOrder"`
	CurrentTurnIndex int               `json:"currentTurnIndex"`
	Bids             map[uuid.UUID]int `json:"bids"`
	Answers          []FinalAnswer     `json:"answers"`
	EliminatedThemes []string          `json:"eliminatedThemes"`
	ThemeID          string            `json:"themeId,omitempty"`
	QuestionID       string            `json:"questionId,omitempty"`
}

// CurrentTurnPlayer returns whose turn it is within the final turn order.
func (f *FinalRoundData) CurrentTurnPlayer() uuid.UUID {
	if len(f.TurnOrder) == 0 {
		return uuid.Nil
	}
	return f.TurnOrder[f.CurrentTurnIndex%len(f.TurnOrder)]
}

// AnswerFor returns the submitted answer for a player, or nil.
func (f *FinalRoundData) AnswerFor(playerID uuid.UUID) *FinalAnswer {
	for i := range f.Answers {
		if f.Answers[i].PlayerID == playerID {
			return &f.Answers[i]
		}
	}
	return nil
}

// GameState is the mutable heart of a game. Exactly one of Stake, Secret and
// Final is non-nil, and only while QuestionState sits in the corresponding
// sub-phase; all are nil during ordinary CHOOSING/SHOWING.
type GameState struct {
	QuestionState       QuestionState   `json:"questionState"`
	CurrentRound        int             `json:"currentRound"`
	CurrentQuestionID   string          `json:"currentQuestionId,omitempty"`
	CurrentTurnPlayerID uuid.UUID       `json:"currentTurnPlayerId,omitempty"`
	AnsweringPlayerID   uuid.UUID       `json:"answeringPlayerId,omitempty"`
	AnsweredPlayers     []AnsweredEntry `json:"answeredPlayers"`
	SkippedPlayers      []uuid.UUID     `json:"skippedPlayers"`
	// EligiblePlayers is frozen when a question starts so late joiners cannot
	// snipe a question they never saw revealed.
	EligiblePlayers []uuid.UUID `json:"eligiblePlayers,omitempty"`
	PlayedQuestions []string    `json:"playedQuestions"`
	// PendingAnswerText is the answering player's submitted text awaiting the
	// showman's verdict.
	PendingAnswerText string `json:"pendingAnswerText,omitempty"`

	Secret *SecretQuestionData `json:"secretQuestionData,omitempty"`
	Stake  *StakeQuestionData  `json:"stakeQuestionData,omitempty"`
	Final  *FinalRoundData     `json:"finalRoundData,omitempty"`

	// PausedTimer snapshots the in-flight countdown while the game is paused.
	PausedTimer *Timer `json:"pausedTimer,omitempty"`
}

// HasAnswered reports whether a player already has a verdict for the current
// question.
func (s *GameState) HasAnswered(playerID uuid.UUID) bool {
	for _, e := range s.AnsweredPlayers {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

// HasSkipped reports whether a player skipped the current question.
func (s *GameState) HasSkipped(playerID uuid.UUID) bool {
	for _, id := range s.SkippedPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// IsEligible reports whether a player was present when the current question
// started.
func (s *GameState) IsEligible(playerID uuid.UUID) bool {
	for _, id := range s.EligiblePlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// QuestionPlayed reports whether a question was already taken off the board.
func (s *GameState) QuestionPlayed(questionID string) bool {
	for _, id := range s.PlayedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// ClearQuestion resets per-question fields when play returns to the board.
func (s *GameState) ClearQuestion() {
	s.CurrentQuestionID = ""
	s.AnsweringPlayerID = uuid.Nil
	s.AnsweredPlayers = nil
	s.SkippedPlayers = nil
	s.EligiblePlayers = nil
	s.PendingAnswerText = ""
	s.Secret = nil
	s.Stake = nil
}
