// internal/engine/handlers_final.go
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// FinalHandlers runs the closing round: theme elimination, blind bidding,
// simultaneous answering and the showman's review.
type FinalHandlers struct {
	router *Router
}

// NewFinalHandlers builds the final-round handler set.
func NewFinalHandlers(router *Router) *FinalHandlers {
	return &FinalHandlers{router: router}
}

// finalData validates that the game sits in the final round.
func finalData(hc *HandlerContext) (*models.FinalRoundData, error) {
	f := hc.Game.State.Final
	if f == nil {
		return nil, NewClientError(CodeInvalidPhase, "not in the final round")
	}
	return f, nil
}

type themeEliminatePayload struct {
	ThemeID string `json:"themeId"`
}

// ThemeEliminate removes one theme from the final board. Turns rotate through
// the eligible players; the showman may eliminate on a stalled turn.
func (h *FinalHandlers) ThemeEliminate(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateThemeElimination); err != nil {
		return nil, err
	}
	f, err := finalData(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	actor := hc.CurrentPlayer
	if actor == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	if actor.Role != models.RoleShowman && actor.ID != f.CurrentTurnPlayer() {
		return nil, NewClientError(CodeNotYourTurn, "it is not your turn to eliminate")
	}

	var pl themeEliminatePayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}

	round, err := hc.Questions.GetRound(hc.Ctx, g.ID.String(), g.State.CurrentRound)
	if err != nil {
		return nil, NewServerError("load final round: %v", err)
	}
	if round == nil {
		return nil, NewServerError("final round %d missing from package", g.State.CurrentRound)
	}

	remaining := h.router.RemainingThemes(round, f)
	valid := false
	for _, th := range remaining {
		if th.ID == pl.ThemeID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, NewClientError(CodeValidation, "theme %s is not available for elimination", pl.ThemeID)
	}
	if len(remaining) <= 1 {
		return nil, NewClientError(CodeValidation, "the last theme cannot be eliminated")
	}

	muts := h.router.EliminateTheme(g, round, pl.ThemeID)
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventThemeEliminated),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type finalBidPayload struct {
	Amount int `json:"amount"`
}

// Bid records one blind final bid. Out-of-range amounts are clamped, not
// rejected: the timer is about to force a bid anyway, so the engine takes the
// closest legal value. Answering opens once every obligated player has bid.
func (h *FinalHandlers) Bid(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateBidding); err != nil {
		return nil, err
	}
	f, err := finalData(hc)
	if err != nil {
		return nil, err
	}
	if f.Phase != models.FinalBidding {
		return nil, NewClientError(CodeInvalidPhase, "final bidding is not open")
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if !inTurnOrder(f, p.ID) {
		return nil, NewClientError(CodeValidation, "you are not part of the final round")
	}
	if _, dup := f.Bids[p.ID]; dup {
		return nil, NewClientError(CodeValidation, "you already placed your bid")
	}

	var pl finalBidPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	f.Bids[p.ID] = h.router.ClampFinalBid(p.Score, pl.Amount)

	var muts []mutation.Mutation
	if h.router.FinalBiddersComplete(g) {
		muts = h.router.BeginFinalAnswering(g)
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		// Bid amounts stay hidden from other players; the snapshot redaction
		// handles that, so the event itself carries no figures.
		snapshotBroadcast(broadcast.EventFinalBid),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type finalAnswerPayload struct {
	Text string `json:"text"`
}

// AnswerSubmit records one blind final answer. Review opens once every
// obligated player has submitted.
func (h *FinalHandlers) AnswerSubmit(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateAnswering); err != nil {
		return nil, err
	}
	f, err := finalData(hc)
	if err != nil {
		return nil, err
	}
	if f.Phase != models.FinalAnswering {
		return nil, NewClientError(CodeInvalidPhase, "final answering is not open")
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if !inTurnOrder(f, p.ID) || f.Bids[p.ID] <= 0 {
		return nil, NewClientError(CodeValidation, "you are not answering in the final round")
	}
	if f.AnswerFor(p.ID) != nil {
		return nil, NewClientError(CodeValidation, "you already submitted your answer")
	}

	var pl finalAnswerPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	f.Answers = append(f.Answers, models.FinalAnswer{
		ID:          uuid.New(),
		PlayerID:    p.ID,
		Text:        pl.Text,
		SubmittedAt: time.Now(),
	})

	var muts []mutation.Mutation
	if h.router.FinalAnswersComplete(g) {
		muts = h.router.BeginFinalReview(g, time.Now())
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventFinalAnswer),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type finalReviewPayload struct {
	AnswerID uuid.UUID `json:"answerId"`
	Correct  bool      `json:"correct"`
}

// AnswerReview is the showman's verdict on one final answer. The bid moves
// the score up or down; the game ends once every answer has a verdict.
func (h *FinalHandlers) AnswerReview(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateReviewing); err != nil {
		return nil, err
	}
	f, err := finalData(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game

	var pl finalReviewPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}

	var ans *models.FinalAnswer
	for i := range f.Answers {
		if f.Answers[i].ID == pl.AnswerID {
			ans = &f.Answers[i]
			break
		}
	}
	if ans == nil {
		return nil, NewClientError(CodeValidation, "answer %s not found", pl.AnswerID)
	}
	if ans.IsCorrect != nil {
		return nil, NewClientError(CodeValidation, "answer already reviewed")
	}

	verdict := pl.Correct
	ans.IsCorrect = &verdict
	if p := g.PlayerByID(ans.PlayerID); p != nil {
		delta := f.Bids[ans.PlayerID]
		if !verdict {
			delta = -delta
		}
		h.router.ApplyReviewDelta(g, p, delta)
	}

	if h.router.FinalReviewComplete(g) {
		res := finishGame(g)
		res.Mutations = append(res.Mutations, snapshotBroadcast(broadcast.EventFinalReview))
		return res, nil
	}
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			snapshotBroadcast(broadcast.EventFinalReview),
		},
	}, nil
}

func inTurnOrder(f *models.FinalRoundData, playerID uuid.UUID) bool {
	for _, id := range f.TurnOrder {
		if id == playerID {
			return true
		}
	}
	return false
}
