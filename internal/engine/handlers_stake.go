// internal/engine/handlers_stake.go
package engine

import (
	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// StakeHandlers runs the ascending-bid auction for stake questions.
type StakeHandlers struct {
	router *Router
}

// NewStakeHandlers builds the stake handler set.
func NewStakeHandlers(router *Router) *StakeHandlers {
	return &StakeHandlers{router: router}
}

type stakeBidPayload struct {
	Type   models.StakeBidType `json:"type"`
	Amount int                 `json:"amount,omitempty"`
}

// Bid processes one auction move from the current bidder.
func (h *StakeHandlers) Bid(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateBidding); err != nil {
		return nil, err
	}
	g := hc.Game
	s := g.State.Stake
	if s == nil || !s.BiddingPhase {
		return nil, NewClientError(CodeInvalidPhase, "no stake auction in progress")
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	if s.CurrentBidder() != p.ID {
		return nil, NewClientError(CodeNotYourTurn, "it is not your turn to bid")
	}

	var pl stakeBidPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}

	var muts []mutation.Mutation
	switch pl.Type {
	case models.BidPass:
		muts, err = h.pass(hc, p)
	case models.BidAllIn:
		muts, err = h.allIn(hc, p)
	case models.BidNormal:
		muts, err = h.normal(hc, p, pl.Amount)
	default:
		return nil, NewClientError(CodeValidation, "unknown bid type %q", pl.Type)
	}
	if err != nil {
		return nil, err
	}

	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventStakeBid),
	)
	if s.WinnerPlayerID != nil {
		muts = append(muts, snapshotBroadcast(broadcast.EventStakeWinner))
	}
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// pass records a fold. The opener may not pass: someone must open the
// auction, so a broke opener gets the automatic all-in instead.
func (h *StakeHandlers) pass(hc *HandlerContext, p *models.Player) ([]mutation.Mutation, error) {
	s := hc.Game.State.Stake
	if len(s.Bids) == 0 {
		return nil, NewClientError(CodeValidation, "the opening bidder cannot pass")
	}
	s.PassedPlayers = append(s.PassedPlayers, p.ID)
	return h.router.AdvanceStake(hc.Game), nil
}

// allIn stakes the bidder's entire score.
func (h *StakeHandlers) allIn(hc *HandlerContext, p *models.Player) ([]mutation.Mutation, error) {
	s := hc.Game.State.Stake
	if s.AllInPlaced && p.Score < s.HighestBid {
		return nil, NewClientError(CodeValidation, "an all-in of %d cannot match the standing %d", p.Score, s.HighestBid)
	}
	if !s.AllInPlaced && p.Score <= s.HighestBid && len(s.Bids) > 0 {
		return nil, NewClientError(CodeValidation, "your entire score does not beat the highest bid")
	}
	s.Bids[p.ID] = p.Score
	if p.Score > s.HighestBid {
		s.HighestBid = p.Score
	}
	s.AllInPlaced = true
	return h.router.AdvanceStake(hc.Game), nil
}

// normal validates a numeric bid in the fixed order: floor at the question
// price, all-in lockout, own score, configured maximum, then the standing
// highest bid.
func (h *StakeHandlers) normal(hc *HandlerContext, p *models.Player, amount int) ([]mutation.Mutation, error) {
	g := hc.Game
	s := g.State.Stake

	q, err := hc.Questions.GetQuestion(hc.Ctx, g.ID.String(), s.QuestionID)
	if err != nil {
		return nil, NewServerError("load stake question %s: %v", s.QuestionID, err)
	}
	if q == nil {
		return nil, NewServerError("stake question %s missing from package", s.QuestionID)
	}

	if amount < q.Price {
		return nil, NewClientError(CodeValidation, "bid must be at least the question price %d", q.Price)
	}
	if s.AllInPlaced {
		return nil, NewClientError(CodeValidation, "after an all-in only PASS or ALL_IN are accepted")
	}
	if amount > p.Score {
		return nil, NewClientError(CodeValidation, "bid %d exceeds your score %d", amount, p.Score)
	}
	if amount > s.MaxPrice {
		return nil, NewClientError(CodeValidation, "bid %d exceeds the maximum price %d", amount, s.MaxPrice)
	}
	if amount <= s.HighestBid {
		return nil, NewClientError(CodeValidation, "bid %d does not beat the highest bid %d", amount, s.HighestBid)
	}

	s.Bids[p.ID] = amount
	s.HighestBid = amount
	if amount == p.Score {
		// Betting everything is an all-in regardless of how it was labelled.
		s.AllInPlaced = true
	}
	return h.router.AdvanceStake(g), nil
}
