// internal/engine/handlers_timer.go
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// TimerHandlers resolves countdown expirations. One instance serves every
// expiration variant: the action type on the envelope is advisory, derived
// from a lockless read before the lock was held, so the handler routes on the
// game's actual phase instead.
type TimerHandlers struct {
	router *Router
	flow   *FlowHandlers
}

// NewTimerHandlers builds the timer handler.
func NewTimerHandlers(router *Router, flow *FlowHandlers) *TimerHandlers {
	return &TimerHandlers{router: router, flow: flow}
}

// Expired advances whatever phase the game actually sits in. A stale
// expiration — phase moved on before the lock was acquired — is a no-op, not
// an error.
func (h *TimerHandlers) Expired(hc *HandlerContext) (*HandlerResult, error) {
	g := hc.Game
	if g.Paused || g.FinishedAt != nil {
		return &HandlerResult{Success: true}, nil
	}

	switch g.State.QuestionState {
	case models.StateShowing:
		// Nobody buzzed in time.
		muts := h.router.ToShowingAnswer(g)
		return h.save(g, muts, broadcast.EventTimerStopped), nil

	case models.StateAnswering:
		if g.State.Final != nil {
			muts := h.router.BeginFinalReview(g, time.Now())
			return h.save(g, muts, broadcast.EventGameUpdated), nil
		}
		return h.answeringExpired(hc)

	case models.StateShowingAnswer:
		return h.flow.FinishCurrentQuestion(hc)

	case models.StateBidding:
		if g.State.Final != nil {
			return h.finalBiddingExpired(g)
		}
		if g.State.Stake != nil && g.State.Stake.BiddingPhase {
			return h.stakeBiddingExpired(hc)
		}
		return &HandlerResult{Success: true}, nil

	case models.StateThemeElimination:
		return h.eliminationExpired(hc)

	default:
		// CHOOSING, SECRET_TRANSFER, REVIEWING run without a countdown; any
		// expiration reaching them is stale.
		return &HandlerResult{Success: true}, nil
	}
}

// answeringExpired treats a silent answerer as wrong at the question's value.
func (h *TimerHandlers) answeringExpired(hc *HandlerContext) (*HandlerResult, error) {
	g := hc.Game
	answering := g.State.AnsweringPlayerID
	if answering == uuid.Nil {
		return &HandlerResult{Success: true}, nil
	}
	price, err := h.flow.currentPrice(hc)
	if err != nil {
		return nil, err
	}
	g.State.PendingAnswerText = ""
	muts := h.router.ApplyVerdict(g, answering, models.VerdictWrong, price)
	if g.State.Secret != nil {
		g.State.Secret = nil
	}
	return h.save(g, muts, broadcast.EventAnswerResult), nil
}

// stakeBiddingExpired resolves a bidder who sat out their turn. The opener
// cannot pass, so their timeout becomes the cheapest legal bid; everyone else
// folds.
func (h *TimerHandlers) stakeBiddingExpired(hc *HandlerContext) (*HandlerResult, error) {
	g := hc.Game
	s := g.State.Stake
	bidder := s.CurrentBidder()
	if bidder == uuid.Nil {
		return h.save(g, h.router.AdvanceStake(g), broadcast.EventStakeBid), nil
	}

	var muts []mutation.Mutation
	if len(s.Bids) == 0 {
		q, err := hc.Questions.GetQuestion(hc.Ctx, g.ID.String(), s.QuestionID)
		if err != nil {
			return nil, NewServerError("load stake question %s: %v", s.QuestionID, err)
		}
		opener := g.PlayerByID(bidder)
		bid := 0
		if q != nil {
			bid = q.Price
		}
		if opener != nil && opener.Score < bid {
			bid = opener.Score
			s.AllInPlaced = true
		}
		s.Bids[bidder] = bid
		if bid > s.HighestBid {
			s.HighestBid = bid
		}
		muts = h.router.AdvanceStake(g)
	} else {
		s.PassedPlayers = append(s.PassedPlayers, bidder)
		muts = h.router.AdvanceStake(g)
	}

	res := h.save(g, muts, broadcast.EventStakeBid)
	if s.WinnerPlayerID != nil {
		res.Mutations = append(res.Mutations, snapshotBroadcast(broadcast.EventStakeWinner))
	}
	return res, nil
}

// finalBiddingExpired forces the minimum bid for every obligated player still
// missing one, then opens answering.
func (h *TimerHandlers) finalBiddingExpired(g *models.Game) (*HandlerResult, error) {
	f := g.State.Final
	for _, id := range f.TurnOrder {
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() {
			// Departed players place no bid and owe nothing.
			continue
		}
		if _, ok := f.Bids[id]; !ok {
			f.Bids[id] = h.router.ClampFinalBid(p.Score, 0)
		}
	}
	muts := h.router.BeginFinalAnswering(g)
	return h.save(g, muts, broadcast.EventFinalBid), nil
}

// eliminationExpired eliminates the first remaining theme on behalf of the
// stalled turn holder.
func (h *TimerHandlers) eliminationExpired(hc *HandlerContext) (*HandlerResult, error) {
	g := hc.Game
	f := g.State.Final
	if f == nil {
		return &HandlerResult{Success: true}, nil
	}
	round, err := hc.Questions.GetRound(hc.Ctx, g.ID.String(), g.State.CurrentRound)
	if err != nil {
		return nil, NewServerError("load final round: %v", err)
	}
	if round == nil {
		return nil, NewServerError("final round %d missing from package", g.State.CurrentRound)
	}
	remaining := h.router.RemainingThemes(round, f)
	if len(remaining) <= 1 {
		return &HandlerResult{Success: true}, nil
	}
	muts := h.router.EliminateTheme(g, round, remaining[0].ID)
	return h.save(g, muts, broadcast.EventThemeEliminated), nil
}

func (h *TimerHandlers) save(g *models.Game, muts []mutation.Mutation, ev broadcast.EventType) *HandlerResult {
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(ev),
	)
	return &HandlerResult{Success: true, Mutations: muts}
}
