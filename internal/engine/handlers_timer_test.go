// internal/engine/handlers_timer_test.go
package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmahub/trivia-engine/internal/models"
)

func TestTimerNoBuzzRevealsAnswer(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, models.StateShowingAnswer, g.State.QuestionState)
}

func TestTimerSilentAnswererScoredWrong(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)

	assert.Equal(t, 200, players[1].Score)
	assert.True(t, g.State.HasAnswered(players[1].ID))
	assert.Equal(t, models.StateShowing, g.State.QuestionState)
}

func TestTimerShowAnswerReturnsToBoard(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	e.router.ToShowingAnswer(g)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, models.StateChoosing, g.State.QuestionState)
	assert.Empty(t, g.State.CurrentQuestionID)
}

func TestTimerStakeOpenerForcedBid(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)

	s := g.State.Stake
	assert.Equal(t, 200, s.Bids[players[0].ID])
	assert.Equal(t, players[1].ID, s.CurrentBidder())
}

func TestTimerStakeLaterBidderAutoPasses(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	require.NoError(t, err)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.True(t, g.State.Stake.HasPassed(players[1].ID))
}

func TestTimerFinalBiddingForcesMinimumBids(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	enterFinal(t, e, g)
	g.State.Final.Phase = models.FinalBidding
	g.State.QuestionState = models.StateBidding

	_, err := e.final.Bid(e.ctx(g, players[0], finalBidPayload{Amount: 400}))
	require.NoError(t, err)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)

	f := g.State.Final
	assert.Equal(t, models.FinalAnswering, f.Phase)
	assert.Equal(t, 400, f.Bids[players[0].ID])
	assert.Equal(t, e.cfg.MinFinalBid, f.Bids[players[1].ID])
	assert.Equal(t, e.cfg.MinFinalBid, f.Bids[players[2].ID])
}

func TestTimerFinalBiddingLeavesDepartedUnbid(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	enterFinal(t, e, g)
	g.State.Final.Phase = models.FinalBidding
	g.State.QuestionState = models.StateBidding
	players[2].Status = models.StatusDisconnected

	_, err := e.final.Bid(e.ctx(g, players[0], finalBidPayload{Amount: 400}))
	require.NoError(t, err)

	_, err = e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)

	f := g.State.Final
	assert.Equal(t, models.FinalAnswering, f.Phase)
	assert.Equal(t, e.cfg.MinFinalBid, f.Bids[players[1].ID])
	// The departed player owes nothing and is never forced into a bid.
	_, bid := f.Bids[players[2].ID]
	assert.False(t, bid)
}

func TestTimerThemeEliminationAutoEliminates(t *testing.T) {
	e := newTestEnv()
	g, _, _ := startedGame()
	enterFinal(t, e, g)
	require.Equal(t, models.StateThemeElimination, g.State.QuestionState)

	_, err := e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)

	f := g.State.Final
	assert.Len(t, f.EliminatedThemes, 1)
	// Two themes existed; one elimination opens bidding on the survivor.
	assert.Equal(t, models.FinalBidding, f.Phase)
}

func TestTimerStaleExpirationIsNoOp(t *testing.T) {
	e := newTestEnv()
	g, _, _ := startedGame()

	res, err := e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Mutations)
}

func TestTimerIgnoredWhilePaused(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	g.Paused = true

	res, err := e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.Empty(t, res.Mutations)
	assert.Equal(t, models.StateShowing, g.State.QuestionState)
}

func TestTimerAnsweringWithNoAnswererIsNoOp(t *testing.T) {
	e := newTestEnv()
	g, _, _ := startedGame()
	g.State.QuestionState = models.StateAnswering
	g.State.AnsweringPlayerID = uuid.Nil

	res, err := e.timer.Expired(e.ctx(g, nil, nil))
	require.NoError(t, err)
	assert.True(t, res.Success)
}
