// internal/engine/handlers_stake_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// pickStake drives the board into the q2 auction with alice as picker.
func pickStake(t *testing.T, e *testEnv, g *models.Game, picker *models.Player) {
	t.Helper()
	_, err := e.flow.Pick(e.ctx(g, picker, pickPayload{QuestionID: "q2"}))
	require.NoError(t, err)
	require.NotNil(t, g.State.Stake)
	require.Equal(t, models.StateBidding, g.State.QuestionState)
}

func TestStakeBiddingOrderStartsAtPicker(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	g.State.CurrentTurnPlayerID = players[1].ID

	pickStake(t, e, g, players[1])

	s := g.State.Stake
	assert.Equal(t, players[1].ID, s.BiddingOrder[0])
	assert.Equal(t, players[1].ID, s.CurrentBidder())
}

func TestStakeOpenerCannotPass(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidPass}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ce.Code)
}

func TestStakeBidValidationOrder(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	// Below the question price.
	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 150}))
	require.Error(t, err)

	// Above own score (alice has 500).
	_, err = e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 600}))
	require.Error(t, err)

	// Legal opening bid.
	_, err = e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	require.NoError(t, err)
	assert.Equal(t, 200, g.State.Stake.HighestBid)
	assert.Equal(t, players[1].ID, g.State.Stake.CurrentBidder())

	// Not exceeding the standing bid.
	_, err = e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	require.Error(t, err)
}

func TestStakeBidMonotonicity(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	bids := []struct {
		p      *models.Player
		amount int
	}{
		{players[0], 200},
		{players[1], 250},
		{players[0], 300},
	}
	prev := 0
	for _, b := range bids {
		_, err := e.stake.Bid(e.ctx(g, b.p, stakeBidPayload{Type: models.BidNormal, Amount: b.amount}))
		require.NoError(t, err)
		assert.Greater(t, g.State.Stake.HighestBid, prev)
		prev = g.State.Stake.HighestBid
	}
}

func TestStakeOutOfTurnBidRejected(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotYourTurn, ce.Code)
}

func TestStakeAllInLockout(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidAllIn}))
	require.NoError(t, err)
	s := g.State.Stake
	assert.True(t, s.AllInPlaced)
	assert.Equal(t, 500, s.HighestBid)

	// After an all-in a numeric bid is refused even when affordable.
	_, err = e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidNormal, Amount: 300}))
	require.Error(t, err)

	// PASS is still allowed.
	_, err = e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidPass}))
	require.NoError(t, err)
}

func TestStakeBettingEntireScoreCountsAsAllIn(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 500}))
	require.NoError(t, err)
	assert.True(t, g.State.Stake.AllInPlaced)
}

func TestStakeResolvesToHighestBidder(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	require.NoError(t, err)
	_, err = e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidNormal, Amount: 250}))
	require.NoError(t, err)
	_, err = e.stake.Bid(e.ctx(g, players[2], stakeBidPayload{Type: models.BidPass}))
	require.NoError(t, err)
	res, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidPass}))
	require.NoError(t, err)

	s := g.State.Stake
	require.NotNil(t, s.WinnerPlayerID)
	assert.Equal(t, players[1].ID, *s.WinnerPlayerID)
	assert.False(t, s.BiddingPhase)
	assert.Equal(t, models.StateAnswering, g.State.QuestionState)
	assert.Equal(t, players[1].ID, g.State.AnsweringPlayerID)
	assert.Equal(t, []string{"q2"}, []string(g.State.PlayedQuestions))
	assert.NotZero(t, mutationsByType(res.Mutations)["broadcast"])
}

func TestStakeWinnerScoredAtBidNotPrice(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 400}))
	require.NoError(t, err)
	_, err = e.stake.Bid(e.ctx(g, players[1], stakeBidPayload{Type: models.BidPass}))
	require.NoError(t, err)
	_, err = e.stake.Bid(e.ctx(g, players[2], stakeBidPayload{Type: models.BidPass}))
	require.NoError(t, err)

	_, err = e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictCorrect}))
	require.NoError(t, err)
	assert.Equal(t, 900, players[0].Score)
}

func TestStakeForcedOpeningAllIn(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	// Carol (score 100) cannot afford the 200 question price.
	g.State.CurrentTurnPlayerID = players[2].ID

	pickStake(t, e, g, players[2])

	s := g.State.Stake
	assert.Equal(t, 100, s.Bids[players[2].ID])
	assert.True(t, s.AllInPlaced)
	// The auction moved past the forced opener.
	assert.NotEqual(t, players[2].ID, s.CurrentBidder())
}

func TestStakeDepartingBidderAutoPasses(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickStake(t, e, g, players[0])

	_, err := e.stake.Bid(e.ctx(g, players[0], stakeBidPayload{Type: models.BidNormal, Amount: 200}))
	require.NoError(t, err)

	// Bob (current bidder) and carol drop; alice's bid should win outright.
	players[1].Status = models.StatusDisconnected
	e.router.ResolveDeparture(g, players[1].ID)
	players[2].Status = models.StatusDisconnected
	e.router.ResolveDeparture(g, players[2].ID)

	s := g.State.Stake
	require.NotNil(t, s.WinnerPlayerID)
	assert.Equal(t, players[0].ID, *s.WinnerPlayerID)
}
