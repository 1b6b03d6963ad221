// internal/engine/handlers_secret_test.go
package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmahub/trivia-engine/internal/models"
)

func pickSecret(t *testing.T, e *testEnv, g *models.Game, picker *models.Player) {
	t.Helper()
	_, err := e.flow.Pick(e.ctx(g, picker, pickPayload{QuestionID: "q3"}))
	require.NoError(t, err)
	require.NotNil(t, g.State.Secret)
	require.Equal(t, models.StateSecretTransfer, g.State.QuestionState)
}

func TestSecretTransferToOtherPlayer(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickSecret(t, e, g, players[0])

	res, err := e.secret.Transfer(e.ctx(g, players[0], secretTransferPayload{TargetPlayerID: players[2].ID}))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.False(t, g.State.Secret.TransferPhase)
	assert.Equal(t, models.StateAnswering, g.State.QuestionState)
	assert.Equal(t, players[2].ID, g.State.AnsweringPlayerID)
	assert.Equal(t, []uuid.UUID{players[2].ID}, g.State.EligiblePlayers)
}

func TestSecretTransferOnlyPickerMayNominate(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickSecret(t, e, g, players[0])

	_, err := e.secret.Transfer(e.ctx(g, players[1], secretTransferPayload{TargetPlayerID: players[1].ID}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotYourTurn, ce.Code)
}

func TestSecretTransferRejectsInactiveTarget(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickSecret(t, e, g, players[0])

	players[2].Status = models.StatusDisconnected
	_, err := e.secret.Transfer(e.ctx(g, players[0], secretTransferPayload{TargetPlayerID: players[2].ID}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodePlayerNotFound, ce.Code)
}

func TestSecretConsumedAfterVerdict(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()
	pickSecret(t, e, g, players[0])

	_, err := e.secret.Transfer(e.ctx(g, players[0], secretTransferPayload{TargetPlayerID: players[1].ID}))
	require.NoError(t, err)
	_, err = e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictWrong}))
	require.NoError(t, err)

	assert.Nil(t, g.State.Secret)
	assert.Equal(t, 0, players[1].Score)
	// Sole eligible answerer missed: straight to the answer reveal.
	assert.Equal(t, models.StateShowingAnswer, g.State.QuestionState)
}

func TestSecretPickerDepartureResolvesForZero(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	pickSecret(t, e, g, players[0])

	players[0].Status = models.StatusDisconnected
	e.router.ResolveDeparture(g, players[0].ID)

	assert.Nil(t, g.State.Secret)
	assert.Equal(t, models.StateShowingAnswer, g.State.QuestionState)
	for _, p := range players {
		assert.GreaterOrEqual(t, p.Score, 0)
	}
}
