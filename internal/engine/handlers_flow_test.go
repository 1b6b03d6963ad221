// internal/engine/handlers_flow_test.go
package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmahub/trivia-engine/internal/models"
)

func TestPickOrdinaryQuestion(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	res, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, models.StateShowing, g.State.QuestionState)
	assert.Equal(t, "q1", g.State.CurrentQuestionID)
	assert.True(t, g.State.QuestionPlayed("q1"))
	// All three connected players were frozen as eligible.
	assert.Len(t, g.State.EligiblePlayers, 3)
	assert.Equal(t, 1, mutationsByType(res.Mutations)["timerSet"])
}

func TestPickRejectsOutOfTurn(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[1], pickPayload{QuestionID: "q1"}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotYourTurn, ce.Code)
}

func TestPickShowmanMayOverride(t *testing.T) {
	e := newTestEnv()
	g, showman, _ := startedGame()

	res, err := e.flow.Pick(e.ctx(g, showman, pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPickRejectsPlayedQuestion(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	g.State.PlayedQuestions = []string{"q1"}

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ce.Code)
}

func TestLateJoinerCannotBuzz(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)

	late := &models.Player{ID: uuid.New(), Name: "dave", Role: models.RolePlayer, Status: models.StatusInGame}
	g.Players = append(g.Players, late)

	_, err = e.flow.AnswerRequest(e.ctx(g, late, nil))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ce.Code)
}

func TestAnswerFlowCorrect(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)

	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)
	assert.Equal(t, models.StateAnswering, g.State.QuestionState)
	assert.Equal(t, players[1].ID, g.State.AnsweringPlayerID)

	_, err = e.flow.AnswerSubmit(e.ctx(g, players[1], answerSubmitPayload{Text: "forty-two"}))
	require.NoError(t, err)
	assert.Equal(t, "forty-two", g.State.PendingAnswerText)

	res, err := e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictCorrect}))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, 400, players[1].Score)
	assert.Equal(t, models.StateShowingAnswer, g.State.QuestionState)
	// Winner picks next.
	assert.Equal(t, players[1].ID, g.State.CurrentTurnPlayerID)
	assert.Empty(t, g.State.PendingAnswerText)
}

func TestAnswerFlowWrongReturnsToShowing(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)

	_, err = e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictWrong}))
	require.NoError(t, err)

	assert.Equal(t, 200, players[1].Score)
	// Two eligible answerers remain, so the question reopens.
	assert.Equal(t, models.StateShowing, g.State.QuestionState)
	assert.True(t, g.State.HasAnswered(players[1].ID))
}

func TestWrongAnswererCannotBuzzAgain(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)
	_, err = e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictWrong}))
	require.NoError(t, err)

	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	_, ok := IsClientError(err)
	assert.True(t, ok)
}

func TestAllSkippedResolvesQuestion(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)

	for i, p := range players {
		res, err := e.flow.Skip(e.ctx(g, p, nil))
		require.NoError(t, err)
		if i < len(players)-1 {
			assert.Equal(t, models.StateShowing, g.State.QuestionState)
		} else {
			assert.Equal(t, models.StateShowingAnswer, g.State.QuestionState)
			assert.NotZero(t, mutationsByType(res.Mutations)["timerSet"])
		}
	}
}

func TestUnskipRestoresEligibility(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.Skip(e.ctx(g, players[0], nil))
	require.NoError(t, err)
	_, err = e.flow.Unskip(e.ctx(g, players[0], nil))
	require.NoError(t, err)

	assert.False(t, g.State.HasSkipped(players[0].ID))
	_, err = e.flow.AnswerRequest(e.ctx(g, players[0], nil))
	assert.NoError(t, err)
}

func TestRoundExhaustionAdvancesToFinal(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()
	// Everything but q1 already played.
	g.State.PlayedQuestions = []string{"q2", "q3"}

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)
	_, err = e.flow.AnswerResult(e.ctx(g, showman, verdictPayload{Verdict: models.VerdictCorrect}))
	require.NoError(t, err)

	res, err := e.flow.ShowAnswer(e.ctx(g, showman, nil))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, 1, g.State.CurrentRound)
	require.NotNil(t, g.State.Final)
	assert.Equal(t, models.FinalThemeElimination, g.State.Final.Phase)
	assert.Equal(t, models.StateThemeElimination, g.State.QuestionState)
}

func TestNextRoundPastEndFinishesGame(t *testing.T) {
	e := newTestEnv()
	g, showman, _ := startedGame()
	g.State.CurrentRound = 1

	res, err := e.flow.NextRound(e.ctx(g, showman, nil))
	require.NoError(t, err)

	assert.NotNil(t, g.FinishedAt)
	assert.Equal(t, 1, mutationsByType(res.Mutations)["completion"])
}

func TestPausedGameRejectsGameplay(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	g.Paused = true

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeGamePaused, ce.Code)
}
