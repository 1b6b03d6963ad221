// internal/engine/handlers_lobby_test.go
package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

func lobbyGame() *models.Game {
	return &models.Game{
		ID:        uuid.New(),
		JoinCode:  "ABC123",
		PackageID: uuid.New(),
		State:     models.GameState{QuestionState: models.StateChoosing},
		CreatedAt: time.Now().UTC(),
	}
}

func joinCtx(e *testEnv, g *models.Game, userID uuid.UUID, payload interface{}) *HandlerContext {
	hc := e.ctx(g, nil, payload)
	hc.Session = &models.SocketSession{UserID: userID, GameID: g.ID}
	hc.SocketID = "sock-" + userID.String()[:8]
	return hc
}

func TestJoinAssignsSlotAndSession(t *testing.T) {
	e := newTestEnv()
	g := lobbyGame()
	userID := uuid.New()

	res, err := e.lobby.Join(joinCtx(e, g, userID, joinPayload{Name: "alice", Role: models.RolePlayer}))
	require.NoError(t, err)
	require.True(t, res.Success)

	p := g.PlayerByID(userID)
	require.NotNil(t, p)
	require.NotNil(t, p.Slot)
	assert.Equal(t, 0, *p.Slot)

	byType := mutationsByType(res.Mutations)
	assert.Equal(t, 1, byType["save"])
	assert.Equal(t, 1, byType["session"])
	assert.Equal(t, 1, byType["stats"])
}

func TestJoinSecondShowmanRejected(t *testing.T) {
	e := newTestEnv()
	g := lobbyGame()

	_, err := e.lobby.Join(joinCtx(e, g, uuid.New(), joinPayload{Name: "host", Role: models.RoleShowman}))
	require.NoError(t, err)
	_, err = e.lobby.Join(joinCtx(e, g, uuid.New(), joinPayload{Name: "host2", Role: models.RoleShowman}))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ce.Code)
}

func TestJoinExistingPlayerReconnects(t *testing.T) {
	e := newTestEnv()
	g := lobbyGame()
	userID := uuid.New()

	_, err := e.lobby.Join(joinCtx(e, g, userID, joinPayload{Name: "alice", Role: models.RolePlayer}))
	require.NoError(t, err)
	g.PlayerByID(userID).Status = models.StatusDisconnected

	_, err = e.lobby.Join(joinCtx(e, g, userID, joinPayload{Name: "alice", Role: models.RolePlayer}))
	require.NoError(t, err)
	assert.Equal(t, models.StatusInGame, g.PlayerByID(userID).Status)
	assert.Len(t, g.Players, 1)
}

func TestStartRequiresEveryPlayerReady(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()
	g.StartedAt = nil
	players[1].Ready = false

	_, err := e.lobby.Start(e.ctx(g, showman, nil))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, ce.Code)

	players[1].Ready = true
	res, err := e.lobby.Start(e.ctx(g, showman, nil))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, g.Started())
	assert.Equal(t, models.StateChoosing, g.State.QuestionState)
}

func TestStartShowmanOnly(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()
	g.StartedAt = nil

	_, err := e.lobby.Start(e.ctx(g, players[0], nil))
	ce, ok := IsClientError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidRole, ce.Code)
}

func TestKickResolvesAnsweringPlayer(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()

	_, err := e.flow.Pick(e.ctx(g, players[0], pickPayload{QuestionID: "q1"}))
	require.NoError(t, err)
	_, err = e.flow.AnswerRequest(e.ctx(g, players[1], nil))
	require.NoError(t, err)

	res, err := e.lobby.Kick(e.ctx(g, showman, targetPayload{PlayerID: players[1].ID}))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, models.StatusDisconnected, players[1].Status)
	// The departed answerer resolved as a zero-score skip.
	assert.Equal(t, 300, players[1].Score)
	assert.True(t, g.State.HasAnswered(players[1].ID))
	assert.Equal(t, models.StateShowing, g.State.QuestionState)
}

func TestKickShowmanForbidden(t *testing.T) {
	e := newTestEnv()
	g, showman, _ := startedGame()

	_, err := e.lobby.Kick(e.ctx(g, showman, targetPayload{PlayerID: showman.ID}))
	require.Error(t, err)
}

func TestDepartingTurnHolderReassignsTurn(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	res, err := e.lobby.Leave(e.ctx(g, players[0], nil))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotEqual(t, players[0].ID, g.State.CurrentTurnPlayerID)
}

func TestScoreChangeClampedToCap(t *testing.T) {
	e := newTestEnv()
	g, showman, players := startedGame()

	_, err := e.lobby.ScoreChange(e.ctx(g, showman, scoreChangePayload{
		PlayerID: players[0].ID,
		Score:    e.cfg.ScoreCap * 2,
	}))
	require.NoError(t, err)
	assert.Equal(t, e.cfg.ScoreCap, players[0].Score)
}

func TestSlotChangeRejectsTakenSlot(t *testing.T) {
	e := newTestEnv()
	g, _, players := startedGame()

	_, err := e.lobby.SlotChange(e.ctx(g, players[0], slotChangePayload{Slot: 1}))
	require.Error(t, err)

	_, err = e.lobby.SlotChange(e.ctx(g, players[0], slotChangePayload{Slot: 5}))
	require.NoError(t, err)
	assert.Equal(t, 5, *players[0].Slot)
}

func TestPauseFreezesAndUnpauseResumesTimer(t *testing.T) {
	e := newTestEnv()
	g, showman, _ := startedGame()

	hc := e.ctx(g, showman, nil)
	hc.Timer = &models.Timer{
		Kind:       models.TimerQuestion,
		DurationMs: 30000,
		StartedAt:  time.Now().Add(-10 * time.Second).UnixMilli(),
	}
	res, err := e.lobby.Pause(hc)
	require.NoError(t, err)
	assert.True(t, g.Paused)
	require.NotNil(t, g.State.PausedTimer)
	// Roughly 10s elapsed was captured.
	assert.InDelta(t, 10000, g.State.PausedTimer.ElapsedMs, 1000)
	assert.Equal(t, 1, mutationsByType(res.Mutations)["timerDelete"])

	res, err = e.lobby.Unpause(e.ctx(g, showman, nil))
	require.NoError(t, err)
	assert.False(t, g.Paused)
	assert.Nil(t, g.State.PausedTimer)

	var resumed *models.Timer
	for _, m := range res.Mutations {
		if ts, ok := m.(mutation.TimerSet); ok {
			t2 := ts.Timer
			resumed = &t2
		}
	}
	require.NotNil(t, resumed, "unpause should restart the countdown")
	assert.Equal(t, models.TimerQuestion, resumed.Kind)
	assert.InDelta(t, 20000, resumed.Remaining().Milliseconds(), 1500)
}

func TestFinishDeclaresCompletion(t *testing.T) {
	e := newTestEnv()
	g, showman, _ := startedGame()

	res, err := e.lobby.Finish(e.ctx(g, showman, nil))
	require.NoError(t, err)
	assert.NotNil(t, g.FinishedAt)
	byType := mutationsByType(res.Mutations)
	assert.Equal(t, 1, byType["completion"])
	assert.Equal(t, 1, byType["timerDelete"])
}
