// internal/models/models_test.go
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameHashRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	winner := uuid.New()
	s := 2
	g := &Game{
		ID:        uuid.New(),
		JoinCode:  "XK42PQ",
		PackageID: uuid.New(),
		Players: []*Player{
			{ID: uuid.New(), Name: "host", Role: RoleShowman, Status: StatusInGame, JoinedAt: now},
			{ID: uuid.New(), Name: "alice", Role: RolePlayer, Status: StatusInGame, Score: -150, Slot: &s, Ready: true, JoinedAt: now},
		},
		State: GameState{
			QuestionState:     StateBidding,
			CurrentRound:      1,
			CurrentQuestionID: "q7",
			Stake: &StakeQuestionData{
				PickerID:       uuid.New(),
				QuestionID:     "q7",
				Bids:           map[uuid.UUID]int{winner: 300},
				HighestBid:     300,
				WinnerPlayerID: &winner,
				MaxPrice:       5000,
			},
		},
		Paused:    true,
		CreatedAt: now,
		StartedAt: &now,
	}

	hash, err := g.ToHash()
	require.NoError(t, err)
	got, err := GameFromHash(hash)
	require.NoError(t, err)

	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, g.JoinCode, got.JoinCode)
	assert.True(t, got.Paused)
	assert.Equal(t, g.StartedAt.UnixMilli(), got.StartedAt.UnixMilli())
	assert.Nil(t, got.FinishedAt)
	require.Len(t, got.Players, 2)
	assert.Equal(t, -150, got.Players[1].Score)
	require.NotNil(t, got.State.Stake)
	assert.Equal(t, 300, got.State.Stake.Bids[winner])
	require.NotNil(t, got.State.Stake.WinnerPlayerID)
	assert.Equal(t, winner, *got.State.Stake.WinnerPlayerID)
}

func TestGameHashRoundTripSecretData(t *testing.T) {
	picker := uuid.New()
	g := &Game{
		ID:        uuid.New(),
		PackageID: uuid.New(),
		Players:   []*Player{{ID: picker, Role: RolePlayer, Status: StatusInGame}},
		State: GameState{
			QuestionState: StateSecretTransfer,
			Secret: &SecretQuestionData{
				PickerID:      picker,
				TransferType:  TransferToOther,
				QuestionID:    "q3",
				TransferPhase: true,
			},
		},
		CreatedAt: time.Now().UTC(),
	}

	hash, err := g.ToHash()
	require.NoError(t, err)
	got, err := GameFromHash(hash)
	require.NoError(t, err)

	require.NotNil(t, got.State.Secret)
	assert.Equal(t, *g.State.Secret, *got.State.Secret)
	assert.Nil(t, got.State.Stake)
	assert.Nil(t, got.State.Final)
}

func TestGameHashRoundTripFinalData(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	correct := true
	now := time.Now().UTC().Truncate(time.Millisecond)
	g := &Game{
		ID:        uuid.New(),
		PackageID: uuid.New(),
		Players: []*Player{
			{ID: p1, Role: RolePlayer, Status: StatusInGame, Score: 400},
			{ID: p2, Role: RolePlayer, Status: StatusDisconnected, Score: 200},
		},
		State: GameState{
			QuestionState: StateReviewing,
			CurrentRound:  2,
			Final: &FinalRoundData{
				Phase:            FinalReviewing,
				TurnOrder:        []uuid.UUID{p1, p2},
				CurrentTurnIndex: 1,
				Bids:             map[uuid.UUID]int{p1: 400, p2: 200},
				Answers: []FinalAnswer{
					{ID: uuid.New(), PlayerID: p1, Text: "kepler", SubmittedAt: now, IsCorrect: &correct},
					{ID: uuid.New(), PlayerID: p2, AutoLoss: true},
				},
				EliminatedThemes: []string{"ft1", "ft3"},
				ThemeID:          "ft2",
				QuestionID:       "fq2",
			},
		},
		CreatedAt: now,
	}

	hash, err := g.ToHash()
	require.NoError(t, err)
	got, err := GameFromHash(hash)
	require.NoError(t, err)

	f := got.State.Final
	require.NotNil(t, f)
	assert.Equal(t, g.State.Final.TurnOrder, f.TurnOrder)
	assert.Equal(t, 1, f.CurrentTurnIndex)
	assert.Equal(t, 400, f.Bids[p1])
	assert.Equal(t, g.State.Final.EliminatedThemes, f.EliminatedThemes)
	assert.Equal(t, "ft2", f.ThemeID)
	require.Len(t, f.Answers, 2)
	require.NotNil(t, f.Answers[0].IsCorrect)
	assert.True(t, *f.Answers[0].IsCorrect)
	assert.True(t, f.Answers[0].SubmittedAt.Equal(now))
	assert.True(t, f.Answers[1].AutoLoss)
	assert.Nil(t, f.Answers[1].IsCorrect)
}

func TestGameFromHashRejectsBadID(t *testing.T) {
	_, err := GameFromHash(map[string]string{"id": "not-a-uuid"})
	assert.Error(t, err)
}

func TestTimerFreezeAndResume(t *testing.T) {
	start := time.Now()
	timer := Timer{Kind: TimerAnswering, DurationMs: 20000, StartedAt: start.UnixMilli()}

	frozen := timer.Freeze(start.Add(8 * time.Second))
	assert.Equal(t, int64(8000), frozen.ElapsedMs)
	assert.Equal(t, 12*time.Second, frozen.Remaining())

	// Freezing past the deadline never yields negative remaining time.
	over := timer.Freeze(start.Add(time.Minute))
	assert.Equal(t, timer.DurationMs, over.ElapsedMs)
	assert.Equal(t, time.Duration(0), over.Remaining())
}

func TestTimerMarshalRoundTrip(t *testing.T) {
	timer := NewTimer(TimerBidding, 15*time.Second)
	raw, err := timer.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalTimer(raw)
	require.NoError(t, err)
	assert.Equal(t, timer, *got)

	empty, err := UnmarshalTimer("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestSnapshotRedactsFinalForPlayers(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	correct := true
	g := &Game{
		ID: uuid.New(),
		Players: []*Player{
			{ID: p1, Role: RolePlayer, Status: StatusInGame},
			{ID: p2, Role: RolePlayer, Status: StatusInGame},
		},
		State: GameState{
			QuestionState: StateAnswering,
			Final: &FinalRoundData{
				Phase: FinalAnswering,
				Bids:  map[uuid.UUID]int{p1: 100, p2: 200},
				Answers: []FinalAnswer{
					{ID: uuid.New(), PlayerID: p1, Text: "secret guess"},
					{ID: uuid.New(), PlayerID: p2, Text: "reviewed", IsCorrect: &correct},
				},
			},
		},
	}

	showman := g.Snapshot(RoleShowman)
	require.NotNil(t, showman.Final)
	assert.Equal(t, "secret guess", showman.Final.Answers[0].Text)
	assert.Len(t, showman.Final.Bids, 2)

	player := g.Snapshot(RolePlayer)
	require.NotNil(t, player.Final)
	assert.Nil(t, player.Final.Bids)
	for _, a := range player.Final.Answers {
		assert.Empty(t, a.Text)
	}

	// The source of truth is untouched.
	assert.Equal(t, "secret guess", g.State.Final.Answers[0].Text)
}

func TestSnapshotRevealsReviewedAnswers(t *testing.T) {
	p1 := uuid.New()
	correct := true
	g := &Game{
		ID:      uuid.New(),
		Players: []*Player{{ID: p1, Role: RolePlayer, Status: StatusInGame}},
		State: GameState{
			QuestionState: StateReviewing,
			Final: &FinalRoundData{
				Phase: FinalReviewing,
				Answers: []FinalAnswer{
					{ID: uuid.New(), PlayerID: p1, Text: "now public", IsCorrect: &correct},
				},
			},
		},
	}

	player := g.Snapshot(RolePlayer)
	require.NotNil(t, player.Final)
	assert.Equal(t, "now public", player.Final.Answers[0].Text)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := ActionEnvelope{
		Type:     ActionStakeBid,
		GameID:   uuid.New(),
		Payload:  []byte(`{"type":"ALL_IN"}`),
		SocketID: "sock-1",
	}
	raw, err := env.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env.Type, got.Type)
	assert.Equal(t, env.GameID, got.GameID)
	assert.JSONEq(t, string(env.Payload), string(got.Payload))
}

func TestSessionFromHash(t *testing.T) {
	sess := SocketSession{UserID: uuid.New(), GameID: uuid.New()}
	got := SessionFromHash(sess.ToHash())
	require.NotNil(t, got)
	assert.Equal(t, sess, *got)

	assert.Nil(t, SessionFromHash(nil))
	assert.Nil(t, SessionFromHash(map[string]string{"userId": "garbage"}))
}

func TestClearQuestionResetsSubPhases(t *testing.T) {
	st := GameState{
		CurrentQuestionID: "q1",
		AnsweringPlayerID: uuid.New(),
		PendingAnswerText: "half-typed",
		Secret:            &SecretQuestionData{},
		Stake:             &StakeQuestionData{},
		EligiblePlayers:   []uuid.UUID{uuid.New()},
	}
	st.ClearQuestion()
	assert.Empty(t, st.CurrentQuestionID)
	assert.Equal(t, uuid.Nil, st.AnsweringPlayerID)
	assert.Empty(t, st.PendingAnswerText)
	assert.Nil(t, st.Secret)
	assert.Nil(t, st.Stake)
	assert.Nil(t, st.EligiblePlayers)
}
