// internal/cache/cache_test.go
package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigmahub/trivia-engine/internal/models"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "game:42", GameKey("42"))
	assert.Equal(t, "game:package:42", PackageKey("42"))
	assert.Equal(t, "game:action:lock:42", LockKey("42"))
	assert.Equal(t, "game:action:queue:42", QueueKey("42"))
	assert.Equal(t, "game:action:log:42", AuditKey("42"))
	assert.Equal(t, "timer:42", TimerKey("42"))
	assert.Equal(t, "socket:session:abc", SessionKey("abc"))
}

func TestGameIDFromTimerKey(t *testing.T) {
	assert.Equal(t, "42", GameIDFromTimerKey("timer:42"))
	assert.Empty(t, GameIDFromTimerKey("game:42"))
	assert.Empty(t, GameIDFromTimerKey("timer:"))
	assert.Empty(t, GameIDFromTimerKey("socket:session:timer:42"))
}

func TestTimerActionForState(t *testing.T) {
	cases := map[models.QuestionState]models.ActionType{
		models.StateShowing:          models.ActionQuestionTimerExpired,
		models.StateAnswering:        models.ActionAnsweringTimerExpired,
		models.StateBidding:          models.ActionBiddingTimerExpired,
		models.StateThemeElimination: models.ActionFinalPhaseTimerExpired,
		models.StateReviewing:        models.ActionFinalPhaseTimerExpired,
		"":                           models.ActionQuestionTimerExpired,
	}
	for state, want := range cases {
		assert.Equal(t, want, timerActionFor(state), "state %q", state)
	}
}

func TestSliceToMap(t *testing.T) {
	m := sliceToMap([]interface{}{"a", "1", "b", "2"})
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)
	assert.Nil(t, sliceToMap("not-a-slice"))
}
