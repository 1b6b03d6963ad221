// internal/cache/expiry.go
package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// ExpiredTimerFunc receives the synthesized action for an expired countdown.
type ExpiredTimerFunc func(env models.ActionEnvelope)

// ExpiryListener subscribes to keyspace expiration notifications and funnels
// timer deadlines back into the engine as ordinary game actions, preserving
// the single-writer guarantee instead of mutating state out-of-band.
type ExpiryListener struct {
	rdb  *redis.Client
	pipe *Pipeline
	log  *logrus.Logger
	fn   ExpiredTimerFunc
}

// NewExpiryListener builds the listener. The Redis server must run with
// notify-keyspace-events including "Ex"; Run enables it best effort.
func NewExpiryListener(rdb *redis.Client, pipe *Pipeline, log *logrus.Logger, fn ExpiredTimerFunc) *ExpiryListener {
	return &ExpiryListener{rdb: rdb, pipe: pipe, log: log, fn: fn}
}

// Run blocks consuming expiration events until ctx is cancelled.
func (l *ExpiryListener) Run(ctx context.Context) error {
	if err := l.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		l.log.WithError(err).Warn("expiry: could not enable keyspace notifications; assuming preconfigured")
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", l.rdb.Options().DB)
	sub := l.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("expiry: subscription closed")
			}
			l.handleExpired(ctx, msg.Payload)
		}
	}
}

// handleExpired turns one expired timer key into a queued action. The action
// type is labelled from an advisory state read; the shared timer handler
// routes on the authoritative state under the lock, so a stale label is
// harmless.
func (l *ExpiryListener) handleExpired(ctx context.Context, key string) {
	gameIDStr := GameIDFromTimerKey(key)
	if gameIDStr == "" {
		return
	}
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		return
	}

	actionType := timerActionFor(l.pipe.AdvisoryState(ctx, gameIDStr))
	l.log.WithFields(logrus.Fields{
		"gameId":     gameID,
		"actionType": actionType,
	}).Debug("expiry: timer fired")

	l.fn(models.ActionEnvelope{
		Type:   actionType,
		GameID: gameID,
	})
}

func timerActionFor(state models.QuestionState) models.ActionType {
	switch state {
	case models.StateAnswering:
		return models.ActionAnsweringTimerExpired
	case models.StateBidding:
		return models.ActionBiddingTimerExpired
	case models.StateThemeElimination, models.StateReviewing:
		return models.ActionFinalPhaseTimerExpired
	default:
		return models.ActionQuestionTimerExpired
	}
}
