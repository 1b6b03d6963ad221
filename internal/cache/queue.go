// internal/cache/queue.go
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// Queue is the per-game FIFO of actions that lost the lock race. It is
// drained by whichever execution currently holds the lock, never by polling.
type Queue struct {
	rdb *redis.Client
}

// NewQueue builds the action queue accessor.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue appends an action envelope behind any already-queued actions.
func (q *Queue) Enqueue(ctx context.Context, env models.ActionEnvelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return q.rdb.RPush(ctx, QueueKey(env.GameID.String()), raw).Err()
}

// Requeue puts a popped action back at the head of the queue, ahead of
// anything enqueued after it, so losing the lock mid-drain keeps FIFO order.
func (q *Queue) Requeue(ctx context.Context, env models.ActionEnvelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return q.rdb.LPush(ctx, QueueKey(env.GameID.String()), raw).Err()
}

// Dequeue pops the oldest queued action. Returns nil when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context, gameID string) (*models.ActionEnvelope, error) {
	raw, err := q.rdb.LPop(ctx, QueueKey(gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	env, err := models.UnmarshalEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Len returns the number of pending actions for a game.
func (q *Queue) Len(ctx context.Context, gameID string) (int64, error) {
	return q.rdb.LLen(ctx, QueueKey(gameID)).Result()
}
