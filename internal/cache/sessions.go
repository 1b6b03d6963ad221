// internal/cache/sessions.go
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// Sessions is the socket-id <-> {userId, gameId} directory. Reads happen in
// the IN pipeline; writes arrive as declared mutations.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessions builds the session directory. Sessions share the game TTL so a
// dead socket's record expires with its game.
func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{rdb: rdb, ttl: ttl}
}

// Set stores the session for a socket.
func (s *Sessions) Set(ctx context.Context, socketID string, sess models.SocketSession) error {
	key := SessionKey(socketID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, sess.ToHash())
	pipe.PExpire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete drops the session for a socket.
func (s *Sessions) Delete(ctx context.Context, socketID string) error {
	return s.rdb.Del(ctx, SessionKey(socketID)).Err()
}

// Get reads a session outside the lock; advisory use only (transport attach).
func (s *Sessions) Get(ctx context.Context, socketID string) (*models.SocketSession, error) {
	h, err := s.rdb.HGetAll(ctx, SessionKey(socketID)).Result()
	if err != nil {
		return nil, err
	}
	return models.SessionFromHash(h), nil
}
