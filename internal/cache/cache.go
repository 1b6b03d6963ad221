// internal/cache/cache.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigmahub/trivia-engine/internal/config"
)

// Key layout. Every mutable per-game resource lives under one of these
// prefixes; all writes to them happen inside a locked execution.
const (
	gameKeyPrefix    = "game:"
	packageKeyPrefix = "game:package:"
	lockKeyPrefix    = "game:action:lock:"
	queueKeyPrefix   = "game:action:queue:"
	auditKeyPrefix   = "game:action:log:"
	timerKeyPrefix   = "timer:"
	sessionKeyPrefix = "socket:session:"
)

// GameKey returns the hash key of a game record.
func GameKey(gameID string) string { return gameKeyPrefix + gameID }

// PackageKey returns the hash key of a game's immutable question data.
func PackageKey(gameID string) string { return packageKeyPrefix + gameID }

// LockKey returns the per-game lock key.
func LockKey(gameID string) string { return lockKeyPrefix + gameID }

// QueueKey returns the per-game pending action list key.
func QueueKey(gameID string) string { return queueKeyPrefix + gameID }

// AuditKey returns the per-game applied-action log key.
func AuditKey(gameID string) string { return auditKeyPrefix + gameID }

// TimerKey returns the key holding a game's single outstanding countdown.
func TimerKey(gameID string) string { return timerKeyPrefix + gameID }

// SessionKey returns the hash key of a socket session.
func SessionKey(socketID string) string { return sessionKeyPrefix + socketID }

// GameIDFromTimerKey extracts the game id from an expired timer key, or ""
// when the key is not a timer key.
func GameIDFromTimerKey(key string) string {
	if len(key) <= len(timerKeyPrefix) || key[:len(timerKeyPrefix)] != timerKeyPrefix {
		return ""
	}
	return key[len(timerKeyPrefix):]
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
