// internal/cache/audit.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// ActionRecord is one applied action in the per-game audit trail.
type ActionRecord struct {
	GameID    uuid.UUID         `json:"gameId"`
	Type      models.ActionType `json:"type"`
	PlayerID  uuid.UUID         `json:"playerId,omitempty"`
	Success   bool              `json:"success"`
	Timestamp int64             `json:"timestamp"`
}

// Audit appends applied actions to a capped Redis list, best effort.
type Audit struct {
	rdb   *redis.Client
	limit int64
	log   *logrus.Logger
}

// NewAudit builds the audit trail writer.
func NewAudit(rdb *redis.Client, limit int64, log *logrus.Logger) *Audit {
	return &Audit{rdb: rdb, limit: limit, log: log}
}

// Record pushes one entry and trims the list to the configured cap. Failures
// are logged and swallowed; the audit trail never blocks an action.
func (a *Audit) Record(gameID uuid.UUID, actionType models.ActionType, playerID uuid.UUID, success bool) {
	rec := ActionRecord{
		GameID:    gameID,
		Type:      actionType,
		PlayerID:  playerID,
		Success:   success,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		key := AuditKey(gameID.String())
		pipe := a.rdb.Pipeline()
		pipe.RPush(ctx, key, raw)
		pipe.LTrim(ctx, key, -a.limit, -1)
		if _, err := pipe.Exec(ctx); err != nil {
			a.log.WithError(err).WithField("gameId", gameID).Warn("audit: record failed")
		}
	}()
}
