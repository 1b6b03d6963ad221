// internal/cache/pipeline.go
package cache

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// acquireScript is the IN pipeline: one atomic round trip that tries to take
// the per-game lock and, on success, prefetches everything an execution
// needs. The socket session key is derived from a runtime value, so the
// script is computed client-side and passed in KEYS; on a clustered store the
// keys must be co-located with a hashtag or the session read split out under
// the same lock.
//
// KEYS[1] lock, KEYS[2] game, KEYS[3] timer, KEYS[4] session (may be a
// placeholder when the action has no originating socket).
// ARGV[1] token, ARGV[2] lock TTL ms, ARGV[3] game TTL ms, ARGV[4] has-session flag.
var acquireScript = redis.NewScript(`
local ok = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2])
if not ok then
  return {0}
end
local game = redis.call('HGETALL', KEYS[2])
if #game > 0 then
  redis.call('PEXPIRE', KEYS[2], ARGV[3])
end
local timer = redis.call('GET', KEYS[3])
local ttl = redis.call('PTTL', KEYS[3])
local sess = {}
if ARGV[4] == '1' then
  sess = redis.call('HGETALL', KEYS[4])
end
return {1, game, timer or '', ttl, sess}
`)

// releaseScript frees the lock only when the caller still owns it. A lock
// that expired and was re-acquired by another execution must not be deleted.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Prefetch is the result of the IN pipeline.
type Prefetch struct {
	Acquired  bool
	LockToken string
	GameData  map[string]string
	Timer     *models.Timer
	TimerTTL  time.Duration
	Session   *models.SocketSession
}

// OutBatch declares the writes the OUT pipeline applies in one round trip.
type OutBatch struct {
	// SaveGame, when non-nil, writes the full game hash and refreshes the
	// game and package TTLs.
	SaveGame map[string]string
	// SetTimer replaces the game's countdown with the given remaining TTL.
	SetTimer    *models.Timer
	DeleteTimer bool
}

// Pipeline executes the two fixed store round trips of an action execution.
type Pipeline struct {
	rdb *redis.Client
	cfg *config.Config
	log *logrus.Logger
}

// NewPipeline builds the pipeline service.
func NewPipeline(rdb *redis.Client, cfg *config.Config, log *logrus.Logger) *Pipeline {
	return &Pipeline{rdb: rdb, cfg: cfg, log: log}
}

// AcquireAndFetch runs the IN pipeline: lock conditional-set bundled with the
// game hash read, game TTL renewal, timer read and socket session read.
func (p *Pipeline) AcquireAndFetch(ctx context.Context, gameID, socketID string) (*Prefetch, error) {
	token, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}

	hasSession := "0"
	sessionKey := SessionKey("none")
	if socketID != "" {
		hasSession = "1"
		sessionKey = SessionKey(socketID)
	}

	raw, err := acquireScript.Run(ctx, p.rdb,
		[]string{LockKey(gameID), GameKey(gameID), TimerKey(gameID), sessionKey},
		token,
		p.cfg.LockTTL.Milliseconds(),
		p.cfg.GameTTL.Milliseconds(),
		hasSession,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("acquire script: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("acquire script: empty reply")
	}
	acquired, _ := raw[0].(int64)
	if acquired != 1 {
		return &Prefetch{Acquired: false}, nil
	}
	if len(raw) < 5 {
		return nil, fmt.Errorf("acquire script: short reply (%d)", len(raw))
	}

	pf := &Prefetch{Acquired: true, LockToken: token}
	pf.GameData = sliceToMap(raw[1])

	timerRaw, _ := raw[2].(string)
	timer, err := models.UnmarshalTimer(timerRaw)
	if err != nil {
		p.log.WithError(err).WithField("gameId", gameID).Warn("pipeline: bad timer value, ignoring")
	} else {
		pf.Timer = timer
	}
	if ttlMs, ok := raw[3].(int64); ok && ttlMs > 0 {
		pf.TimerTTL = time.Duration(ttlMs) * time.Millisecond
	}
	pf.Session = models.SessionFromHash(sliceToMap(raw[4]))

	return pf, nil
}

// ReleaseLock frees the per-game lock using the held token only.
func (p *Pipeline) ReleaseLock(ctx context.Context, gameID, token string) {
	if err := releaseScript.Run(ctx, p.rdb, []string{LockKey(gameID)}, token).Err(); err != nil && err != redis.Nil {
		p.log.WithError(err).WithField("gameId", gameID).Warn("pipeline: lock release failed; TTL will reap it")
	}
}

// Flush runs the OUT pipeline in one round trip: game save + TTL refresh,
// timer set/delete, then the queue length read the executor drains on.
func (p *Pipeline) Flush(ctx context.Context, gameID string, batch OutBatch) (int64, error) {
	pipe := p.rdb.TxPipeline()

	if batch.SaveGame != nil {
		pipe.HSet(ctx, GameKey(gameID), batch.SaveGame)
		pipe.PExpire(ctx, GameKey(gameID), p.cfg.GameTTL)
		pipe.PExpire(ctx, PackageKey(gameID), p.cfg.GameTTL)
	}
	if batch.DeleteTimer {
		pipe.Del(ctx, TimerKey(gameID))
	}
	if batch.SetTimer != nil {
		val, err := batch.SetTimer.Marshal()
		if err != nil {
			return 0, fmt.Errorf("marshal timer: %w", err)
		}
		pipe.Set(ctx, TimerKey(gameID), val, batch.SetTimer.Remaining())
	}
	lenCmd := pipe.LLen(ctx, QueueKey(gameID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("out pipeline: %w", err)
	}
	return lenCmd.Val(), nil
}

// DeleteGame removes every per-game key once a finished game is archived.
func (p *Pipeline) DeleteGame(ctx context.Context, gameID string) error {
	return p.rdb.Del(ctx,
		GameKey(gameID), PackageKey(gameID), QueueKey(gameID),
		AuditKey(gameID), TimerKey(gameID),
	).Err()
}

// AdvisoryState reads the persisted question state outside any lock. Used by
// the expiry listener to label timer actions; the value is a hint only.
func (p *Pipeline) AdvisoryState(ctx context.Context, gameID string) models.QuestionState {
	raw, err := p.rdb.HGet(ctx, GameKey(gameID), "state").Result()
	if err != nil || raw == "" {
		return ""
	}
	g, err := models.GameFromHash(map[string]string{
		"id": gameID, "packageId": gameID, "state": raw,
	})
	if err != nil {
		return ""
	}
	return g.State.QuestionState
}

func sliceToMap(v interface{}) map[string]string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	m := make(map[string]string, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		k, kok := items[i].(string)
		val, vok := items[i+1].(string)
		if kok && vok {
			m[k] = val
		}
	}
	return m
}
