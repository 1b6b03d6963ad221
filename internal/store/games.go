// internal/store/games.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sigmahub/trivia-engine/internal/cache"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// joinCodeAlphabet avoids ambiguous characters in codes read over voice chat.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GameStore creates and resolves game records outside the action path.
// Everything inside an action goes through the lock pipeline instead.
type GameStore struct {
	rdb      *redis.Client
	packages *PackageStore
	ttl      time.Duration
}

// NewGameStore builds the game store.
func NewGameStore(rdb *redis.Client, packages *PackageStore, ttl time.Duration) *GameStore {
	return &GameStore{rdb: rdb, packages: packages, ttl: ttl}
}

// Create writes a fresh game hash and seeds its package content.
func (s *GameStore) Create(ctx context.Context, rounds []models.Round) (*models.Game, error) {
	code, err := gonanoid.Generate(joinCodeAlphabet, 6)
	if err != nil {
		return nil, fmt.Errorf("join code: %w", err)
	}
	g := &models.Game{
		ID:        uuid.New(),
		JoinCode:  code,
		PackageID: uuid.New(),
		State:     models.GameState{QuestionState: models.StateChoosing},
		CreatedAt: time.Now().UTC(),
	}

	hash, err := g.ToHash()
	if err != nil {
		return nil, err
	}
	key := cache.GameKey(g.ID.String())
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, hash)
	pipe.PExpire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	if err := s.packages.Seed(ctx, g.ID.String(), rounds, s.ttl); err != nil {
		return nil, fmt.Errorf("seed package: %w", err)
	}
	return g, nil
}

// Resolve maps a join code to its game id by scanning live games. Join codes
// are an out-of-band convenience; gameplay always addresses games by id.
func (s *GameStore) Resolve(ctx context.Context, joinCode string) (uuid.UUID, error) {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, cache.GameKey("*"), 100).Result()
		if err != nil {
			return uuid.Nil, err
		}
		for _, key := range keys {
			code, err := s.rdb.HGet(ctx, key, "joinCode").Result()
			if err != nil || code != joinCode {
				continue
			}
			id, err := s.rdb.HGet(ctx, key, "id").Result()
			if err != nil {
				continue
			}
			return uuid.Parse(id)
		}
		if next == 0 {
			return uuid.Nil, fmt.Errorf("no game with code %s", joinCode)
		}
		cursor = next
	}
}
