// internal/store/questions.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigmahub/trivia-engine/internal/cache"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// PackageStore reads a game's immutable question data. The package hash is
// written once at game creation and only ever re-expired during play.
type PackageStore struct {
	rdb *redis.Client
}

// NewPackageStore builds the package store.
func NewPackageStore(rdb *redis.Client) *PackageStore {
	return &PackageStore{rdb: rdb}
}

const roundsField = "rounds"

// Seed writes the package content for a new game.
func (s *PackageStore) Seed(ctx context.Context, gameID string, rounds []models.Round, ttl time.Duration) error {
	raw, err := json.Marshal(rounds)
	if err != nil {
		return fmt.Errorf("marshal rounds: %w", err)
	}
	key := cache.PackageKey(gameID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, roundsField, raw)
	pipe.PExpire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Rounds loads every round of a game's package.
func (s *PackageStore) Rounds(ctx context.Context, gameID string) ([]models.Round, error) {
	raw, err := s.rdb.HGet(ctx, cache.PackageKey(gameID), roundsField).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rounds []models.Round
	if err := json.Unmarshal([]byte(raw), &rounds); err != nil {
		return nil, fmt.Errorf("unmarshal rounds: %w", err)
	}
	return rounds, nil
}

// GetRound returns the round with the given order, nil when absent.
func (s *PackageStore) GetRound(ctx context.Context, gameID string, order int) (*models.Round, error) {
	rounds, err := s.Rounds(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for i := range rounds {
		if rounds[i].Order == order {
			return &rounds[i], nil
		}
	}
	return nil, nil
}

// GetQuestion returns a question by id from any round, nil when absent.
func (s *PackageStore) GetQuestion(ctx context.Context, gameID, questionID string) (*models.Question, error) {
	q, _, err := s.GetQuestionWithTheme(ctx, gameID, questionID)
	return q, err
}

// GetQuestionWithTheme returns a question and its containing theme.
func (s *PackageStore) GetQuestionWithTheme(ctx context.Context, gameID, questionID string) (*models.Question, *models.Theme, error) {
	rounds, err := s.Rounds(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	for i := range rounds {
		if q, th := rounds[i].QuestionByID(questionID); q != nil {
			return q, th, nil
		}
	}
	return nil, nil, nil
}
