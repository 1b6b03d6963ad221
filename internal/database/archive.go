// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigmahub/trivia-engine/internal/models"
)

// Archive writes a finished game's final standings to Postgres before its
// store keys are deleted.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive builds the game archiver.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

type standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// ArchiveGame upserts the game's result row.
func (a *Archive) ArchiveGame(ctx context.Context, game *models.Game) error {
	var standings []standing
	for _, p := range game.Players {
		if p.Role != models.RolePlayer {
			continue
		}
		standings = append(standings, standing{
			PlayerID: p.ID.String(),
			Name:     p.Name,
			Score:    p.Score,
		})
	}
	raw, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO game_results (game_id, join_code, started_at, finished_at, standings)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			standings = EXCLUDED.standings`,
		game.ID, game.JoinCode, game.StartedAt, game.FinishedAt, raw)
	return err
}

// NoopArchive satisfies the archiver contract when no database is configured.
type NoopArchive struct{}

// ArchiveGame discards the result.
func (NoopArchive) ArchiveGame(context.Context, *models.Game) error { return nil }
