// internal/database/stats.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats persists per-player session marks. Every method is a single
// idempotent upsert; the caller treats failures as best effort.
type Stats struct {
	pool *pgxpool.Pool
}

// NewStats builds the stats writer.
func NewStats(pool *pgxpool.Pool) *Stats {
	return &Stats{pool: pool}
}

// InitializePlayerSession records the start of a player's participation.
func (s *Stats) InitializePlayerSession(ctx context.Context, playerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_sessions (player_id, started_at, left_at)
		VALUES ($1, now(), NULL)
		ON CONFLICT (player_id) DO UPDATE SET started_at = now(), left_at = NULL`,
		playerID)
	return err
}

// ClearPlayerLeftAt erases the departure mark on reconnect.
func (s *Stats) ClearPlayerLeftAt(ctx context.Context, playerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE player_sessions SET left_at = NULL WHERE player_id = $1`,
		playerID)
	return err
}

// SetPlayerLeftAt stamps when a player dropped out.
func (s *Stats) SetPlayerLeftAt(ctx context.Context, playerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE player_sessions SET left_at = now() WHERE player_id = $1`,
		playerID)
	return err
}

// NoopStats satisfies the stats contract when no database is configured.
type NoopStats struct{}

func (NoopStats) InitializePlayerSession(context.Context, uuid.UUID) error { return nil }
func (NoopStats) ClearPlayerLeftAt(context.Context, uuid.UUID) error       { return nil }
func (NoopStats) SetPlayerLeftAt(context.Context, uuid.UUID) error         { return nil }
