// internal/database/database.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the persistence tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logrus.Logger) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS player_sessions (
			player_id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			left_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS game_results (
			game_id UUID PRIMARY KEY,
			join_code TEXT NOT NULL,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			standings JSONB NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	log.Info("database: schema ready")
	return nil
}
