// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the engine reads from the environment.
// Lock TTLs, bid minimums and score caps are deployment policy, not code.
type Config struct {
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PostgresDSN string `env:"POSTGRES_DSN" envDefault:""`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	JWTSecret  string `env:"JWT_SECRET" envDefault:""`

	// LockTTL bounds how long a crashed executor can keep a game unavailable.
	LockTTL time.Duration `env:"GAME_LOCK_TTL" envDefault:"10s"`
	// GameTTL is the idle expiry of a game hash; renewed on every prefetch.
	GameTTL time.Duration `env:"GAME_TTL" envDefault:"2h"`

	QuestionTimer   time.Duration `env:"QUESTION_TIMER" envDefault:"30s"`
	AnsweringTimer  time.Duration `env:"ANSWERING_TIMER" envDefault:"20s"`
	BiddingTimer    time.Duration `env:"BIDDING_TIMER" envDefault:"15s"`
	FinalPhaseTimer time.Duration `env:"FINAL_PHASE_TIMER" envDefault:"45s"`
	ShowAnswerTimer time.Duration `env:"SHOW_ANSWER_TIMER" envDefault:"5s"`

	// MaxStakePrice caps stake auction bids regardless of player score.
	MaxStakePrice int `env:"MAX_STAKE_PRICE" envDefault:"10000"`
	// MinFinalBid is the floor for final-round bids.
	MinFinalBid int `env:"MIN_FINAL_BID" envDefault:"1"`
	// ScoreCap is the absolute ceiling a score may reach in either direction.
	ScoreCap int `env:"SCORE_CAP" envDefault:"1000000"`
	// MaxReviewDelta caps how far a single final-round review can move a score.
	MaxReviewDelta int `env:"MAX_REVIEW_DELTA" envDefault:"100000"`

	// ActionLogLimit caps the per-game audit trail list.
	ActionLogLimit int64 `env:"ACTION_LOG_LIMIT" envDefault:"1000"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
