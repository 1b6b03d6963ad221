// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/cache"
	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/database"
	"github.com/sigmahub/trivia-engine/internal/engine"
	"github.com/sigmahub/trivia-engine/internal/logging"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
	"github.com/sigmahub/trivia-engine/internal/store"
	"github.com/sigmahub/trivia-engine/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.NewClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	// Postgres is optional: without it the engine runs with stats and
	// archival disabled.
	var stats mutation.StatsService = database.NoopStats{}
	var archiver mutation.Archiver = database.NoopArchive{}
	if cfg.PostgresDSN != "" {
		pool, err := database.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("connect postgres")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, log); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		stats = database.NewStats(pool)
		archiver = database.NewArchive(pool)
	} else {
		log.Warn("no POSTGRES_DSN configured; stats and archival disabled")
	}

	hub := transport.NewSocketHub()
	emitter := broadcast.NewService(hub, log)

	pipe := cache.NewPipeline(rdb, cfg, log)
	queue := cache.NewQueue(rdb)
	audit := cache.NewAudit(rdb, cfg.ActionLogLimit, log)
	sessions := cache.NewSessions(rdb, cfg.GameTTL)
	packages := store.NewPackageStore(rdb)
	games := store.NewGameStore(rdb, packages, cfg.GameTTL)

	registry, err := engine.BuildRegistry(cfg)
	if err != nil {
		log.WithError(err).Fatal("build registry")
	}
	processor := mutation.NewProcessor(pipe, sessions, stats, emitter, archiver, hub, log)
	executor := engine.NewExecutor(cfg, log, pipe, queue, audit, registry, processor, packages, emitter)

	// Timer deadlines come back through the same executor as ordinary
	// actions, keeping the single-writer discipline.
	expiry := cache.NewExpiryListener(rdb, pipe, log, func(env models.ActionEnvelope) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := executor.Execute(ctx, env); err != nil {
				log.WithError(err).WithField("gameId", env.GameID).Warn("timer action failed")
			}
		}()
	})
	go func() {
		if err := expiry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("expiry listener stopped")
		}
	}()

	mux := http.NewServeMux()
	transport.NewServer(cfg, log, hub, executor, games).Routes(mux)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
