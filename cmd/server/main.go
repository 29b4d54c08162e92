package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rentalcash/internal/config"
	"rentalcash/internal/handler"
	"rentalcash/internal/infra"
	"rentalcash/internal/repository"
	"rentalcash/internal/repository/memory"
	"rentalcash/internal/router"
	"rentalcash/internal/service"
	"rentalcash/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	var (
		db    *gorm.DB
		repos repository.Set
	)
	switch cfg.DBDriver {
	case "memory":
		repos = memory.NewSet()
		log.Warn().Msg("DB_DRIVER=memory: data is lost on restart")
	case "sqlite":
		db, err = infra.NewDatabase("sqlite", filepath.Clean(cfg.SQLitePath))
	default:
		db, err = infra.NewDatabase("postgres", cfg.DatabaseURL)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	if db != nil {
		repos = repository.NewGormSet(db)
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	svc := service.New(repos, service.Options{Location: cfg.Location()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Orphan repairs: queued through redis when configured, inline otherwise
	var queue handler.RepairQueue
	if rdb != nil {
		queue = worker.NewDispatcher(rdb)
		worker.StartWorkerPool(ctx, rdb, worker.Handlers{
			worker.JobOrphanRepair: worker.NewRepairWorker(svc.Repair),
		}, cfg.WorkerPoolSize)
	}
	worker.StartRepairCron(ctx, worker.RepairCronConfig{
		Repair:   svc.Repair,
		Breakers: infra.NewBreakerSet(infra.DefaultCBConfig()),
		Interval: time.Duration(cfg.RepairIntervalMinutes) * time.Minute,
	})

	r := router.New(cfg, svc, queue, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("driver", cfg.DBDriver).Bool("redis", rdb != nil).Msgf("rentalcash listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	closeBackends(db, rdb)
	log.Info().Msg("server exited")
}

// setupLogger: dev pretty console, prod JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func closeBackends(db *gorm.DB, rdb *redis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
