package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medora/clinic-scheduling/internal/appointment"
	"github.com/medora/clinic-scheduling/internal/availability"
	"github.com/medora/clinic-scheduling/internal/config"
	"github.com/medora/clinic-scheduling/internal/db"
	redisclient "github.com/medora/clinic-scheduling/internal/redis"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "sweep-worker").Logger()
	log.Info().Msg("sweep-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("running sweep worker")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:         cfg.RedisAddr,
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	schedules := schedule.NewStore(schedule.NewPgRepository(pgPool))
	timeOff := timeoff.NewRegistry(timeoff.NewPgRepository(pgPool))
	resolver := availability.NewResolver(cfg.SlotDuration, cfg.BookingHorizonDays, nil)
	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisReservationLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, schedules, timeOff, resolver, nil, locker, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping sweep worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SweepStalePending(runCtx); err != nil {
		log.Error().Err(err).Msg("sweep run error")
		return
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("sweep run complete")
}
