package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medora/clinic-scheduling/internal/api"
	"github.com/medora/clinic-scheduling/internal/appointment"
	"github.com/medora/clinic-scheduling/internal/availability"
	"github.com/medora/clinic-scheduling/internal/config"
	"github.com/medora/clinic-scheduling/internal/db"
	redisclient "github.com/medora/clinic-scheduling/internal/redis"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

const version = "0.3.0"

func main() {
	log := newLogger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

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

	// Connect Redis
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

	var cache *availability.Cache
	if cfg.AvailabilityCacheEnabled {
		cache, err = availability.NewCache(cfg.AvailabilityCacheSize)
		if err != nil {
			log.Fatal().Err(err).Msg("availability cache error")
		}
	}

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisReservationLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, schedules, timeOff, resolver, cache, locker, log)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Schedules: schedules,
		TimeOff:   timeOff,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    log,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
}
