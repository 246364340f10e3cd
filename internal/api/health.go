package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the scheduling engine can take bookings.
// Postgres holds schedules, time off and appointments, so losing it fails
// readiness outright; Redis only backs the reservation lock, so losing it
// degrades bookings while reads stay up.
type HealthHandler struct {
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
}

func NewHealthHandler(pgPool *pgxpool.Pool, redis *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   redis,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Env     string            `json:"env,omitempty"`
	Checks  map[string]string `json:"checks"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "ok"

	if err := pingWithTimeout(ctx, h.pgPool.Ping); err != nil {
		checks["appointment_store"] = "down"
		status = "error"
	} else {
		checks["appointment_store"] = "ok"
	}

	if err := pingWithTimeout(ctx, func(ctx context.Context) error {
		return h.redis.Ping(ctx).Err()
	}); err != nil {
		checks["reservation_lock"] = "down"
		if status == "ok" {
			status = "degraded"
		}
	} else {
		checks["reservation_lock"] = "ok"
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:  status,
		Version: h.version,
		Env:     h.env,
		Checks:  checks,
	})
}

func pingWithTimeout(ctx context.Context, ping func(context.Context) error) error {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return ping(pingCtx)
}
