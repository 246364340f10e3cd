package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medora/clinic-scheduling/internal/appointment"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

type RouterConfig struct {
	Service   *appointment.Service
	Schedules *schedule.Store
	TimeOff   *timeoff.Registry
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Doctor schedule and time-off endpoints. Reads hit the store/registry
	// directly; writes go through the service to keep the availability
	// cache coherent.
	r.Get("/doctors/{id}/schedule", getScheduleHandler(cfg.Schedules))
	r.Put("/doctors/{id}/schedule", setScheduleHandler(cfg.Service))
	r.Post("/doctors/{id}/time-off", addTimeOffHandler(cfg.Service))
	r.Get("/doctors/{id}/time-off", listTimeOffHandler(cfg.TimeOff))
	r.Delete("/doctors/{id}/time-off/{key}", cancelTimeOffHandler(cfg.Service))

	// Availability
	r.Get("/doctors/{id}/availability", availabilityHandler(cfg.Service))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Service))

	// Appointment lifecycle endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/approve", approveAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Service))

	return r
}
