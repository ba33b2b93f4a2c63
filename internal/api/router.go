package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medconnect/booking-server/internal/storage"
)

type RouterConfig struct {
	Service   BookingService
	Files     storage.Store
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", createAppointmentHandler(cfg.Service, cfg.Files))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Service))
		r.Post("/appointments/{id}/start", startConsultationHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Get("/appointments/{id}/medical-report", downloadReportHandler(cfg.Service, cfg.Files))

		r.Get("/doctors/{id}/slots", listDoctorSlotsHandler(cfg.Service))
	})

	return r
}
