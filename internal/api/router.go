package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/user"
)

type RouterConfig struct {
	Queue         QueueService
	Projector     QueueProjector
	Notifications InboxService
	Billing       BillingService
	Users         user.Repository
	Auth          AuthConfig
	RateLimiter   *RateLimiter
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Log           zerolog.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Auth endpoints, rate limited per client
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimiter))
		r.Post("/auth/register", registerHandler(cfg.Users, cfg.Auth))
		r.Post("/auth/login", loginHandler(cfg.Users, cfg.Auth))
	})

	// Everything else requires a valid token
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth.Secret))

		r.Get("/me", meHandler(cfg.Users))
		r.Get("/doctors", listDoctorsHandler(cfg.Users))

		// Booking and lifecycle
		r.With(RequireRole(cfg.Users, user.RolePatient)).
			Post("/appointments", bookAppointmentHandler(cfg.Queue))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Queue))
		r.With(RequireRole(cfg.Users, user.RolePatient, user.RoleAdmin)).
			Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Queue))
		r.With(RequireRole(cfg.Users, user.RolePatient, user.RoleAdmin)).
			Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Queue))
		r.With(RequireRole(cfg.Users, user.RoleAdmin)).
			Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Queue))

		// Queue views and advancement
		r.With(RequireRole(cfg.Users, user.RoleDoctor)).
			Post("/queues/{doctorID}/{date}/advance", advanceQueueHandler(cfg.Queue))
		r.Get("/queues/{doctorID}/{date}", doctorRosterHandler(cfg.Queue))
		r.Get("/patients/{patientID}/appointments", patientAppointmentsHandler(cfg.Queue))

		// Live views
		r.Get("/ws/queues/{doctorID}/{date}", queueStreamHandler(cfg.Projector, cfg.Log))
		r.Get("/ws/patients/{patientID}/appointments", patientStreamHandler(cfg.Projector, cfg.Log))
		r.Get("/ws/notifications", inboxStreamHandler(cfg.Notifications, cfg.Log))

		// Inbox
		r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))

		// Bills and discharge summaries
		r.With(RequireRole(cfg.Users, user.RoleAdmin)).
			Post("/bills", createBillHandler(cfg.Billing))
		r.With(RequireRole(cfg.Users, user.RoleDoctor)).
			Post("/discharges", createDischargeHandler(cfg.Billing))
		r.Get("/patients/{patientID}/bills", listBillsHandler(cfg.Billing))
		r.Get("/patients/{patientID}/discharges", listDischargesHandler(cfg.Billing))
		r.Get("/patients/{patientID}/history", historyHandler(cfg.Billing))
	})

	return r
}
