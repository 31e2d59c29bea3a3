package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/http/handler"
	"github.com/tripdesk/agency-api/internal/http/middleware"
	"github.com/tripdesk/agency-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/tripdesk/agency-api/docs" // Import generated swagger docs
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Agency    *handler.AgencyHandler
	User      *handler.UserHandler
	Client    *handler.ClientHandler
	Service   *handler.ServiceHandler
	Booking   *handler.BookingHandler
	Analytics *handler.AnalyticsHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		metrics:        m,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics(rt.metrics))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", h.Health.Live)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	if rt.cfg.Metrics.Enabled && rt.metrics != nil {
		r.Handle(rt.cfg.Metrics.Path, rt.metrics.Handler())
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitLogin)
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/refresh", h.Auth.Refresh)
		})

		// Members of a blocked agency may still ask why
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.AuthenticateUngated)
			r.Get("/agency/check-status", h.Agency.CheckStatus)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			r.Use(middleware.AgencyScope(rt.logger))

			// Auth
			r.Get("/auth/profile", h.Auth.Profile)
			r.Put("/auth/profile", h.Auth.UpdateProfile)
			r.Post("/auth/change-password", h.Auth.ChangePassword)

			// Agency
			r.Get("/agency", h.Agency.Get)
			r.Put("/agency", h.Agency.Update)
			r.Get("/agency/public", h.Agency.Public)
			r.Post("/agency/logo", h.Agency.UploadLogo)

			// Platform administration
			r.Route("/admin", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.RoleSuperUser))
				r.Get("/agencies", h.Agency.List)
				r.Post("/agencies", h.Agency.Create)
				r.Put("/agencies/{id}/status", h.Agency.UpdateStatus)
			})

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.User.List)
				r.Post("/", h.User.Create)
				r.Get("/{id}", h.User.GetByID)
				r.Put("/{id}", h.User.Update)
				r.Delete("/{id}", h.User.Delete)
				r.Post("/{id}/activate", h.User.Activate)
				r.Post("/{id}/deactivate", h.User.Deactivate)
			})

			// Clients
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.Client.List)
				r.Post("/", h.Client.Create)
				r.Get("/{id}", h.Client.GetByID)
				r.Put("/{id}", h.Client.Update)
				r.Delete("/{id}", h.Client.Delete)
				r.Get("/{id}/notes", h.Client.ListNotes)
				r.Post("/{id}/notes", h.Client.AddNote)
			})
			r.Get("/client-notes", h.Client.ListAllNotes)

			// Services
			r.Route("/services", func(r chi.Router) {
				r.Get("/", h.Service.List)
				r.Post("/", h.Service.Create)
				r.Get("/{id}", h.Service.GetByID)
				r.Put("/{id}", h.Service.Update)
				r.Delete("/{id}", h.Service.Delete)
				r.Post("/{id}/activate", h.Service.Activate)
				r.Post("/{id}/deactivate", h.Service.Deactivate)
			})

			// Bookings
			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.Booking.List)
				r.Post("/", h.Booking.Create)
				r.Get("/dates-summary", h.Booking.DatesSummary)
				r.Get("/{id}", h.Booking.GetByID)
				r.Put("/{id}", h.Booking.Update)
				r.Delete("/{id}", h.Booking.Delete)
				r.Post("/{id}/payment", h.Booking.ApplyPayment)
				r.Get("/{id}/notes", h.Booking.ListNotes)
				r.Post("/{id}/notes", h.Booking.AddNote)
			})
			r.Get("/booking-notes", h.Booking.ListAllNotes)

			// Onboard
			r.Get("/onboard", h.Booking.Onboard)
			r.Get("/onboard/{id}", h.Booking.OnboardDetail)

			// Analytics
			r.Get("/analytics", h.Analytics.Summary)
		})
	})

	return r
}
