// Package server assembles the HTTP router of the API.
package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/learnmarket/backend/docs"
	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/handlers"
	"github.com/learnmarket/backend/internal/middleware"
)

// maxRequestSize bounds request bodies
const maxRequestSize = 1 << 20

// Options configures the router
type Options struct {
	AllowedOrigins []string
	// WebhookKey guards the gateway callback; empty disables the check
	WebhookKey string
	// SwaggerURL is the doc.json URL of the swagger UI; empty disables the UI
	SwaggerURL string
	// RequestsPerMinute is the per-IP rate limit; zero disables it
	RequestsPerMinute int
}

// Handlers are the HTTP handlers mounted under /api/v1
type Handlers struct {
	Checkout    *handlers.CheckoutHandler
	Enrollments *handlers.EnrollmentHandler
	Progress    *handlers.ProgressHandler
	Certificate *handlers.CertificateHandler
	Refunds     *handlers.RefundHandler
	Courses     *handlers.CourseHandler
	Admin       *handlers.AdminHandler
}

// NewRouter builds the API router with its middleware chain and role groups
func NewRouter(opts Options, tokens middleware.TokenValidator, h Handlers, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	if opts.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))
	}
	r.Use(middleware.RequestSizeLimitMiddleware(maxRequestSize))

	if opts.SwaggerURL != "" {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(opts.SwaggerURL)))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway callbacks (shared key + payment signature)
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyMiddleware(opts.WebhookKey))
			h.Checkout.RegisterWebhookRoutes(r)
		})

		// Learner endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(tokens))
			h.Checkout.RegisterRoutes(r)
			h.Enrollments.RegisterRoutes(r)
			h.Progress.RegisterRoutes(r)
			h.Certificate.RegisterRoutes(r)
			h.Refunds.RegisterRoutes(r)
		})

		// Creator endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RoleMiddleware(tokens, auth.RoleCreator))
			h.Courses.RegisterCreatorRoutes(r)
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RoleMiddleware(tokens, auth.RoleAdmin))
			h.Courses.RegisterAdminRoutes(r)
			h.Certificate.RegisterAdminRoutes(r)
			h.Refunds.RegisterAdminRoutes(r)
			h.Admin.RegisterRoutes(r)
		})
	})

	return r
}
