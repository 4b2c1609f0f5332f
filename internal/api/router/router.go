// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emprendigo/platform/internal/auth"
	"github.com/emprendigo/platform/internal/bookings"
	"github.com/emprendigo/platform/internal/conversation"
	"github.com/emprendigo/platform/internal/customers"
	httpmiddleware "github.com/emprendigo/platform/internal/http/middleware"
	"github.com/emprendigo/platform/internal/payments"
	"github.com/emprendigo/platform/internal/services"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	TokenSigner         *auth.TokenSigner
	AuthHandler         *auth.Handler
	TenantsHandler      *tenants.Handler
	ServicesHandler     *services.Handler
	CustomersHandler    *customers.Handler
	BookingsHandler     *bookings.Handler
	PaymentsHandler     *payments.Handler
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public surface: health, metrics, auth, webhooks, tenant profiles.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})

		public.Route("/whatsapp/webhook", func(r chi.Router) {
			r.Get("/", cfg.ConversationHandler.VerifyWebhook)
			r.Post("/", cfg.ConversationHandler.ReceiveWebhook)
		})

		public.Get("/tenants/by-slug/{slug}", cfg.TenantsHandler.GetBySlug)
	})

	// Authenticated owner surface, tenant-scoped via the bearer token.
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RequireAuth(cfg.TokenSigner))

		api.Route("/tenants", func(r chi.Router) {
			r.Get("/me", cfg.TenantsHandler.GetMe)
			r.Patch("/me", cfg.TenantsHandler.UpdateMe)
			r.Post("/calcom-connection", cfg.TenantsHandler.ConnectCalCom)
			r.Post("/whatsapp-connection", cfg.TenantsHandler.ConnectWhatsApp)
		})

		api.Route("/services", func(r chi.Router) {
			r.Get("/", cfg.ServicesHandler.List)
			r.Post("/", cfg.ServicesHandler.Create)
			r.Patch("/{id}", cfg.ServicesHandler.Update)
			r.Delete("/{id}", cfg.ServicesHandler.Delete)
		})

		api.Route("/customers", func(r chi.Router) {
			r.Get("/", cfg.CustomersHandler.List)
			r.Post("/", cfg.CustomersHandler.Upsert)
			r.Get("/{id}", cfg.CustomersHandler.Get)
		})

		api.Route("/bookings", func(r chi.Router) {
			r.Get("/", cfg.BookingsHandler.List)
			r.Post("/", cfg.BookingsHandler.Create)
			r.Get("/{id}", cfg.BookingsHandler.Get)
			r.Post("/{id}/approve", cfg.BookingsHandler.Approve)
			r.Post("/{id}/reject", cfg.BookingsHandler.Reject)
			r.Post("/{id}/cancel", cfg.BookingsHandler.Cancel)
			r.Post("/{id}/complete", cfg.BookingsHandler.Complete)
		})

		api.Route("/payments/{booking_id}", func(r chi.Router) {
			r.Post("/proof", cfg.PaymentsHandler.UploadProof)
			r.Post("/verify", cfg.PaymentsHandler.Verify)
		})

		api.Route("/whatsapp/conversations", func(r chi.Router) {
			r.Get("/", cfg.ConversationHandler.List)
			r.Get("/{id}/messages", cfg.ConversationHandler.Messages)
			r.Post("/{id}/messages", cfg.ConversationHandler.Send)
		})
	})

	return r
}
