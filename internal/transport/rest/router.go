package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/gym-membership/api"
	"github.com/frahmantamala/gym-membership/internal/auth"
	"github.com/frahmantamala/gym-membership/internal/member"
	"github.com/frahmantamala/gym-membership/internal/order"
	"github.com/frahmantamala/gym-membership/internal/payment"
	"github.com/frahmantamala/gym-membership/internal/plan"
	"github.com/frahmantamala/gym-membership/internal/subscription"
	"github.com/frahmantamala/gym-membership/internal/transport/middleware"
	"github.com/frahmantamala/gym-membership/internal/transport/swagger"
)

// Handlers groups everything the router mounts. Nil handlers are skipped so
// partial wiring (tests, a disabled gateway) still produces a working router.
type Handlers struct {
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	Member       *member.Handler
	Plan         *plan.Handler
	Subscription *subscription.Handler
	Order        *order.Handler
	Payment      *payment.Handler
	Webhook      *payment.WebhookHandler
}

type Options struct {
	AllowedOrigins string
	RequestLogging bool
	// HealthChecks are probed by /health next to the database.
	HealthChecks map[string]Pinger
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, opts.HealthChecks)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.RequestLogging {
		router.Use(middleware.LoggingMiddleware(logger))
	}

	router.Handle("/openapi.yml", api.Handler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// provider-facing, authenticated by checksum rather than a bearer token
		r.Route("/payments/gateway", func(gr chi.Router) {
			if h.Webhook != nil {
				gr.Post("/webhook", h.Webhook.HandleWebhook)
			}
			if h.Payment != nil {
				gr.Get("/redirect", h.Payment.HandleRedirect)
			}
		})

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Plan != nil {
				pr.Get("/plans", h.Plan.GetPlans)
			}
			if h.Member != nil {
				pr.Get("/members/me", h.Member.GetCurrentMember)
			}
			if h.Subscription != nil {
				pr.Get("/subscriptions/me", h.Subscription.GetCurrent)
			}
			if h.Order != nil {
				pr.Post("/checkout", h.Order.Checkout)
			}

			if h.RBAC == nil {
				return
			}

			if h.Subscription != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(h.RBAC.RequireAdmin())
					ar.Post("/subscriptions/sweep", h.Subscription.RunSweep)
				})
			}

			if h.Payment != nil {
				pr.Group(func(pmr chi.Router) {
					pmr.Use(h.RBAC.RequireManagePayments())
					pmr.Get("/payments/{orderId}/status", h.Payment.GetStatus)
					pmr.Post("/payments/{orderId}/resolve", h.Payment.Resolve)
					pmr.Post("/payments/{orderId}/refund", h.Payment.Refund)
				})
			}
		})
	})
}
