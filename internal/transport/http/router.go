package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-wa-onboarding/internal/application/onboarding"
	"github.com/go-wa-onboarding/internal/config"
	"github.com/go-wa-onboarding/internal/domain"
	jwtinfra "github.com/go-wa-onboarding/internal/infrastructure/jwt"
	"github.com/go-wa-onboarding/internal/transport/http/handler"
	appmiddleware "github.com/go-wa-onboarding/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds the services the router exposes.
type Deps struct {
	Onboarding  onboarding.Service
	JWTProvider *jwtinfra.Provider // nil trusts the X-Tenant-ID header (development only)
}

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiters.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.TenantHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = appmiddleware.DevTenant
	}

	// The popup can emit bursts of messages; codes and PINs are rarer.
	messageRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(20), 40)
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	waH := handler.NewWhatsAppHandler(deps.Onboarding)
	pinH := handler.NewPinHandler(deps.Onboarding)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/whatsapp/status", waH.Status)
			r.Post("/whatsapp/config/refresh", waH.Refresh)
			r.Post("/whatsapp/signup/start", waH.Start)
			r.With(sensitiveRL.Limit).Post("/whatsapp/signup/authorization", waH.Authorize)
			r.With(messageRL.Limit).Post("/whatsapp/signup/messages", waH.Message)
			r.Post("/whatsapp/signup/retry", waH.Retry)
			r.Post("/whatsapp/pin/open", pinH.Open)
			r.Post("/whatsapp/pin/close", pinH.Close)
			r.With(sensitiveRL.Limit).Post("/whatsapp/pin", pinH.Submit)
			r.Post("/whatsapp/webhook/ping", waH.PingWebhook)
			r.Delete("/whatsapp/session", waH.EndSession)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleOwner, domain.RoleAdmin))

				r.Post("/whatsapp/disconnect", waH.Disconnect)
			})
		})
	})

	return r
}
