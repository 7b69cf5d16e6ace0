package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	webhookHandler      *WebhookHandler
	subscriptionHandler *SubscriptionHandler
	tokenHandler        *TokenHandler
	healthHandler       *HealthHandler
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	webhookHandler *WebhookHandler,
	subscriptionHandler *SubscriptionHandler,
	tokenHandler *TokenHandler,
	healthHandler *HealthHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		webhookHandler:      webhookHandler,
		subscriptionHandler: subscriptionHandler,
		tokenHandler:        tokenHandler,
		healthHandler:       healthHandler,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// Webhook from the chat backend, authenticated by signature
	r.Post("/webhook", rt.webhookHandler.HandleEvent)

	// Client-facing API
	r.Post("/subscriptions", rt.subscriptionHandler.Register)
	r.Delete("/subscriptions", rt.subscriptionHandler.Unregister)
	r.Get("/token", rt.tokenHandler.GetToken)

	r.Route("/channels/{channelID}/mute", func(r chi.Router) {
		r.Post("/", rt.subscriptionHandler.Mute)
		r.Delete("/", rt.subscriptionHandler.Unmute)
	})

	return r
}
