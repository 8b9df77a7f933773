package routes

import (
	"time"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/handlers"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	conversationHandler *handlers.ConversationHandler,
	usageHandler *handlers.UsageHandler,
	planHandler *handlers.PlanHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	webhookHandler *handlers.WebhookHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-verification", authHandler.ResendVerification)
	auth.Post("/verify-device", authHandler.VerifyDevice)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes - apply middleware per route so the JWT
	// middleware never touches the public ones.
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Get("/auth/me", middleware.JWTProtected(cfg), authHandler.Me)

	// Anonymous sessions
	api.Post("/sessions", sessionHandler.Create)
	api.Get("/sessions/:id", sessionHandler.Get)
	api.Post("/sessions/:id/claim", middleware.JWTProtected(cfg), sessionHandler.Claim)

	// Conversations and messages — JWT or anonymous session
	conversations := api.Group("/conversations", middleware.OptionalJWT(cfg))
	conversations.Post("/", conversationHandler.Create)
	conversations.Get("/", conversationHandler.List)
	conversations.Get("/:id", conversationHandler.Get)
	conversations.Patch("/:id", conversationHandler.Rename)
	conversations.Delete("/:id", conversationHandler.Delete)
	conversations.Get("/:id/messages", conversationHandler.Messages)
	conversations.Post("/:id/messages", conversationHandler.SendMessage)

	api.Get("/usage", middleware.OptionalJWT(cfg), usageHandler.Stats)

	// Billing
	api.Get("/plans", planHandler.List)
	api.Get("/subscriptions", middleware.JWTProtected(cfg), subscriptionHandler.List)
	api.Post("/subscriptions/checkout", middleware.JWTProtected(cfg), subscriptionHandler.Checkout)
	api.Get("/subscriptions/verify", middleware.JWTProtected(cfg), subscriptionHandler.Verify)
	api.Post("/subscriptions/portal", middleware.JWTProtected(cfg), subscriptionHandler.Portal)
	api.Post("/subscriptions/:id/cancel", middleware.JWTProtected(cfg), subscriptionHandler.Cancel)
	api.Post("/subscriptions/:id/auto-renew", middleware.JWTProtected(cfg), subscriptionHandler.ToggleAutoRenew)

	// Webhooks — signature-verified, no JWT
	api.Post("/webhooks/stripe", webhookHandler.Stripe)

	// Admin panel
	admin := api.Group("/admin", middleware.OptionalJWT(cfg), middleware.AdminRequired(cfg))
	admin.Post("/plans", planHandler.Create)
	admin.Put("/plans/:id", planHandler.Update)
	admin.Delete("/plans/:id", planHandler.Deactivate)
	admin.Post("/jobs/reset-quotas", adminHandler.ResetQuotas)
	admin.Post("/jobs/sweep-sessions", adminHandler.SweepSessions)
	admin.Post("/jobs/run-renewals", adminHandler.RunRenewals)
}
