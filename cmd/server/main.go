package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/database"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/handlers"
	"github.com/echowrite/echowrite/internal/jobs"
	"github.com/echowrite/echowrite/internal/logging"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/routes"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (WARN+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cleanupDone)

	// Services
	otpService := services.NewOTPService(db, cfg)
	mailer := services.NewSMTPMailer(cfg)
	authService := services.NewAuthService(db, cfg, otpService, mailer)
	sessionService := services.NewSessionService(db, cfg)
	quotaService := services.NewQuotaService(db)
	conversationService := services.NewConversationService(db)
	generationService := services.NewGenerationService(services.NewOpenAIClient(cfg), cfg.AICallDelay)
	chatService := services.NewChatService(db, generationService, quotaService)
	planService := services.NewPlanService(db)

	var gateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(db)
	} else {
		slog.Warn("stripe not configured, renewals use the simulated gateway")
		gateway = &services.SimulatedGateway{FailureRate: 0.2}
	}
	subscriptionService := services.NewSubscriptionService(db, planService, gateway)
	stripeService := services.NewStripeService(db, cfg, planService, subscriptionService)

	// Seed the default plan catalog
	if err := planService.SeedDefaults(); err != nil {
		slog.Error("plan seeding failed", "error", err)
		os.Exit(1)
	}

	// Background jobs
	runner := jobs.NewRunner(db, subscriptionService, sessionService)
	runner.Start()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	conversationHandler := handlers.NewConversationHandler(conversationService, chatService)
	usageHandler := handlers.NewUsageHandler(quotaService)
	planHandler := handlers.NewPlanHandler(planService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, stripeService)
	webhookHandler := handlers.NewWebhookHandler(stripeService)
	adminHandler := handlers.NewAdminHandler(runner, sessionService, subscriptionService)
	healthHandler := handlers.NewHealthHandler(db)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg,
		authHandler, sessionHandler, conversationHandler, usageHandler,
		planHandler, subscriptionHandler, webhookHandler, adminHandler,
		healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	runner.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	if appErr := apperr.As(err); appErr != nil {
		return c.Status(appErr.Status).JSON(dto.ErrorResponse{
			Success: false,
			Error: dto.ErrorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			},
		})
	}

	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Success: false,
		Error: dto.ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: message,
		},
	})
}
