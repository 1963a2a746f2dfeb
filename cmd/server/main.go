package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/classifier"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Document store
	store, err := database.Open(ctx, cfg)
	if err != nil {
		slog.Error("store connection failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	slog.Info("store ready", "backend", store.Name())
	if cfg.SeedFixtures {
		if err := database.Seed(ctx, store); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	// PostgreSQL log handler (ERROR+ async batch) and 30-day cleanup
	var pgLogHandler *logging.PGHandler
	cleanupDone := make(chan struct{})
	if pg, ok := store.(*database.PostgresStore); ok {
		pgLogHandler, err = logging.EnablePostgres(pg.DB(), cfg.LogLevel)
		if err != nil {
			slog.Error("system log setup failed", "error", err)
			os.Exit(1)
		}
		logging.StartCleanup(pg.DB(), cleanupDone)
	}

	// Verification code table
	var codeStore services.CodeStore = services.NewMemoryCodeStore()
	if cfg.VerificationBackend == "redis" {
		rdb, err := services.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		codeStore = services.NewRedisCodeStore(rdb)
		slog.Info("verification codes stored in redis", "addr", cfg.RedisAddr)
	}

	var mailer services.Mailer = services.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPassword, cfg.Sender())
	}

	// Services
	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		slog.Error("token service setup failed", "error", err)
		os.Exit(1)
	}
	images := services.NewDiskImageStore(cfg.UploadDir)
	authService := services.NewAuthService(
		store,
		services.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		services.NewVerificationService(codeStore, cfg.VerificationTTL),
		mailer,
		cfg.JWTAccessExpiry,
	)
	profileService := services.NewProfileService(store, images)
	appointmentService := services.NewAppointmentService(store, profileService)
	predictionService := services.NewPredictionService(store, images, classifier.New())

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := routes.NewApp(cfg)
	routes.Setup(app, cfg, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Profile:     handlers.NewProfileHandler(profileService, cfg.MaxUploadBytes),
		Appointment: handlers.NewAppointmentHandler(appointmentService),
		Prediction:  handlers.NewPredictionHandler(predictionService, cfg.MaxUploadBytes),
		Health:      handlers.NewHealthHandler(store),
		Users:       authService,
	})

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

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("server stopped")
}
