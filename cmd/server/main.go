package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-store-pos/internal/ai"
	"go-store-pos/internal/audit"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/catalog"
	"go-store-pos/internal/config"
	"go-store-pos/internal/database"
	"go-store-pos/internal/handlers"
	"go-store-pos/internal/ledger"
	"go-store-pos/internal/logging"
	"go-store-pos/internal/middleware"
	"go-store-pos/internal/notify"
	"go-store-pos/internal/users"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	var sender notify.Sender
	if resendSender, err := notify.NewResendSender(cfg.Notify.ResendAPIKey); err == nil {
		sender = resendSender
	} else {
		logger.Warn("RESEND_API_KEY not set, low stock emails are only logged")
		sender = notify.LogSender{Log: logger.Named("email")}
	}
	notifier := notify.New(notify.Config{
		From:              cfg.Notify.From,
		FallbackRecipient: cfg.Notify.FallbackRecipient,
		DashboardURL:      cfg.Notify.DashboardURL,
		Delay:             cfg.Notify.Delay,
		Workers:           cfg.Notify.Workers,
		QueueSize:         cfg.Notify.QueueSize,
		DrainOnShutdown:   cfg.Notify.DrainOnShutdown,
		Threshold:         cfg.Ledger.LowStockThreshold,
	}, sender, logger.Named("notify"))

	recorder := audit.NewRecorder(db, logger)
	catalogSvc := catalog.NewService(db, notifier, recorder, cfg.Ledger.LowStockThreshold, logger)
	reports := database.NewReports(db, cfg.Ledger.LowStockThreshold)

	h := &handlers.Handler{
		DB:      db,
		Users:   users.NewService(db, tokens, logger),
		Catalog: catalogSvc,
		Ledger: ledger.NewService(db, notifier, recorder, ledger.Options{
			LowStockThreshold: cfg.Ledger.LowStockThreshold,
			StrictStock:       cfg.Ledger.StrictStock,
		}, logger),
		Reports:  reports,
		Notifier: notifier,
		Log:      logger,
	}

	if cfg.AI.GeminiAPIKey != "" {
		assistant, err := ai.NewAssistant(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.Model, catalogSvc, reports, logger.Named("ai"))
		if err != nil {
			return err
		}
		defer func() { _ = assistant.Close() }()
		h.Assistant = assistant
	} else {
		logger.Info("GEMINI_API_KEY not set, assistant disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	limit, err := middleware.RateLimit(cfg.HTTP.RateLimit)
	if err != nil {
		return err
	}
	r.Use(limit)

	if cfg.Auth.AllowRegistration {
		logger.Warn("registration route is OPEN, disable it in production")
	}
	h.Routes(r, tokens, cfg.Auth.AllowRegistration)

	// Serve the built front-end when it is deployed next to the binary.
	if _, err := os.Stat("./web/index.html"); err == nil {
		r.Static("/assets", "./web/assets")
		r.NoRoute(func(c *gin.Context) { c.File("./web/index.html") })
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := notifier.Close(ctx); err != nil {
		logger.Warn("pending low stock alerts dropped", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
	return nil
}
