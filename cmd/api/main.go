package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emprendigo/platform/internal/api/router"
	"github.com/emprendigo/platform/internal/auth"
	"github.com/emprendigo/platform/internal/bookings"
	"github.com/emprendigo/platform/internal/calcom"
	appconfig "github.com/emprendigo/platform/internal/config"
	"github.com/emprendigo/platform/internal/conversation"
	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/db"
	"github.com/emprendigo/platform/internal/llm"
	"github.com/emprendigo/platform/internal/observability/metrics"
	"github.com/emprendigo/platform/internal/payments"
	"github.com/emprendigo/platform/internal/services"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/internal/whatsapp"
	"github.com/emprendigo/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting emprendigo API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() { _ = rdb.Close() }()

	llmClient, err := llm.NewFromConfig(ctx, cfg.LLMProvider, cfg.LLMModel, cfg.GeminiAPIKey)
	if err != nil {
		logger.Error("failed to initialize llm client", "error", err)
		os.Exit(1)
	}

	// Provider clients; every tenant brings its own credentials per call.
	calcomClient := calcom.NewClient(cfg.CalComBaseURL, cfg.ProviderTimeout, logger)
	calcomAdapter := calcom.NewAdapter(calcomClient)
	whatsappClient := whatsapp.NewClient(cfg.WhatsAppBaseURL, cfg.ProviderTimeout, logger)

	// Repositories.
	tenantsRepo := tenants.NewRepository(pool)
	authRepo := auth.NewRepository(pool)
	servicesRepo := services.NewRepository(pool)
	customersRepo := customers.NewRepository(pool)
	bookingsRepo := bookings.NewRepository(pool)
	conversationStore := conversation.NewStore(pool)

	// Domain services.
	signer := auth.NewTokenSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	tenantsService := tenants.NewService(tenantsRepo, calcomAdapter, whatsappClient, logger)

	bookingMetrics := metrics.NewBookingMetrics(nil)
	paymentMetrics := metrics.NewPaymentMetrics(nil)
	bookingsService := bookings.NewService(bookingsRepo, servicesRepo, customersRepo, tenantsRepo, calcomAdapter, bookingMetrics, logger)
	paymentsService := payments.NewService(bookingsRepo, paymentMetrics, logger)

	checkpoints := conversation.NewCheckpointStore(rdb, cfg.AgentStateTTL)
	locker := conversation.NewRedisLocker(rdb, cfg.AgentTurnLimit)
	agent := conversation.NewAgent(llmClient, servicesRepo, logger)
	coordinator := conversation.NewCoordinator(
		tenantsRepo, customersRepo, conversationStore, checkpoints, locker,
		agent, whatsappClient, cfg.AgentTurnLimit, logger)

	// Handlers.
	authHandler := auth.NewHandler(authRepo, tenantsRepo, signer, logger)
	tenantsHandler := tenants.NewHandler(tenantsRepo, tenantsService, logger)
	servicesHandler := services.NewHandler(servicesRepo, logger)
	customersHandler := customers.NewHandler(customersRepo, logger)
	bookingsHandler := bookings.NewHandler(bookingsService, logger)
	paymentsHandler := payments.NewHandler(paymentsService, logger)
	conversationHandler := conversation.NewHandler(
		conversationStore, coordinator, tenantsRepo, customersRepo, whatsappClient, cfg.WhatsAppVerifyToken, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		TokenSigner:         signer,
		AuthHandler:         authHandler,
		TenantsHandler:      tenantsHandler,
		ServicesHandler:     servicesHandler,
		CustomersHandler:    customersHandler,
		BookingsHandler:     bookingsHandler,
		PaymentsHandler:     paymentsHandler,
		ConversationHandler: conversationHandler,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
