package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/config"
	"github.com/eppla/storefront/internal/app"
	"github.com/eppla/storefront/internal/assistant"
	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/handlers"
	"github.com/eppla/storefront/internal/middleware"
	"github.com/eppla/storefront/internal/sweepers"
	"github.com/eppla/storefront/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = *logger

	logger.Info().Msg("Starting storefront")

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry disabled")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	services, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// startup hydration; the server still starts on failure so an operator
	// can ingest a feed
	if err := services.Catalog.Hydrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Catalog hydration failed")
	}

	advisor := newAdvisor(ctx, cfg.Assistant, logger)

	carts := cart.NewRegistry()
	conversations := assistant.NewConversations(advisor.Config().HistoryLimit)
	sessionSweeper := sweepers.NewSessionSweeper(logger, cfg.Cart.SweepInterval, cfg.Cart.IdleTTL,
		sweepers.Target{Name: "carts", Evicter: carts},
		sweepers.Target{Name: "conversations", Evicter: conversations},
	)
	go sessionSweeper.Start(ctx)

	h := handlers.New(handlers.Deps{
		Catalog:       services.Catalog,
		Pipeline:      services.Pipeline,
		Carts:         carts,
		Checkout:      checkout.NewService(newGateway(cfg.Checkout, logger), cfg.CheckoutServiceConfig()),
		Advisor:       advisor,
		Conversations: conversations,
		FeedURL:       cfg.Feed.URL,
	})

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("")
	public.Use(middleware.RateLimitMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.PublicRequestsPerSecond,
		BurstSize:         cfg.RateLimit.PublicBurst,
	}))
	h.Register(public)

	if cfg.Server.InternalAPIKey == "" {
		logger.Warn().Msg("INTERNAL_API_KEY not set; admin API disabled")
	}
	admin := router.Group("/internal/admin")
	admin.Use(middleware.InternalAuthMiddleware(cfg.Server.InternalAPIKey))
	admin.Use(middleware.ServiceRateLimitMiddleware(cfg.RateLimit.AdminRequestsPerSecond, cfg.RateLimit.AdminBurst))
	h.RegisterAdmin(admin)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	sessionSweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry flush failed")
	}

	logger.Info().Msg("Server exited")
}

// newGateway uses Stripe when a secret key is configured
func newGateway(cfg config.CheckoutConfig, logger *zerolog.Logger) checkout.Gateway {
	if cfg.StripeSecretKey == "" {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set; using simulated checkout")
		return checkout.NewSimulatedGateway()
	}
	return checkout.NewStripeGateway(cfg.StripeSecretKey, nil)
}

// newAdvisor uses Gemini when an API key is configured
func newAdvisor(ctx context.Context, cfg assistant.Config, logger *zerolog.Logger) *assistant.Advisor {
	if cfg.APIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set; assistant disabled")
		return assistant.NewAdvisor(nil, cfg)
	}
	gen, err := assistant.NewGemini(ctx, cfg.APIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Gemini client unavailable; assistant disabled")
		return assistant.NewAdvisor(nil, cfg)
	}
	return assistant.NewAdvisor(gen, cfg)
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "storefront").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
