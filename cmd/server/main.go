// Package main is the entry point for the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spotus/internal/config"
	"spotus/internal/handlers"
	"spotus/internal/logging"
	"spotus/internal/metrics"
	"spotus/internal/repositories"
	"spotus/internal/repositories/cache"
	"spotus/internal/routes"
	"spotus/internal/services/auth"
	"spotus/internal/services/gateway"
	"spotus/internal/services/paypal"
	"spotus/internal/services/purchase"
	"spotus/internal/utils"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logging.Setup(cfg.Debug)

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Settings) error {
	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Warn("Failed to close database connection", slog.Any("err", err))
		}
	}()

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	cacheService := cache.NewCacheService(redisClient, cfg.Redis.CacheTTL)
	defer func() {
		if err := cacheService.Close(); err != nil {
			slog.Warn("Failed to close Redis connection", slog.Any("err", err))
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cacheService.HealthCheck(pingCtx); err != nil {
		// Checkouts fail closed without the lock, so Redis is required.
		return err
	}

	gw, err := newGateway(cfg.Gateway)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	userRepo := repositories.NewUserRepository(db, cacheService)
	donationRepo := repositories.NewDonationRepository(db)
	purchaseRepo := repositories.NewPurchaseRepository(db)
	notificationRepo := repositories.NewPaypalNotificationRepository(db)

	purchaseService := purchase.NewService(
		userRepo,
		donationRepo,
		purchaseRepo,
		gw,
		cacheService,
		purchase.Config{
			GatewayTimeout: cfg.Gateway.Timeout,
			LockTTL:        cfg.CheckoutLockTTL,
		},
		collector,
	)

	var verifier paypal.Verifier = paypal.TrustingVerifier{}
	if cfg.Paypal.Verify {
		verifier = paypal.NewHTTPVerifier(cfg.Paypal.VerifyURL, cfg.Gateway.Timeout)
	} else {
		slog.Warn("PayPal IPN verification disabled")
	}
	var lookup paypal.TransactionLookup
	if cfg.Paypal.IdentityToken != "" {
		lookup = paypal.NewPDTLookup(cfg.Paypal.PDTURL, cfg.Paypal.IdentityToken, cfg.Gateway.Timeout)
	} else {
		slog.Info("PayPal PDT not configured, returns wait for the IPN")
	}
	paypalService := paypal.NewService(
		purchaseService,
		purchaseRepo,
		notificationRepo,
		verifier,
		lookup,
		cacheService,
		paypal.Config{
			ReceiverEmail: cfg.Paypal.ReceiverEmail,
			LockTTL:       cfg.CheckoutLockTTL,
		},
	)

	authService := auth.NewService(userRepo, utils.TokenSecrets{
		Access:  cfg.JWTSecret,
		Refresh: cfg.RefreshSecret,
	})

	app := fiber.New(fiber.Config{
		AppName:      "spotus",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Gateway.Timeout + 10*time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Auth:      authService,
		Purchases: purchaseService,
		Paypal:    paypalService,
		Metrics:   collector,
		Health: map[string]handlers.Check{
			"database": sqlDB.PingContext,
			"redis":    cacheService.HealthCheck,
		},
		Pool: cacheService,
		Cookies: handlers.CookieConfig{
			Domain: cfg.DefaultHost,
			Secure: cfg.Env == "production",
		},
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server",
			slog.String("port", cfg.Port),
			slog.String("env", cfg.Env),
			slog.String("gateway", cfg.Gateway.Mode),
			slog.Bool("gateway_test_mode", gw.TestMode()))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("Shutting down", slog.String("signal", sig.String()))
	}

	// In-flight checkouts get the full gateway timeout to finish.
	return app.ShutdownWithTimeout(cfg.Gateway.Timeout + 5*time.Second)
}

func newGateway(cfg config.GatewaySettings) (gateway.Gateway, error) {
	switch strings.ToLower(cfg.Mode) {
	case config.GatewayModeStripe:
		if cfg.StripeKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required when GATEWAY_MODE=stripe")
		}
		return gateway.NewStripeGateway(gateway.StripeConfig{
			SecretKey: cfg.StripeKey,
			Timeout:   cfg.Timeout,
			TestMode:  cfg.TestMode,
			URL:       cfg.StripeURL,
		}), nil
	case config.GatewayModeBogus:
		if config.IsProduction() {
			return nil, errors.New("the bogus gateway cannot run in production")
		}
		return gateway.NewBogusGateway(cfg.TestMode), nil
	default:
		return nil, errors.New("unknown GATEWAY_MODE " + cfg.Mode)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message)
	}
	slog.ErrorContext(c.UserContext(), "Unhandled error", slog.String("path", c.Path()), slog.Any("err", err))
	return response.ServerError(c, "Internal server error")
}
