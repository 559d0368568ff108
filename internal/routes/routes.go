// Package routes defines the API routing configuration.
package routes

import (
	"strconv"
	"time"

	"spotus/internal/handlers"
	"spotus/internal/metrics"
	"spotus/internal/middleware"
	"spotus/internal/models"
	"spotus/internal/services/auth"
	"spotus/internal/services/paypal"
	"spotus/internal/services/purchase"
	"spotus/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Dependencies are the services the routes are served from.
type Dependencies struct {
	Auth      auth.Service
	Purchases purchase.Service
	Paypal    paypal.Service
	Metrics   *metrics.Collector
	Health    map[string]handlers.Check
	Pool      handlers.PoolStatser
	Cookies   handlers.CookieConfig
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Health, deps.Pool)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Cookies)
	purchaseHandler := handlers.NewPurchaseHandler(deps.Purchases)
	paypalHandler := handlers.NewPaypalHandler(deps.Paypal)
	authMiddleware := middleware.NewAuthMiddleware(deps.Auth)

	app.Get("/health", healthHandler.HealthCheck)
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	api := app.Group("/api")

	// Public routes
	api.Post("/login", loginLimiter(), authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)
	// PayPal calls this directly; it carries no user session.
	api.Post("/myspot/purchases/paypal_ipn", paypalHandler.IPN)

	authenticated := api.Group("/", authMiddleware.Handler)
	authenticated.Post("/logout", authHandler.LogoutUser)
	authenticated.Post("/change-password", authHandler.ChangePassword)

	authenticated.Get("/purchase", middleware.HasPermission(models.PermissionPurchaseRead), purchaseHandler.Summary)

	myspot := authenticated.Group("/myspot")
	myspot.Get("/donations", middleware.HasPermission(models.PermissionDonationRead), purchaseHandler.UnpaidDonations)

	purchases := myspot.Group("/purchases")
	// Registered before /:id so the literal path wins.
	purchases.Get("/paypal_return", middleware.HasPermission(models.PermissionPurchaseWrite), paypalHandler.Return)
	purchases.Post("/paypal_return", middleware.HasPermission(models.PermissionPurchaseWrite), paypalHandler.Return)
	purchases.Get("/", middleware.HasPermission(models.PermissionPurchaseRead), purchaseHandler.List)
	purchases.Post("/", middleware.HasPermission(models.PermissionPurchaseWrite), checkoutLimiter(), purchaseHandler.Create)
	purchases.Get("/:id", middleware.HasPermission(models.PermissionPurchaseRead), purchaseHandler.Get)

	admin := authenticated.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Get("/cache/stats", healthHandler.CacheStats)
}

func loginLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

// checkoutLimiter throttles card attempts per user.
func checkoutLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, err := utils.GetUserClaims(c); err == nil {
				return "checkout:" + strconv.FormatUint(uint64(claims.UserID), 10)
			}
			return c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": "Too many requests. Please try again later.",
	})
}
