// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/handlers"
	"github.com/javajoker/botscript-backend/internal/metrics"
	"github.com/javajoker/botscript-backend/internal/middleware"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/services"
)

// Dependencies are the backends the API is built on. Notifier may be nil.
type Dependencies struct {
	Config    *config.Config
	Store     repository.Store
	Cache     cache.Cache
	Publisher events.Publisher
	Payments  services.PaymentProcessor
	Storage   *services.StorageService
	Notifier  *services.NotificationService

	// HealthChecks are probed by /health in addition to the store.
	HealthChecks map[string]handlers.Pinger
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Initialize services
	authService := services.NewAuthService(deps.Store, deps.Cache, cfg)
	productService := services.NewProductService(deps.Store, deps.Storage)
	checkoutService := services.NewCheckoutService(deps.Store, deps.Payments, deps.Cache, deps.Publisher, deps.Notifier, cfg.Payment)
	orderService := services.NewOrderService(deps.Store, deps.Payments, deps.Publisher, deps.Notifier)
	licenseService := services.NewLicenseService(deps.Store, deps.Storage)
	favoriteService := services.NewFavoriteService(deps.Store)
	reviewService := services.NewReviewService(deps.Store)
	userService := services.NewUserService(deps.Store)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, deps.Storage)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	userHandler := handlers.NewUserHandler(userService)

	checks := map[string]handlers.Pinger{"store": deps.Store}
	for name, check := range deps.HealthChecks {
		checks[name] = check
	}
	healthHandler := handlers.NewHealthHandler(checks)

	authRequired := middleware.AuthRequired(authService)
	optionalAuth := middleware.OptionalAuth(authService)
	sellerOnly := middleware.RequireRole(models.UserTypeSeller)

	limits := cfg.Server.RateLimit
	authLimit, uploadLimit := passThrough, passThrough
	if limits.Enabled {
		authLimit = middleware.PerMinute(limits.AuthPerMinute).Middleware()
		uploadLimit = middleware.PerMinute(limits.UploadPerMinute).Middleware()
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(cfg.Frontend))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	if limits.Enabled {
		r.Use(middleware.NewRateLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst).Middleware())
	}
	r.Use(middleware.AuditLogMiddleware(deps.Store))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(authLimit)
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/signout", authRequired, authHandler.SignOut)
			auth.GET("/session", authRequired, authHandler.Session)
		}

		v1.GET("/categories", productHandler.Categories)

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.Catalog)
			products.GET("/:id", optionalAuth, productHandler.GetProduct)
			products.GET("/:id/reviews", reviewHandler.ListReviews)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(authRequired)
			{
				protected.POST("/:id/checkout", checkoutHandler.Checkout)
				protected.POST("/:id/reviews", reviewHandler.CreateReview)
				protected.POST("", sellerOnly, productHandler.CreateProduct)
				protected.PUT("/:id", sellerOnly, productHandler.UpdateProduct)
				protected.POST("/uploads", sellerOnly, uploadLimit, productHandler.UploadFiles)
			}
		}

		// Seller dashboard
		seller := v1.Group("/seller")
		seller.Use(authRequired, sellerOnly)
		{
			seller.GET("/products", productHandler.SellerProducts)
			seller.GET("/stats", productHandler.SellerStats)
		}

		// Buyer dashboard
		orders := v1.Group("/orders")
		orders.Use(authRequired)
		{
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/refund", sellerOnly, orderHandler.RefundOrder)
		}

		licenses := v1.Group("/licenses")
		licenses.Use(authRequired)
		{
			licenses.GET("", licenseHandler.GetUserLicenses)
			licenses.GET("/:id/download", licenseHandler.Download)
		}

		favorites := v1.Group("/favorites")
		favorites.Use(authRequired)
		{
			favorites.GET("", favoriteHandler.List)
			favorites.POST("/:product_id", favoriteHandler.Add)
			favorites.DELETE("/:product_id", favoriteHandler.Remove)
		}

		// User routes
		v1.GET("/users/:id", userHandler.GetPublicProfile)
		v1.PUT("/profile", authRequired, userHandler.UpdateProfile)
	}

	return r
}

func passThrough(c *gin.Context) { c.Next() }
