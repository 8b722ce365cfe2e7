// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/handlers"
	"github.com/javajoker/verdict-cms/internal/metrics"
	"github.com/javajoker/verdict-cms/internal/middleware"
	"github.com/javajoker/verdict-cms/internal/models"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Product      *handlers.ProductHandler
	Category     *handlers.CategoryHandler
	Admin        *handlers.AdminHandler
	Notification *handlers.NotificationHandler
	User         *handlers.UserHandler
}

// Initialize builds the HTTP engine. The returned stop function ends the
// rate limiters' background cleanup.
func Initialize(h Handlers, cfg config.ServerConfig, version string, log logrus.FieldLogger) (*gin.Engine, func()) {
	generalLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	authLimiter := middleware.NewRateLimiter(rate.Every(12*time.Second), 5)     // 5 logins per minute
	uploadLimiter := middleware.NewRateLimiter(rate.Every(6*time.Second), 10) // 10 uploads per minute
	stop := func() {
		generalLimiter.Stop()
		authLimiter.Stop()
		uploadLimiter.Stop()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	editors := middleware.RoleRequired(models.UserRoleAdmin, models.UserRoleEditor)
	staff := middleware.RoleRequired(models.UserRoleAdmin, models.UserRoleEditor, models.UserRoleReviewer)

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(generalLimiter.Middleware())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authLimiter.Middleware(), h.Auth.Login)
			auth.GET("/me", middleware.AuthRequired(), h.Auth.GetCurrentUser)
		}

		products := v1.Group("/products")
		products.Use(middleware.AuthRequired())
		{
			products.GET("", staff, h.Product.GetProducts)
			products.GET("/:id", staff, h.Product.GetProduct)
			products.POST("", editors, h.Product.CreateProduct)
			products.PUT("/:id", editors, h.Product.UpdateProduct)
			products.DELETE("/:id", middleware.AdminRequired(), h.Product.DeleteProduct)
			products.POST("/validate", staff, h.Product.ValidateProduct)
			products.POST("/:id/validate", staff, h.Product.ValidateProduct)
			products.GET("/:id/versions", staff, h.Product.GetVersions)
			products.GET("/:id/versions/verify", staff, h.Product.VerifyVersions)
			products.POST("/:id/evidence", editors, uploadLimiter.Middleware(), h.Product.UploadEvidence)
			products.GET("/:id/evidence/:kind", staff, h.Product.GetEvidenceLink)
		}

		categories := v1.Group("/categories")
		categories.Use(middleware.AuthRequired())
		{
			categories.GET("", staff, h.Category.GetCategories)
			categories.GET("/:id", staff, h.Category.GetCategory)
			categories.POST("", middleware.AdminRequired(), h.Category.CreateCategory)
			categories.PUT("/:id", middleware.AdminRequired(), h.Category.UpdateCategory)
		}

		brands := v1.Group("/brands")
		brands.Use(middleware.AuthRequired())
		{
			brands.GET("", staff, h.Category.GetBrands)
			brands.GET("/:id", staff, h.Category.GetBrand)
			brands.POST("", editors, h.Category.CreateBrand)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired(), staff)
		{
			notifications.GET("", h.Notification.GetNotifications)
			notifications.POST("/:id/read", h.Notification.MarkRead)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", h.Admin.GetDashboardStats)
			admin.GET("/audit-logs", h.Admin.GetAuditLogs)

			admin.GET("/users", h.User.GetUsers)
			admin.GET("/users/:id", h.User.GetUser)
			admin.POST("/users", h.User.CreateUser)
			admin.PATCH("/users/:id", h.User.UpdateUser)
		}
	}

	return r, stop
}
