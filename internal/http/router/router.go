package router

import (
	"github.com/gin-gonic/gin"

	"github.com/taskbridge/backend/internal/config"
	"github.com/taskbridge/backend/internal/http/handlers"
	"github.com/taskbridge/backend/internal/http/middleware"
	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/service"
)

// Handlers собирает все HTTP хэндлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Job          *handlers.JobHandler
	Ledger       *handlers.LedgerHandler
	Billing      *handlers.BillingHandler
	Webhook      *handlers.WebhookHandler
	Review       *handlers.ReviewHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
	Seed         *handlers.SeedHandler
}

// SetupRouter настраивает маршруты и middleware.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")

	if h.Seed != nil && cfg.Env == "development" {
		api.POST("/dev/seed", h.Seed.Seed)
	}

	// Webhook провайдера: без авторизации, подпись проверяет хэндлер.
	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod))
	{
		webhooks.POST("/payments", h.Webhook.Handle)
	}

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	// Публичные маршруты
	api.GET("/jobs", h.Job.ListJobs)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), h.Job.GetJob)
	api.GET("/jobs/:id/reviews", middleware.UUIDValidator("id"), h.Review.ListJobReviews)
	api.GET("/users/:id", middleware.UUIDValidator("id"), h.Profile.GetUser)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), h.Review.ListUserReviews)
	api.GET("/billing/plans", h.Billing.ListPlans)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/users/me", h.Profile.Me)

		protected.POST("/jobs", middleware.RequireRole(models.RoleCustomer, models.RoleAdmin), h.Job.CreateJob)
		protected.GET("/jobs/my", h.Job.ListMyJobs)
		protected.POST("/jobs/:id/applications", middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleWorker, models.RoleAdmin), h.Job.Apply)
		protected.GET("/jobs/:id/applications", middleware.UUIDValidator("id"), h.Job.ListApplications)
		protected.POST("/jobs/:id/applications/:appID/accept",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("appID"), h.Job.AcceptApplication)
		protected.POST("/jobs/:id/start", middleware.UUIDValidator("id"), h.Job.StartWork)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), h.Job.Complete)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), h.Job.Cancel)
		protected.GET("/jobs/:id/history", middleware.UUIDValidator("id"), h.Job.ListHistory)
		protected.GET("/applications/my", h.Job.ListMyApplications)

		protected.POST("/jobs/:id/reviews", middleware.UUIDValidator("id"), h.Review.SubmitReview)
		protected.GET("/jobs/:id/can-review", middleware.UUIDValidator("id"), h.Review.CanLeaveReview)

		protected.GET("/ledger/balance", h.Ledger.GetBalance)
		protected.GET("/ledger/entries", h.Ledger.ListEntries)

		protected.POST("/billing/purchases", h.Billing.InitiatePurchase)
		protected.GET("/billing/purchases", h.Billing.ListPurchases)
		protected.GET("/billing/subscription", h.Billing.GetSubscription)

		protected.GET("/notifications", h.Notification.List)
		protected.GET("/notifications/unread-count", h.Notification.CountUnread)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
		protected.POST("/notifications/read-all", h.Notification.MarkAllAsRead)
	}

	return r
}
