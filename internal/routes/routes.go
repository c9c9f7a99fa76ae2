package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/handlers"
	"github.com/AurifyAE/Mac-and-Ro/internal/middleware"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// Dependencies are the shared services the routes are built on
type Dependencies struct {
	Sessions    middleware.SessionResolver
	Workspaces  middleware.WorkspaceOpener
	RateLimiter *middleware.RateLimiter
	Config      *config.Config
	Logger      *zap.Logger
}

// Handlers groups the console's HTTP handlers
type Handlers struct {
	Auth          *handlers.AuthHandler
	KYC           *handlers.ReviewHandler
	Requests      *handlers.ReviewHandler
	Branches      *handlers.BranchHandler
	Customers     *handlers.CustomerHandler
	Dashboard     *handlers.DashboardHandler
	Notifications *handlers.NotificationHandler
	Audit         *handlers.AuditHandler
}

// NewHandlers builds every handler from the shared services
func NewHandlers(auth *handlers.AuthHandler, trail handlers.AuditTrail, keepAlive time.Duration, logger *zap.Logger) Handlers {
	return Handlers{
		Auth:          auth,
		KYC:           handlers.NewReviewHandler(models.KindKYC, logger),
		Requests:      handlers.NewReviewHandler(models.KindRequest, logger),
		Branches:      handlers.NewBranchHandler(logger),
		Customers:     handlers.NewCustomerHandler(logger),
		Dashboard:     handlers.NewDashboardHandler(logger),
		Notifications: handlers.NewNotificationHandler(keepAlive, logger),
		Audit:         handlers.NewAuditHandler(trail, logger),
	}
}

// RegisterRoutes registers all console routes
func RegisterRoutes(router *gin.Engine, deps Dependencies, h Handlers) {
	cfg := deps.Config

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecureHeadersMiddleware(middleware.DefaultSecureHeadersConfig(cfg.Security, cfg.IsProduction())))
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.IPRateLimiterMiddleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := middleware.AuthMiddleware(deps.Sessions, cfg.Session.CookieName, deps.Logger)
	withWorkspace := middleware.WorkspaceMiddleware(deps.Workspaces, deps.Logger)

	authGroup := router.Group("/api/auth")
	{
		authGroup.GET("/options", h.Auth.Options)
		if deps.RateLimiter != nil {
			authGroup.POST("/login", deps.RateLimiter.AuthRateLimiterMiddleware(), h.Auth.Login)
		} else {
			authGroup.POST("/login", h.Auth.Login)
		}
		authGroup.POST("/logout", requireAuth, h.Auth.Logout)
		authGroup.GET("/me", requireAuth, h.Auth.Me)
	}

	api := router.Group("/api")
	api.Use(requireAuth, withWorkspace)
	{
		registerReview(api.Group("/kyc"), h.KYC)
		registerReview(api.Group("/requests"), h.Requests)

		api.GET("/swapped", h.Customers.ListSwapped)
		api.GET("/customers", h.Customers.ListCustomers)
		api.GET("/customers/search", h.Customers.SearchCustomers)
		api.GET("/customers/:id", h.Customers.GetCustomer)
		api.GET("/logs", h.Customers.ListLogs)
		api.GET("/dashboard", h.Dashboard.Summary)

		consoleGroup := api.Group("/console")
		{
			consoleGroup.GET("/events", h.Notifications.Stream)
			consoleGroup.GET("/notifications", h.Notifications.Active)
			consoleGroup.DELETE("/notifications/:id", h.Notifications.Dismiss)
			consoleGroup.GET("/audit", h.Audit.Decisions)
			consoleGroup.GET("/audit/sessions", middleware.SuperAdminMiddleware(), h.Audit.Sessions)
		}

		superAdmin := api.Group("", middleware.SuperAdminMiddleware())
		{
			branches := superAdmin.Group("/branches")
			branches.GET("", h.Branches.ListBranches)
			branches.POST("", h.Branches.CreateBranch)
			branches.GET("/:id", h.Branches.GetBranch)
			branches.PUT("/:id", h.Branches.UpdateBranch)
			branches.DELETE("/:id", h.Branches.DeleteBranch)
			branches.GET("/:id/charges", h.Branches.GetCharges)
			branches.PUT("/:id/charges", h.Branches.UpdateCharges)

			admins := superAdmin.Group("/branch-admins")
			admins.GET("", h.Branches.ListAdmins)
			admins.POST("", h.Branches.CreateAdmin)
			admins.GET("/:id", h.Branches.GetAdmin)
			admins.PUT("/:id", h.Branches.UpdateAdmin)
			admins.DELETE("/:id", h.Branches.DeleteAdmin)
		}
	}
}

func registerReview(g *gin.RouterGroup, h *handlers.ReviewHandler) {
	g.GET("", h.List)
	g.POST("/load", h.Load)
	g.GET("/:id", h.Get)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/reverse", h.Reverse)
}
