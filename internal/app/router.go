// internal/app/router.go
package app

import (
	"net/http"
	"time"

	authHandler "subpass-service/internal/handlers/auth"
	dashboardHandler "subpass-service/internal/handlers/dashboard"
	planHandler "subpass-service/internal/handlers/plans"
	subscriptionHandler "subpass-service/internal/handlers/subscription"
	walletHandler "subpass-service/internal/handlers/wallet"
	wsHandler "subpass-service/internal/handlers/websocket"
	"subpass-service/internal/metrics"
	"subpass-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	PlanHandler         *planHandler.PlanHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	WalletHandler       *walletHandler.WalletHandler
	DashboardHandler    *dashboardHandler.DashboardHandler
	WSHandler           *wsHandler.WSHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimit           *middleware.RateLimitMiddleware
}

func SetupRouter(r *gin.Engine, m *metrics.Metrics, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health / Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.Serve)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	authPublic.Use(h.RateLimit.Limit(20, time.Minute))
	{
		authPublic.POST("/session", h.AuthHandler.CreateSession)
		authPublic.POST("/admin/login", h.AuthHandler.AdminLogin)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.GET("/sessions", h.AuthHandler.ListSessions)
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
	}

	// ==================== Plans ====================
	plans := api.Group("/plans")
	{
		// Public browse endpoints
		plans.GET("", h.PlanHandler.ListPlans)
		plans.GET("/:id", h.PlanHandler.GetPlan)

		plansAuth := plans.Group("")
		plansAuth.Use(h.AuthMiddleware.Auth(), h.RateLimit.Limit(60, time.Minute))
		{
			plansAuth.POST("", h.PlanHandler.CreatePlan)
			plansAuth.PATCH("/:id", h.PlanHandler.UpdatePlan)
			plansAuth.POST("/:id/activate", h.PlanHandler.ActivatePlan)
			plansAuth.POST("/:id/deactivate", h.PlanHandler.DeactivatePlan)
			plansAuth.GET("/:id/subscribers", h.PlanHandler.ListSubscribers)

			plansAuth.POST("/:id/subscribe", h.SubscriptionHandler.Subscribe)
			plansAuth.POST("/:id/renew", h.SubscriptionHandler.Renew)
			plansAuth.POST("/:id/cancel", h.SubscriptionHandler.Cancel)
			plansAuth.GET("/:id/subscription", h.SubscriptionHandler.GetSubscription)
		}
	}

	// ==================== Subscriptions / passes ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.GET("", h.SubscriptionHandler.ListMySubscriptions)
		subscriptions.GET("/:id", h.SubscriptionHandler.GetSubscription)
	}
	api.GET("/passes/:tokenId/owner", h.SubscriptionHandler.GetPassOwner)

	// ==================== Wallet ====================
	wallet := api.Group("/wallet")
	wallet.Use(h.AuthMiddleware.Auth(), h.RateLimit.Limit(60, time.Minute))
	{
		wallet.GET("", h.WalletHandler.GetWallet)
		wallet.GET("/balances", h.WalletHandler.GetBalances)
		wallet.GET("/allowances", h.WalletHandler.GetAllowances)
		wallet.POST("/approve", h.WalletHandler.Approve)
		wallet.POST("/transfer", h.WalletHandler.Transfer)
		wallet.GET("/payments", h.WalletHandler.ListPayments)
	}

	// ==================== Dashboards ====================
	dashboard := api.Group("/dashboard")
	dashboard.Use(h.AuthMiddleware.Auth())
	{
		dashboard.GET("", h.DashboardHandler.Overview)
		dashboard.GET("/subscriber", h.DashboardHandler.SubscriberDashboard)
		dashboard.GET("/creator", h.DashboardHandler.CreatorDashboard)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole("admin"))
	{
		admin.POST("/mint", h.WalletHandler.Mint)
		admin.GET("/stats", h.DashboardHandler.PlatformStats)
	}
}
