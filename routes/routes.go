package routes

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/handlers"
	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

// Options carries everything the router binds. RateLimiter may be nil.
type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
	RateLimiter *middleware.RateLimiter

	Auth         *services.AuthService
	Transactions *services.TransactionService
	Goals        *services.GoalService
	Budgets      *services.BudgetService
	Reports      *services.ReportService

	WS    *handlers.WSHandler
	Debug *handlers.DebugHandler
}

func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware())
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.Envelope{Success: false, Error: "Route not found"})
	})

	router.GET("/health", opts.Debug.Health)

	requireAuth := middleware.AuthMiddleware(opts.Auth)
	api := router.Group("/api")
	{
		SetupAuthRoutes(api, &handlers.AuthHandler{Auth: opts.Auth}, opts.Debug, requireAuth)
		SetupDebugRoutes(api, opts.Debug)

		if opts.WS != nil {
			api.GET("/ws", middleware.WebSocketAuth(opts.Auth), opts.WS.HandleWS)
		}

		protected := api.Group("/")
		protected.Use(requireAuth)
		{
			SetupTransactionRoutes(protected, &handlers.TransactionHandler{Transactions: opts.Transactions})
			SetupGoalRoutes(protected, &handlers.GoalHandler{Goals: opts.Goals})
			SetupBudgetRoutes(protected, &handlers.BudgetHandler{Budgets: opts.Budgets})
			SetupReportRoutes(protected, &handlers.ReportHandler{Reports: opts.Reports})
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After"},
		MaxAge:        86400,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// SetupAuthRoutes binds registration, login and the 2FA flow.
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler, debug *handlers.DebugHandler, requireAuth gin.HandlerFunc) {
	auth := rg.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.GET("/test", debug.JWTConfig)

	auth.GET("/me", requireAuth, h.Me)
	auth.POST("/2fa/setup", requireAuth, h.SetupTOTP)
	auth.POST("/2fa/verify", requireAuth, h.VerifyTOTP)
	auth.POST("/2fa/disable", requireAuth, h.DisableTOTP)
}

func SetupDebugRoutes(rg *gin.RouterGroup, h *handlers.DebugHandler) {
	rg.GET("/debug", h.Info)
	rg.GET("/debug/auth-test", h.AuthTest)
	rg.GET("/debug/db", h.DB)
}

func SetupTransactionRoutes(rg *gin.RouterGroup, h *handlers.TransactionHandler) {
	rg.GET("/transactions", h.List)
	rg.POST("/transactions", h.Create)
	rg.GET("/transactions/:id", h.Get)
	rg.PUT("/transactions/:id", h.Update)
	rg.DELETE("/transactions/:id", h.Delete)
}

func SetupGoalRoutes(rg *gin.RouterGroup, h *handlers.GoalHandler) {
	rg.GET("/goals", h.List)
	rg.POST("/goals", h.Create)
	rg.GET("/goals/:id", h.Get)
	rg.PUT("/goals/:id", h.Update)
	rg.DELETE("/goals/:id", h.Delete)

	// PUT is kept for older clients.
	rg.POST("/goals/:id/contribute", h.Contribute)
	rg.PUT("/goals/:id/contribute", h.Contribute)
}

func SetupBudgetRoutes(rg *gin.RouterGroup, h *handlers.BudgetHandler) {
	rg.GET("/budgets", h.List)
	rg.POST("/budgets", h.Create)
	rg.GET("/budgets/:id", h.Get)
	rg.PUT("/budgets/:id", h.Update)
	rg.DELETE("/budgets/:id", h.Delete)
}

func SetupReportRoutes(rg *gin.RouterGroup, h *handlers.ReportHandler) {
	rg.GET("/reports/summary", h.Summary)
	rg.GET("/reports/recommendations", h.Recommendations)
	rg.GET("/reports/budget-plan", h.BudgetPlan)
}
