// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"mecanix/internal/domain/budgets"
	"mecanix/internal/domain/executions"
	"mecanix/internal/domain/orders"
	"mecanix/internal/domain/stock"
	"mecanix/internal/infrastructure/http/v1/handlers"
	"mecanix/internal/infrastructure/http/v1/middleware"
	"mecanix/internal/infrastructure/storage/postgres"
	"mecanix/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	// TokenValidator for bearer token validation
	TokenValidator middleware.TokenValidator

	OrderService     *orders.Service
	ExecutionService *executions.Service
	BudgetService    *budgets.Service
	StockService     *stock.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	ordersHandler := handlers.NewOrdersHandler(base, cfg.OrderService)
	executionsHandler := handlers.NewExecutionsHandler(base, cfg.ExecutionService)
	budgetsHandler := handlers.NewBudgetsHandler(base, cfg.BudgetService)
	stockHandler := handlers.NewStockHandler(base, cfg.StockService)

	// API v1 (JWT required)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.TokenValidator))
	{
		ordersGroup := v1.Group("/orders")
		{
			ordersGroup.POST("", ordersHandler.Create)
			ordersGroup.GET("", ordersHandler.List)
			ordersGroup.GET("/:id", ordersHandler.Get)
			ordersGroup.POST("/:id/status", ordersHandler.ChangeStatus)
			ordersGroup.GET("/:id/budget", budgetsHandler.GetByOrder)
			ordersGroup.GET("/:id/execution", executionsHandler.GetByOrder)
		}

		executionsGroup := v1.Group("/executions")
		{
			executionsGroup.GET("", executionsHandler.List)
			executionsGroup.GET("/:id", executionsHandler.Get)
			executionsGroup.POST("/:id/assign", executionsHandler.AssignMechanic)
			executionsGroup.POST("/:id/start", executionsHandler.Start)
			executionsGroup.POST("/:id/complete", executionsHandler.Complete)
		}

		budgetsGroup := v1.Group("/budgets")
		{
			budgetsGroup.GET("", budgetsHandler.List)
			budgetsGroup.GET("/:id", budgetsHandler.Get)
			budgetsGroup.POST("/:id/items", budgetsHandler.AddItem)
			budgetsGroup.DELETE("/:id/items/:itemId", budgetsHandler.RemoveItem)
			budgetsGroup.POST("/:id/send", budgetsHandler.Send)
			budgetsGroup.POST("/:id/approve", budgetsHandler.Approve)
			budgetsGroup.POST("/:id/reject", budgetsHandler.Reject)
			budgetsGroup.POST("/:id/regenerate", budgetsHandler.Regenerate)
		}

		stockGroup := v1.Group("/stock")
		{
			stockGroup.POST("/items", stockHandler.Register)
			stockGroup.GET("/items", stockHandler.List)
			stockGroup.GET("/items/:id", stockHandler.Get)
			stockGroup.PUT("/items/:id", stockHandler.Update)
			stockGroup.DELETE("/items/:id", stockHandler.Delete)
			stockGroup.POST("/items/:id/restore", stockHandler.Restore)
			stockGroup.POST("/items/:id/movements", stockHandler.ApplyMovement)
			stockGroup.GET("/items/:id/movements", stockHandler.Movements)
			stockGroup.PUT("/movements/:id", stockHandler.AmendMovement)
		}
	}

	return router
}
