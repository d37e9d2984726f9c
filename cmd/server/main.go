// Package main is the entry point for the Mecanix API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"mecanix/internal/domain/auth"
	"mecanix/internal/domain/budgets"
	"mecanix/internal/domain/executions"
	"mecanix/internal/domain/orders"
	"mecanix/internal/domain/stock"
	"mecanix/internal/events"
	v1 "mecanix/internal/infrastructure/http/v1"
	"mecanix/internal/infrastructure/storage/postgres"
	"mecanix/internal/lifecycle"
	"mecanix/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting mecanix server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepo(txManager)
	executionRepo := postgres.NewExecutionRepo(txManager)
	budgetRepo := postgres.NewBudgetRepo(txManager)
	stockRepo := postgres.NewStockRepo(txManager)

	// --- Domain services ---
	bus := events.NewBus()

	stockService := stock.NewService(stockRepo, txManager)
	orderService := orders.NewService(orderRepo, txManager, bus, orders.NewRoleGate())
	budgetService := budgets.NewService(budgetRepo, orderService, stockService, txManager, bus)
	executionService := executions.NewService(executionRepo, txManager, bus)

	// Subscribes the lifecycle handlers on the bus.
	lifecycle.NewOrchestrator(bus, orderService, budgetService, executionService)

	// --- Auth ---
	jwtValidator := auth.NewJWTValidator(
		mustEnv("JWT_SECRET"),
		getEnv("JWT_ISSUER", ""),
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		TokenValidator:   jwtValidator,
		OrderService:     orderService,
		ExecutionService: executionService,
		BudgetService:    budgetService,
		StockService:     stockService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
