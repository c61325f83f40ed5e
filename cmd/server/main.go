package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/database"
	"github.com/marminbh/aggregation-connector/internal/handlers"
	"github.com/marminbh/aggregation-connector/internal/logger"
	"github.com/marminbh/aggregation-connector/internal/routes"
	"github.com/marminbh/aggregation-connector/internal/service"
)

func main() {
	if err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to PostgreSQL and apply migrations
	db, err := database.Connect(&cfg.Database, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := database.RunMigrations(&cfg.Database, logger.Logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Wire the dependency graph
	svc := service.NewService(cfg, db, logger.Logger)

	// Ensure every service account has its event subscriptions
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := svc.Bootstrap.Run(bootstrapCtx); err != nil {
		cancelBootstrap()
		logger.Fatal("Failed to bootstrap subscriptions", zap.Error(err))
	}
	cancelBootstrap()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Aggregation Connector",
		ServerHeader: "Fiber",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Hub-Signature",
	}))

	// Setup routes
	healthHandler := handlers.NewHealthHandler(db)
	hooksHandler := handlers.NewHooksHandler(svc.Dispatcher, logger.Logger)
	routes.SetupRoutes(app, healthHandler, hooksHandler)

	// Start server in a goroutine
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	// Let in-flight workflows report their terminal status
	svc.Dispatcher.Wait()

	logger.Info("Server stopped")
}
