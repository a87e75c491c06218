package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/skyrisk/weatherrisk-api/internal/config"
	"github.com/skyrisk/weatherrisk-api/internal/middleware"
	"github.com/skyrisk/weatherrisk-api/internal/riskapi"
)

func main() {
	// Load environment variables and configuration
	godotenv.Load()

	// Load centralized configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Weather-risk pipeline (C1-C11)
	riskService := riskapi.NewService(cfg, logger)
	riskHandler := riskapi.NewHandler(riskService, logger)

	r := gin.New()

	var middlewareConfig middleware.Config
	if cfg.Server.Env == "production" {
		middlewareConfig = middleware.ProductionConfig(cfg.Security.AllowedOrigins)
	} else {
		middlewareConfig = middleware.DevelopmentConfig()
	}
	middlewareConfig.Logger = logger
	r.Use(middleware.Chain(middlewareConfig)...)

	riskapi.Register(r, riskHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	logger.Info("Starting weather-risk API server", "port", port)
	if err := r.Run(":" + port); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
