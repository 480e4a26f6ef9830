package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"proposal-management-api/config"
	"proposal-management-api/controllers"
	"proposal-management-api/middleware"
	"proposal-management-api/repositories"
	"proposal-management-api/routes"
	"proposal-management-api/services"
	"proposal-management-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := config.InitLogging(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger := config.Logger
	defer func() { _ = logger.Sync() }()

	if err := config.InitDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	files, err := storage.NewLocalStore(cfg.Upload.Path, cfg.MaxUploadBytes())
	if err != nil {
		logger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	var mailer services.Mailer
	if m := config.NewMailer(cfg.SMTP); m.Enabled() {
		mailer = m
	} else {
		logger.Warn("SMTP not configured; notifications are in-app only")
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins()))

	deps := controllers.NewDependencies(repositories.NewGormStore(config.DB), files, mailer, logger, cfg)
	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
