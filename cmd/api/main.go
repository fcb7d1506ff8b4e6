package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/cache"
	"github.com/agrofund/loan-service/internal/config"
	"github.com/agrofund/loan-service/internal/handler"
	"github.com/agrofund/loan-service/internal/integrations/cbr"
	"github.com/agrofund/loan-service/internal/middleware"
	"github.com/agrofund/loan-service/internal/repository"
	"github.com/agrofund/loan-service/internal/scheduler"
	"github.com/agrofund/loan-service/internal/service"
	"github.com/agrofund/loan-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize storage. DB_CONN=memory runs without PostgreSQL.
	var store service.Store
	if cfg.DBConn == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		store = repository.NewMemoryRepository()
	} else {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		store = repository.NewRepository(db)
	}

	// Initialize cache
	var planCache cache.Cache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, "agrofund:", logger)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		planCache = redisCache
	} else {
		planCache = cache.NewMemoryCache()
	}

	var mailer service.Mailer
	if cfg.EmailsEnabled {
		mailer = email.NewSender(cfg, logger)
	}

	// Initialize layers
	cbrClient := cbr.NewCBRClient(cfg, logger)
	svc := service.NewService(store, planCache, cbrClient, mailer, logger, cfg)
	h := handler.NewHandler(svc, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer rateLimiter.Stop()

	refresher, err := scheduler.New(cfg.RefreshCron, svc, logger)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	refresher.Start()
	defer refresher.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, svc, rateLimiter),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Errorf("Server failed: %v", err)
		return
	case <-quit:
		logger.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server exited")
}
