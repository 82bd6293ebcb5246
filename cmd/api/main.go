package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/webstats/internal/cache"
	"github.com/SergeiKhy/webstats/internal/config"
	"github.com/SergeiKhy/webstats/internal/handler"
	"github.com/SergeiKhy/webstats/internal/middleware"
	"github.com/SergeiKhy/webstats/internal/repository"
	"github.com/SergeiKhy/webstats/internal/service"
	"github.com/SergeiKhy/webstats/internal/tracker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	siteRepo := repository.NewSiteRepository(db)
	siteCache := repository.NewSiteCacheRepository(redis)
	eventRepo := repository.NewEventRepository(db)

	// In-memory состояние: трекер активных посетителей и кэш статистики
	registry := tracker.NewRegistry()
	statsCache := cache.NewStatsCache(cache.DefaultTTL, cache.DefaultSweepInterval)
	defer statsCache.Close()

	notifier := service.NewChangeNotifier()

	// Пайплайн записи событий (Worker Pool)
	pipeline := service.NewEventPipeline(eventRepo, statsCache, notifier, logger)
	pipeline.Start()
	defer pipeline.Stop()

	// Инициализация сервисов
	ingestService := service.NewIngestService(siteRepo, siteCache, registry, pipeline, logger)
	siteService := service.NewSiteService(siteRepo, siteCache, statsCache, registry, logger)
	statsService := service.NewStatsService(eventRepo, statsCache, registry, logger)

	// Инициализация middleware
	collectLimiter := middleware.NewFixedWindowLimiter(middleware.FixedWindowConfig{
		Limit:           cfg.Collect.RateLimit,
		Window:          cfg.Collect.RateLimitWindow,
		CleanupInterval: time.Minute,
	})
	apiLimiter := middleware.NewAPIRateLimiter(middleware.APIRateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	var apiKeyMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 {
		apiKeyMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys)
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	// Настройка роутера
	router := handler.NewRouter(
		ingestService, siteService, statsService,
		pipeline, notifier,
		collectLimiter, apiLimiter, apiKeyMiddleware,
		logger,
	)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
