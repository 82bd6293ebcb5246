package handler

import (
	"net/http"

	"github.com/SergeiKhy/webstats/internal/middleware"
	"github.com/SergeiKhy/webstats/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	ingestService service.IngestService,
	siteService service.SiteService,
	statsService service.StatsService,
	pipeline service.EventPipeline,
	notifier *service.ChangeNotifier,
	collectLimiter *middleware.FixedWindowLimiter,
	apiLimiter *middleware.APIRateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	collectHandler := NewCollectHandler(ingestService, logger)
	statsHandler := NewStatsHandler(siteService, statsService, notifier, logger)

	// Приём событий: свой лимитер, без API key — трекер-скрипт
	// аутентифицируется токеном сайта
	router.POST("/collect", collectLimiter.Middleware("collect"), collectHandler.Collect)

	// API v.1
	v1 := router.Group("/api/v1")
	v1.Use(apiLimiter.Middleware())
	{
		v1.GET("/health", healthCheck(pipeline))

		// Применяем API Key middleware только к защищенным эндпоинтам
		if apiKeyMiddleware != nil {
			v1.Use(apiKeyMiddleware)
		}

		v1.POST("/sites", statsHandler.CreateSite)
		v1.DELETE("/sites/:id", statsHandler.DeleteSite)
		v1.GET("/sites/:id/stats", statsHandler.GetStats)
		v1.GET("/sites/:id/realtime", statsHandler.GetRealtime)
		v1.GET("/sites/:id/changes", statsHandler.StreamChanges)
	}

	return router
}

// healthCheck текущее состояние сервиса вместе с загрузкой очереди пайплайна
func healthCheck(pipeline service.EventPipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "webstats",
			"queue":   pipeline.QueueStats(),
		})
	}
}
