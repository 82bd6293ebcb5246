package handler

import (
	"net/http"
	"strings"

	"github.com/SergeiKhy/webstats/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CollectHandler приём событий от трекер-скрипта
type CollectHandler struct {
	ingest service.IngestService
	logger *zap.Logger
}

func NewCollectHandler(ingest service.IngestService, logger *zap.Logger) *CollectHandler {
	return &CollectHandler{
		ingest: ingest,
		logger: logger,
	}
}

// Collect принимает одно событие. Токен сайта передаётся в заголовке
// Authorization: Bearer <token> либо в query-параметре t.
// Все ответы с пустым телом: трекер-скрипт видит только статус-коды,
// детали ошибок остаются в логах сервера.
func (h *CollectHandler) Collect(c *gin.Context) {
	token := extractToken(c)

	var payload service.CollectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("Invalid collect body", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}
	payload.UserAgent = c.Request.UserAgent()

	err := h.ingest.HandleCollect(c.Request.Context(), token, c.ClientIP(), &payload)
	if err != nil {
		switch err {
		case service.ErrUnknownToken:
			c.Status(http.StatusUnauthorized)
		case service.ErrEmptyPath:
			c.Status(http.StatusBadRequest)
		default:
			h.logger.Error("Failed to handle collect", zap.Error(err))
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)
}

// extractToken заголовок приоритетнее query-параметра
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Query("t")
}
