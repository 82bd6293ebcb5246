package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
	"github.com/SergeiKhy/webstats/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse стандартный формат ошибки dashboard API.
// Эндпоинт приёма событий отвечает голыми статус-кодами и его не использует.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatsHandler дашборд-операции: сайты, статистика, realtime
type StatsHandler struct {
	sites    service.SiteService
	stats    service.StatsService
	notifier *service.ChangeNotifier
	logger   *zap.Logger
}

func NewStatsHandler(
	sites service.SiteService,
	stats service.StatsService,
	notifier *service.ChangeNotifier,
	logger *zap.Logger,
) *StatsHandler {
	return &StatsHandler{
		sites:    sites,
		stats:    stats,
		notifier: notifier,
		logger:   logger,
	}
}

type CreateSiteResponse struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
	Token  string `json:"token"`
}

// CreateSite регистрирует сайт и возвращает его токен приёма событий
func (h *StatsHandler) CreateSite(c *gin.Context) {
	var input models.CreateSiteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	site, err := h.sites.CreateSite(c.Request.Context(), &input)
	if err != nil {
		h.logger.Error("Failed to create site", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create site",
		})
		return
	}

	c.JSON(http.StatusCreated, CreateSiteResponse{
		ID:     site.ID,
		Domain: site.Domain,
		Token:  site.Token,
	})
}

// DeleteSite удаляет сайт вместе со всеми его событиями
func (h *StatsHandler) DeleteSite(c *gin.Context) {
	id, ok := h.siteID(c)
	if !ok {
		return
	}

	if err := h.sites.DeleteSite(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrSiteNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Site not found",
			})
			return
		}
		h.logger.Error("Failed to delete site", zap.Int64("site_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to delete site",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Site deleted successfully"})
}

// GetStats агрегированная статистика сайта за период.
// Период и таймзона приходят query-параметрами; нераспознанные значения
// откатываются к today/UTC, а не к ошибке.
func (h *StatsHandler) GetStats(c *gin.Context) {
	id, ok := h.siteID(c)
	if !ok {
		return
	}
	if !h.ensureSiteExists(c, id) {
		return
	}

	period := c.DefaultQuery("period", "today")
	tz := c.DefaultQuery("tz", "UTC")

	stats, err := h.stats.GetStats(c.Request.Context(), id, period, tz)
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Int64("site_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to compute stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRealtime блок "онлайн сейчас"
func (h *StatsHandler) GetRealtime(c *gin.Context) {
	id, ok := h.siteID(c)
	if !ok {
		return
	}
	if !h.ensureSiteExists(c, id) {
		return
	}

	rt, err := h.stats.Realtime(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get realtime stats", zap.Int64("site_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to compute realtime stats",
		})
		return
	}

	c.JSON(http.StatusOK, rt)
}

// StreamChanges SSE-поток сигналов "статистика сайта изменилась".
// Полезной нагрузки нет: клиент перечитывает статистику сам.
func (h *StatsHandler) StreamChanges(c *gin.Context) {
	id, ok := h.siteID(c)
	if !ok {
		return
	}
	if !h.ensureSiteExists(c, id) {
		return
	}

	signals, cancel := h.notifier.Subscribe(id)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case _, open := <-signals:
			if !open {
				return false
			}
			c.SSEvent("change", gin.H{"site_id": id})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// siteID парсит :id из пути; при мусоре отвечает 400 и возвращает false
func (h *StatsHandler) siteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_site_id",
			Message: "Site id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// ensureSiteExists общий 404-чек для read-эндпоинтов
func (h *StatsHandler) ensureSiteExists(c *gin.Context, id int64) bool {
	if _, err := h.sites.GetSite(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrSiteNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Site not found",
			})
			return false
		}
		h.logger.Error("Failed to load site", zap.Int64("site_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load site",
		})
		return false
	}
	return true
}
