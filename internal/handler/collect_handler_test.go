package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SergeiKhy/webstats/internal/cache"
	"github.com/SergeiKhy/webstats/internal/middleware"
	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/service"
	"github.com/SergeiKhy/webstats/internal/service/mocks"
	"github.com/SergeiKhy/webstats/internal/tracker"
)

type routerEnv struct {
	router *gin.Engine
	events *mocks.MockEventRepository
	site   *models.Site
}

// newRouterEnv собирает полный стек поверх in-memory моков
func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	sites := mocks.NewMockSiteRepository()
	siteCache := mocks.NewMockSiteCache()
	events := mocks.NewMockEventRepository()
	registry := tracker.NewRegistry()
	statsCache := cache.NewStatsCache(cache.DefaultTTL, cache.DefaultSweepInterval)
	t.Cleanup(statsCache.Close)
	notifier := service.NewChangeNotifier()

	pipeline := service.NewEventPipeline(events, statsCache, notifier, logger)
	pipeline.Start()
	t.Cleanup(pipeline.Stop)

	ingestService := service.NewIngestService(sites, siteCache, registry, pipeline, logger)
	siteService := service.NewSiteService(sites, siteCache, statsCache, registry, logger)
	statsService := service.NewStatsService(events, statsCache, registry, logger)

	collectLimiter := middleware.NewFixedWindowLimiter(middleware.DefaultFixedWindowConfig)
	apiLimiter := middleware.NewAPIRateLimiter(middleware.APIRateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		CleanupInterval:   time.Minute,
	})

	site := &models.Site{Domain: "example.com", Token: "tok-router-test", CreatedAt: time.Now()}
	require.NoError(t, sites.Create(context.Background(), site))

	return &routerEnv{
		router: NewRouter(ingestService, siteService, statsService, pipeline, notifier, collectLimiter, apiLimiter, nil, logger),
		events: events,
		site:   site,
	}
}

func (env *routerEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// TestCollect_Success валидное событие принимается с пустым телом ответа
func TestCollect_Success(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodPost, "/collect", env.site.Token, `{"p":"/home","r":"https://google.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	require.Eventually(t, func() bool {
		return env.events.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestCollect_TokenViaQuery токен принимается и query-параметром t
func TestCollect_TokenViaQuery(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodPost, "/collect?t="+env.site.Token, "", `{"p":"/home"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestCollect_UnknownToken неизвестный или отсутствующий токен — 401.
// Тело пустое: трекер-скрипт видит только статус-код
func TestCollect_UnknownToken(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodPost, "/collect", "no-such-token", `{"p":"/home"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(http.MethodPost, "/collect", "", `{"p":"/home"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())
}

// TestCollect_BadBody битый JSON и пустой path — 400 с пустым телом
func TestCollect_BadBody(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodPost, "/collect", env.site.Token, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(http.MethodPost, "/collect", env.site.Token, `{"p":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Body.String())
}

// TestSiteLifecycle создание сайта, статистика, удаление
func TestSiteLifecycle(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodPost, "/api/v1/sites", "", `{"domain":"new.example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "token")

	w = env.do(http.MethodGet, "/api/v1/sites/1/stats?period=today&tz=UTC", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_views"`)

	w = env.do(http.MethodGet, "/api/v1/sites/1/realtime", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_visitors"`)

	w = env.do(http.MethodDelete, "/api/v1/sites/1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/sites/1/stats", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestStats_InvalidSiteID мусор вместо идентификатора — 400
func TestStats_InvalidSiteID(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodGet, "/api/v1/sites/abc/stats", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHealth проверка живости с метриками очереди
func TestHealth(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"worker_count"`)
}
