package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SergeiKhy/webstats/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// TestFixedWindowLimiter_Middleware проверяет лимит 100 запросов в минуту:
// сотый запрос проходит, сто первый в том же окне получает 429
func TestFixedWindowLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := middleware.NewFixedWindowLimiter(middleware.DefaultFixedWindowConfig)

	router := gin.New()
	router.Use(rl.Middleware("collect"))
	router.POST("/collect", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Первые 100 запросов в окне должны пройти
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/collect", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// 101-й запрос в том же окне должен быть ограничен
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/collect", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate_limit_exceeded"}`, w.Body.String())
}

// TestFixedWindowLimiter_WindowReset проверяет сброс счётчика в новом окне
func TestFixedWindowLimiter_WindowReset(t *testing.T) {
	rl := middleware.NewFixedWindowLimiter(middleware.FixedWindowConfig{
		Limit:           2,
		Window:          time.Minute,
		CleanupInterval: time.Minute,
	})

	assert.True(t, rl.Allow("collect", "10.0.0.1"))
	assert.True(t, rl.Allow("collect", "10.0.0.1"))
	assert.False(t, rl.Allow("collect", "10.0.0.1"))

	// Другой IP считается независимо
	assert.True(t, rl.Allow("collect", "10.0.0.2"))

	// Другое назначение с тем же IP считается независимо
	assert.True(t, rl.Allow("api", "10.0.0.1"))
}

// TestAPIRateLimiter_Middleware проверяет token-bucket limiter для read API
func TestAPIRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Лимит 5 запросов в секунду с burst 5
	rl := middleware.NewAPIRateLimiter(middleware.APIRateLimiterConfig{
		RequestsPerSecond: 5,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Первые 5 запросов должны пройти (в пределах burst лимита)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Следующие запросы должны быть ограничены
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// TestAPIKey_Middleware проверяет аутентификацию по API ключу
func TestAPIKey_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Настраиваем валидные API ключи
	validKeys := map[string]string{
		"test-key-1": "Test Key 1",
		"test-key-2": "Test Key 2",
	}

	router := gin.New()
	router.Use(middleware.RequireAPIKey(validKeys))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Запрос без API ключа должен быть отклонён
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Запрос с невалидным API ключом должен быть отклонён
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "invalid-key")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Запрос с валидным API ключом должен пройти
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "test-key-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestAPIKey_Middleware_QueryParam проверяет передачу API ключа через query параметр
func TestAPIKey_Middleware_QueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	validKeys := map[string]string{
		"test-key-1": "Test Key 1",
	}

	router := gin.New()
	router.Use(middleware.RequireAPIKey(validKeys))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Запрос с API ключом в query параметре должен пройти
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test?api_key=test-key-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
