package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// FixedWindowConfig конфигурация fixed-window rate limiter
type FixedWindowConfig struct {
	Limit           int           // Максимум запросов в окне
	Window          time.Duration // Длина окна
	CleanupInterval time.Duration // Интервал очистки устаревших счётчиков
}

// DefaultFixedWindowConfig конфигурация по умолчанию: 100 запросов в минуту
var DefaultFixedWindowConfig = FixedWindowConfig{
	Limit:           100,
	Window:          time.Minute,
	CleanupInterval: time.Minute,
}

// counter счётчик одного ключа (purpose, IP) в текущем окне
type counter struct {
	windowStart time.Time
	count       int
}

// FixedWindowLimiter ограничитель с фиксированным окном.
// Счётчики независимы по ключу (purpose, IP); N-й запрос в окне проходит,
// (N+1)-й отклоняется до начала следующего окна.
type FixedWindowLimiter struct {
	config   FixedWindowConfig
	counters map[string]*counter
	mu       sync.Mutex
	now      func() time.Time
}

// NewFixedWindowLimiter создаёт новый fixed-window limiter
func NewFixedWindowLimiter(config FixedWindowConfig) *FixedWindowLimiter {
	rl := &FixedWindowLimiter{
		config:   config,
		counters: make(map[string]*counter),
		now:      time.Now,
	}

	// Запускаем горутину для периодической очистки
	go rl.cleanupLoop()

	return rl
}

// Allow инкрементирует счётчик ключа и сообщает, влезает ли запрос в лимит
func (rl *FixedWindowLimiter) Allow(purpose, key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	k := purpose + ":" + key
	c, exists := rl.counters[k]
	if !exists || now.Sub(c.windowStart) >= rl.config.Window {
		// Новое окно
		rl.counters[k] = &counter{windowStart: now, count: 1}
		return true
	}

	c.count++
	return c.count <= rl.config.Limit
}

// Middleware возвращает Gin middleware для данного назначения (purpose).
// Лимит проверяется до любой другой работы; при превышении — 429 и стоп.
func (rl *FixedWindowLimiter) Middleware(purpose string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(purpose, c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate_limit_exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// cleanupLoop периодически удаляет счётчики давно закрытых окон
func (rl *FixedWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup удаляет счётчики, окно которых закрылось давно
func (rl *FixedWindowLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, c := range rl.counters {
		if now.Sub(c.windowStart) > rl.config.Window*3 {
			delete(rl.counters, k)
		}
	}
}
