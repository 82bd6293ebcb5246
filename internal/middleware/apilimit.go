package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// APIRateLimiterConfig конфигурация token-bucket ограничителя read API
type APIRateLimiterConfig struct {
	RequestsPerSecond float64       // Количество запросов в секунду
	BurstSize         int           // Максимальный размер burst
	CleanupInterval   time.Duration // Интервал очистки неактивных клиентов
}

// client представляет rate limiter для одного клиента
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// APIRateLimiter ограничитель запросов read API по алгоритму Token Bucket.
// Для эндпоинта приёма событий используется FixedWindowLimiter: там нужна
// точная семантика "N запросов в окно", которую bucket не выражает.
type APIRateLimiter struct {
	config  APIRateLimiterConfig
	clients map[string]*client // IP -> client
	mu      sync.Mutex
}

// NewAPIRateLimiter создаёт новый rate limiter middleware
func NewAPIRateLimiter(config APIRateLimiterConfig) *APIRateLimiter {
	rl := &APIRateLimiter{
		config:  config,
		clients: make(map[string]*client),
	}

	// Запускаем горутину для периодической очистки
	go rl.cleanupLoop()

	return rl
}

// cleanupLoop периодически удаляет неактивных клиентов
func (rl *APIRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup удаляет клиентов, которые не были активны долгое время
func (rl *APIRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, c := range rl.clients {
		if time.Since(c.lastSeen) > rl.config.CleanupInterval*3 {
			delete(rl.clients, ip)
		}
	}
}

// getLimiter возвращает или создаёт rate limiter для данного IP
func (rl *APIRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if c, exists := rl.clients[ip]; exists {
		c.lastSeen = time.Now()
		return c.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
	rl.clients[ip] = &client{
		limiter:  limiter,
		lastSeen: time.Now(),
	}

	return limiter
}

// Middleware возвращает Gin middleware handler для rate limiting
func (rl *APIRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Слишком много запросов, попробуйте позже",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
