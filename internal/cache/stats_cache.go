package cache

import (
	"sync"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
)

// Константы кэша по умолчанию
const (
	DefaultTTL           = 60 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

// Key ключ кэша: один снимок на (сайт, период, таймзона)
type Key struct {
	SiteID   int64
	Period   string
	Timezone string
}

type entry struct {
	stats     *models.Stats
	expiresAt time.Time
}

// StatsCache in-memory TTL-кэш снимков статистики.
// Корректность не зависит от sweep-а: Get сам перепроверяет срок годности,
// периодическая уборка нужна только для гигиены памяти.
type StatsCache struct {
	mu      sync.RWMutex
	entries map[Key]entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewStatsCache(ttl, sweepInterval time.Duration) *StatsCache {
	c := &StatsCache{
		entries: make(map[Key]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go c.sweepLoop(sweepInterval)

	return c
}

// Get возвращает снимок; просроченная запись — промах, даже если физически жива
func (c *StatsCache) Get(key Key) (*models.Stats, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.stats, true
}

// Put записывает снимок, сбрасывая срок годности (now + TTL)
func (c *StatsCache) Put(key Key, stats *models.Stats) {
	c.mu.Lock()
	c.entries[key] = entry{
		stats:     stats,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// InvalidateSite сбрасывает все периоды и таймзоны сайта.
// Намеренно грубая инвалидация: любая запись события роняет весь кэш сайта.
func (c *StatsCache) InvalidateSite(siteID int64) {
	c.mu.Lock()
	for k := range c.entries {
		if k.SiteID == siteID {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len текущее количество записей (включая просроченные до уборки)
func (c *StatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close останавливает фоновую уборку
func (c *StatsCache) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// sweepLoop периодически выбрасывает просроченные записи
func (c *StatsCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *StatsCache) sweep() {
	now := c.now()

	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
