package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
)

// MockSiteRepository implements repository.SiteRepository for testing
type MockSiteRepository struct {
	mu     sync.RWMutex
	sites  map[int64]*models.Site
	nextID int64
}

func NewMockSiteRepository() *MockSiteRepository {
	return &MockSiteRepository{
		sites:  make(map[int64]*models.Site),
		nextID: 1,
	}
}

func (m *MockSiteRepository) Create(ctx context.Context, site *models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sites {
		if s.Token == site.Token {
			return repository.ErrTokenExists
		}
	}

	site.ID = m.nextID
	m.nextID++
	m.sites[site.ID] = site
	return nil
}

func (m *MockSiteRepository) GetByToken(ctx context.Context, token string) (*models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sites {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, repository.ErrSiteNotFound
}

func (m *MockSiteRepository) GetByID(ctx context.Context, id int64) (*models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	site, exists := m.sites[id]
	if !exists {
		return nil, repository.ErrSiteNotFound
	}
	return site, nil
}

func (m *MockSiteRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sites[id]; !exists {
		return repository.ErrSiteNotFound
	}
	delete(m.sites, id)
	return nil
}

// MockSiteCache implements repository.SiteCacheRepository for testing
type MockSiteCache struct {
	mu    sync.RWMutex
	cache map[string]*models.Site
}

func NewMockSiteCache() *MockSiteCache {
	return &MockSiteCache{
		cache: make(map[string]*models.Site),
	}
}

func (m *MockSiteCache) Get(ctx context.Context, token string) (*models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	site, exists := m.cache[token]
	if !exists {
		return nil, repository.ErrSiteNotFound
	}
	return site, nil
}

func (m *MockSiteCache) Set(ctx context.Context, token string, site *models.Site, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[token] = site
	return nil
}

func (m *MockSiteCache) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, token)
	return nil
}

// MockEventRepository implements repository.EventRepository for testing.
// Aggregate queries are re-derived in Go from the stored events.
// InsertDelay and InsertErr simulate a slow or failing store.
type MockEventRepository struct {
	mu          sync.RWMutex
	events      []*models.Event
	InsertDelay time.Duration
	InsertErr   error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Insert(ctx context.Context, event *models.Event) error {
	if m.InsertDelay > 0 {
		select {
		case <-time.After(m.InsertDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.InsertErr != nil {
		return m.InsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return nil
}

// Seed stores an event directly, bypassing delay/error simulation
func (m *MockEventRepository) Seed(event *models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
}

// Count returns the number of stored events
func (m *MockEventRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MockEventRepository) inWindow(siteID int64, from, to time.Time) []*models.Event {
	var result []*models.Event
	for _, e := range m.events {
		if e.SiteID != siteID {
			continue
		}
		if e.InsertedAt.Before(from) || !e.InsertedAt.Before(to) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func (m *MockEventRepository) WindowStats(ctx context.Context, siteID int64, from, to time.Time) (*models.WindowStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.WindowStats{}
	pageviewsByIP := make(map[string]int64)
	var durationSum float64
	var durationCount int64

	for _, e := range m.inWindow(siteID, from, to) {
		switch e.Name {
		case models.EventPageview:
			stats.TotalViews++
			pageviewsByIP[e.IPHash]++
		case models.EventDuration:
			if e.DurationMs != nil && *e.DurationMs > 0 {
				durationSum += float64(*e.DurationMs)
				durationCount++
			}
		}
	}

	stats.UniqueVisitors = int64(len(pageviewsByIP))
	for _, n := range pageviewsByIP {
		if n == 1 {
			stats.BouncedVisitors++
		}
	}
	if durationCount > 0 {
		avg := durationSum / float64(durationCount)
		stats.AvgDurationMs = &avg
	}

	return stats, nil
}

func (m *MockEventRepository) TopPages(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	return m.topBy(siteID, from, to, limit, func(e *models.Event) (string, bool) {
		return e.Path, true
	})
}

func (m *MockEventRepository) TopReferrers(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	return m.topBy(siteID, from, to, limit, func(e *models.Event) (string, bool) {
		return e.Referrer, e.Referrer != ""
	})
}

func (m *MockEventRepository) TopCountries(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	return m.topBy(siteID, from, to, limit, func(e *models.Event) (string, bool) {
		if e.Country == nil {
			return "", false
		}
		return *e.Country, true
	})
}

func (m *MockEventRepository) UserAgentCounts(ctx context.Context, siteID int64, from, to time.Time) ([]models.CountRow, error) {
	return m.topBy(siteID, from, to, 0, func(e *models.Event) (string, bool) {
		return e.UserAgent, true
	})
}

func (m *MockEventRepository) topBy(siteID int64, from, to time.Time, limit int, keyFn func(*models.Event) (string, bool)) ([]models.CountRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int64)
	for _, e := range m.inWindow(siteID, from, to) {
		if e.Name != models.EventPageview {
			continue
		}
		if key, ok := keyFn(e); ok {
			totals[key]++
		}
	}

	rows := make([]models.CountRow, 0, len(totals))
	for name, count := range totals {
		rows = append(rows, models.CountRow{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MockEventRepository) TimeBuckets(ctx context.Context, siteID int64, from, to time.Time, unit, tz string) ([]repository.TimeBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	totals := make(map[time.Time]int64)
	for _, e := range m.inWindow(siteID, from, to) {
		if e.Name != models.EventPageview {
			continue
		}
		totals[truncateBucket(e.InsertedAt.In(loc), unit)]++
	}

	buckets := make([]repository.TimeBucket, 0, len(totals))
	for bucket, count := range totals {
		buckets = append(buckets, repository.TimeBucket{Bucket: bucket, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Bucket.Before(buckets[j].Bucket)
	})
	return buckets, nil
}

// truncateBucket mirrors date_trunc on a local timestamp: the result carries
// the local wall-clock fields, like pg's timestamp-without-tz scan does
func truncateBucket(local time.Time, unit string) time.Time {
	y, mo, d := local.Date()
	switch unit {
	case "hour":
		return time.Date(y, mo, d, local.Hour(), 0, 0, 0, time.UTC)
	case "day":
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	case "week":
		midnight := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		daysBack := (int(local.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -daysBack)
	default: // month
		return time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC)
	}
}

func (m *MockEventRepository) ActiveVisitors(ctx context.Context, siteID int64, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unique := make(map[string]bool)
	for _, e := range m.events {
		if e.SiteID == siteID && !e.InsertedAt.Before(since) {
			unique[e.IPHash] = true
		}
	}
	return int64(len(unique)), nil
}

func (m *MockEventRepository) RealtimeBuckets(ctx context.Context, siteID int64, since time.Time) ([]repository.TimeBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[time.Time]int64)
	for _, e := range m.events {
		if e.SiteID != siteID || e.Name != models.EventPageview || e.InsertedAt.Before(since) {
			continue
		}
		bucket := time.Unix(e.InsertedAt.Unix()/300*300, 0).UTC()
		totals[bucket]++
	}

	buckets := make([]repository.TimeBucket, 0, len(totals))
	for bucket, count := range totals {
		buckets = append(buckets, repository.TimeBucket{Bucket: bucket, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Bucket.Before(buckets[j].Bucket)
	})
	return buckets, nil
}
