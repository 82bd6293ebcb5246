package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SergeiKhy/webstats/internal/cache"
	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
	"github.com/SergeiKhy/webstats/internal/tracker"
	"go.uber.org/zap"
)

// Константы агрегатора
const (
	topLimit       = 10
	realtimeWindow = tracker.ActiveWindow // трейлинг-окно блока "онлайн сейчас"
)

// StatsService агрегатор статистики с кэшем поверх
type StatsService interface {
	GetStats(ctx context.Context, siteID int64, period, tz string) (*models.Stats, error)
	ComputeStats(ctx context.Context, siteID int64, period, tz string) (*models.Stats, error)
	Realtime(ctx context.Context, siteID int64) (*models.RealtimeStats, error)
	ActiveVisitorCount(ctx context.Context, siteID int64) (int64, error)
	ValidPeriods() []string
}

type statsService struct {
	events   repository.EventRepository
	cache    *cache.StatsCache
	registry *tracker.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService создаёт новый сервис статистики
func NewStatsService(
	events repository.EventRepository,
	statsCache *cache.StatsCache,
	registry *tracker.Registry,
	logger *zap.Logger,
) StatsService {
	return &statsService{
		events:   events,
		cache:    statsCache,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidPeriods возвращает поддерживаемые токены периодов
func (s *statsService) ValidPeriods() []string {
	return ValidPeriods()
}

// GetStats статистика через кэш: попадание возвращает тот же снимок
// без пересчёта, промах пересчитывает из БД и кладёт результат с TTL
func (s *statsService) GetStats(ctx context.Context, siteID int64, period, tz string) (*models.Stats, error) {
	period = normalizePeriod(period)
	loc := loadLocation(tz)

	key := cache.Key{SiteID: siteID, Period: period, Timezone: loc.String()}
	if stats, ok := s.cache.Get(key); ok {
		return stats, nil
	}

	stats, err := s.ComputeStats(ctx, siteID, period, tz)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, stats)
	return stats, nil
}

// ComputeStats полный пересчёт снимка из БД, мимо кэша
func (s *statsService) ComputeStats(ctx context.Context, siteID int64, period, tz string) (*models.Stats, error) {
	period = normalizePeriod(period)
	loc := loadLocation(tz)
	now := s.now()

	window := periodWindow(period, now, loc)

	current, err := s.events.WindowStats(ctx, siteID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	stats := &models.Stats{
		SiteID:         siteID,
		Period:         period,
		Timezone:       loc.String(),
		TotalViews:     current.TotalViews,
		UniqueVisitors: current.UniqueVisitors,
		BounceRate:     roundRate(current.BouncedVisitors, current.UniqueVisitors),
		AvgDurationMs:  current.AvgDurationMs,
	}

	// Процентные изменения против предыдущего окна; у "all" его нет
	if prev := previousWindow(period, window); prev != nil {
		previous, err := s.events.WindowStats(ctx, siteID, prev.From, prev.To)
		if err != nil {
			return nil, fmt.Errorf("failed to compute previous window: %w", err)
		}

		stats.TotalViewsDelta = PercentDelta(float64(current.TotalViews), float64(previous.TotalViews))
		stats.UniqueVisitorsDelta = PercentDelta(float64(current.UniqueVisitors), float64(previous.UniqueVisitors))

		prevBounce := roundRate(previous.BouncedVisitors, previous.UniqueVisitors)
		stats.BounceRateDelta = PercentDelta(float64(stats.BounceRate), float64(prevBounce))

		if current.AvgDurationMs != nil && previous.AvgDurationMs != nil {
			stats.AvgDurationDelta = PercentDelta(*current.AvgDurationMs, *previous.AvgDurationMs)
		}
	}

	if stats.TopPages, err = s.events.TopPages(ctx, siteID, window.From, window.To, topLimit); err != nil {
		return nil, fmt.Errorf("failed to compute top pages: %w", err)
	}
	if stats.TopReferrers, err = s.events.TopReferrers(ctx, siteID, window.From, window.To, topLimit); err != nil {
		return nil, fmt.Errorf("failed to compute top referrers: %w", err)
	}
	if stats.TopCountries, err = s.events.TopCountries(ctx, siteID, window.From, window.To, topLimit); err != nil {
		return nil, fmt.Errorf("failed to compute top countries: %w", err)
	}

	uaCounts, err := s.events.UserAgentCounts(ctx, siteID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user agents: %w", err)
	}
	stats.Browsers, stats.OSes, stats.Devices = classifyCounts(uaCounts)

	unit := chartUnit(period)
	buckets, err := s.events.TimeBuckets(ctx, siteID, window.From, window.To, unit, loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compute chart: %w", err)
	}
	stats.Chart = chartPoints(buckets, unit)

	// Пустые списки вместо null в JSON
	ensureEmptySlices(stats)

	return stats, nil
}

// Realtime блок "онлайн сейчас": счётчик активных + 5-минутный график
// за хвостовые 30 минут
func (s *statsService) Realtime(ctx context.Context, siteID int64) (*models.RealtimeStats, error) {
	active, err := s.ActiveVisitorCount(ctx, siteID)
	if err != nil {
		return nil, err
	}

	since := s.now().Add(-realtimeWindow)
	buckets, err := s.events.RealtimeBuckets(ctx, siteID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute realtime chart: %w", err)
	}

	chart := make([]models.ChartPoint, 0, len(buckets))
	for _, b := range buckets {
		chart = append(chart, models.ChartPoint{
			Bucket: b.Bucket.UTC().Format("15:04"),
			Count:  b.Count,
		})
	}

	return &models.RealtimeStats{
		SiteID:         siteID,
		ActiveVisitors: active,
		Chart:          chart,
	}, nil
}

// ActiveVisitorCount количество посетителей онлайн: через in-memory трекер,
// а при его отсутствии (сайт без событий с момента старта процесса) —
// приближение напрямую из БД
func (s *statsService) ActiveVisitorCount(ctx context.Context, siteID int64) (int64, error) {
	if tr, ok := s.registry.Lookup(siteID); ok {
		return tr.CountActive(realtimeWindow), nil
	}

	count, err := s.events.ActiveVisitors(ctx, siteID, s.now().Add(-realtimeWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to count active visitors: %w", err)
	}
	return count, nil
}

// classifyCounts раскладывает счётчики user-agent по браузерам, ОС и устройствам
func classifyCounts(uaCounts []models.CountRow) (browsers, oses, devices []models.CountRow) {
	browserTotals := make(map[string]int64)
	osTotals := make(map[string]int64)
	deviceTotals := make(map[string]int64)

	for _, row := range uaCounts {
		browserTotals[ClassifyBrowser(row.Name)] += row.Count
		osTotals[ClassifyOS(row.Name)] += row.Count
		deviceTotals[ClassifyDevice(row.Name)] += row.Count
	}

	return topRows(browserTotals), topRows(osTotals), topRows(deviceTotals)
}

// topRows превращает карту счётчиков в топ-список по убыванию
func topRows(totals map[string]int64) []models.CountRow {
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

	if len(rows) > topLimit {
		rows = rows[:topLimit]
	}
	return rows
}

// chartPoints форматирует корзины БД в точки графика по возрастанию
func chartPoints(buckets []repository.TimeBucket, unit string) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, models.ChartPoint{
			Bucket: bucketLabel(b.Bucket, unit),
			Count:  b.Count,
		})
	}
	return points
}

func ensureEmptySlices(stats *models.Stats) {
	if stats.TopPages == nil {
		stats.TopPages = []models.CountRow{}
	}
	if stats.TopReferrers == nil {
		stats.TopReferrers = []models.CountRow{}
	}
	if stats.TopCountries == nil {
		stats.TopCountries = []models.CountRow{}
	}
	if stats.Browsers == nil {
		stats.Browsers = []models.CountRow{}
	}
	if stats.OSes == nil {
		stats.OSes = []models.CountRow{}
	}
	if stats.Devices == nil {
		stats.Devices = []models.CountRow{}
	}
	if stats.Chart == nil {
		stats.Chart = []models.ChartPoint{}
	}
}
