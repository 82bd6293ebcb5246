package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
)

// TimeBucket одна корзина временного ряда (bucket в таймзоне запроса)
type TimeBucket struct {
	Bucket time.Time
	Count  int64
}

type EventRepository interface {
	Insert(ctx context.Context, event *models.Event) error
	WindowStats(ctx context.Context, siteID int64, from, to time.Time) (*models.WindowStats, error)
	TopPages(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error)
	TopReferrers(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error)
	TopCountries(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error)
	UserAgentCounts(ctx context.Context, siteID int64, from, to time.Time) ([]models.CountRow, error)
	TimeBuckets(ctx context.Context, siteID int64, from, to time.Time, unit, tz string) ([]TimeBucket, error)
	ActiveVisitors(ctx context.Context, siteID int64, since time.Time) (int64, error)
	RealtimeBuckets(ctx context.Context, siteID int64, since time.Time) ([]TimeBucket, error)
}

type eventRepository struct {
	db *PostgresDB
}

func NewEventRepository(db *PostgresDB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Insert(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (site_id, name, path, referrer, user_agent,
			screen_width, screen_height, country, ip_hash, duration_ms, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		event.SiteID,
		event.Name,
		event.Path,
		event.Referrer,
		event.UserAgent,
		event.ScreenWidth,
		event.ScreenHeight,
		event.Country,
		event.IPHash,
		event.DurationMs,
		event.InsertedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// WindowStats базовые агрегаты по окну: просмотры, уникальные посетители,
// отказы (ровно один pageview в окне) и средняя длительность
func (r *eventRepository) WindowStats(ctx context.Context, siteID int64, from, to time.Time) (*models.WindowStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE name = 'pageview'),
			COUNT(DISTINCT ip_hash) FILTER (WHERE name = 'pageview'),
			AVG(duration_ms) FILTER (WHERE name = 'duration' AND duration_ms > 0)
		FROM events
		WHERE site_id = $1 AND inserted_at >= $2 AND inserted_at < $3
	`

	stats := &models.WindowStats{}
	err := r.db.Pool.QueryRow(ctx, query, siteID, from, to).Scan(
		&stats.TotalViews,
		&stats.UniqueVisitors,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get window stats: %w", err)
	}

	bounceQuery := `
		SELECT COUNT(*) FROM (
			SELECT ip_hash
			FROM events
			WHERE site_id = $1 AND name = 'pageview'
				AND inserted_at >= $2 AND inserted_at < $3
			GROUP BY ip_hash
			HAVING COUNT(*) = 1
		) bounced
	`

	err = r.db.Pool.QueryRow(ctx, bounceQuery, siteID, from, to).Scan(&stats.BouncedVisitors)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounced visitors: %w", err)
	}

	return stats, nil
}

func (r *eventRepository) TopPages(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	query := `
		SELECT path, COUNT(*) AS cnt
		FROM events
		WHERE site_id = $1 AND name = 'pageview'
			AND inserted_at >= $2 AND inserted_at < $3
		GROUP BY path
		ORDER BY cnt DESC, path ASC
		LIMIT $4
	`
	return r.queryCountRows(ctx, query, siteID, from, to, limit)
}

func (r *eventRepository) TopReferrers(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	query := `
		SELECT referrer, COUNT(*) AS cnt
		FROM events
		WHERE site_id = $1 AND name = 'pageview' AND referrer <> ''
			AND inserted_at >= $2 AND inserted_at < $3
		GROUP BY referrer
		ORDER BY cnt DESC, referrer ASC
		LIMIT $4
	`
	return r.queryCountRows(ctx, query, siteID, from, to, limit)
}

func (r *eventRepository) TopCountries(ctx context.Context, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	query := `
		SELECT country, COUNT(*) AS cnt
		FROM events
		WHERE site_id = $1 AND name = 'pageview' AND country IS NOT NULL
			AND inserted_at >= $2 AND inserted_at < $3
		GROUP BY country
		ORDER BY cnt DESC, country ASC
		LIMIT $4
	`
	return r.queryCountRows(ctx, query, siteID, from, to, limit)
}

// UserAgentCounts сырые user-agent с количеством просмотров;
// классификация браузер/ОС/устройство выполняется на стороне сервиса
func (r *eventRepository) UserAgentCounts(ctx context.Context, siteID int64, from, to time.Time) ([]models.CountRow, error) {
	query := `
		SELECT user_agent, COUNT(*) AS cnt
		FROM events
		WHERE site_id = $1 AND name = 'pageview'
			AND inserted_at >= $2 AND inserted_at < $3
		GROUP BY user_agent
	`

	rows, err := r.db.Pool.Query(ctx, query, siteID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get user agent counts: %w", err)
	}
	defer rows.Close()

	var result []models.CountRow
	for rows.Next() {
		var row models.CountRow
		if err := rows.Scan(&row.Name, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan user agent row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user agents: %w", err)
	}

	return result, nil
}

// TimeBuckets просмотры, сгруппированные в корзины date_trunc в таймзоне запроса.
// unit проверяется по белому списку: date_trunc не параметризуется placeholder-ом безопасно иначе.
func (r *eventRepository) TimeBuckets(ctx context.Context, siteID int64, from, to time.Time, unit, tz string) ([]TimeBucket, error) {
	switch unit {
	case "hour", "day", "week", "month":
	default:
		return nil, fmt.Errorf("unsupported bucket unit: %s", unit)
	}

	query := `
		SELECT date_trunc($4, inserted_at AT TIME ZONE $5) AS bucket, COUNT(*)
		FROM events
		WHERE site_id = $1 AND name = 'pageview'
			AND inserted_at >= $2 AND inserted_at < $3
		GROUP BY bucket
		ORDER BY bucket ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, siteID, from, to, unit, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to get time buckets: %w", err)
	}
	defer rows.Close()

	var buckets []TimeBucket
	for rows.Next() {
		var b TimeBucket
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan time bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time buckets: %w", err)
	}

	return buckets, nil
}

// ActiveVisitors запасной путь для "онлайн сейчас", когда in-memory трекер
// ещё не поднят для сайта: distinct ip_hash за хвостовое окно прямо из БД
func (r *eventRepository) ActiveVisitors(ctx context.Context, siteID int64, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT ip_hash)
		FROM events
		WHERE site_id = $1 AND inserted_at >= $2
	`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, siteID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get active visitors: %w", err)
	}

	return count, nil
}

// RealtimeBuckets 5-минутные корзины просмотров за хвостовое окно
func (r *eventRepository) RealtimeBuckets(ctx context.Context, siteID int64, since time.Time) ([]TimeBucket, error) {
	query := `
		SELECT to_timestamp(floor(extract(epoch FROM inserted_at) / 300) * 300) AS bucket, COUNT(*)
		FROM events
		WHERE site_id = $1 AND name = 'pageview' AND inserted_at >= $2
		GROUP BY bucket
		ORDER BY bucket ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, siteID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get realtime buckets: %w", err)
	}
	defer rows.Close()

	var buckets []TimeBucket
	for rows.Next() {
		var b TimeBucket
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan realtime bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realtime buckets: %w", err)
	}

	return buckets, nil
}

func (r *eventRepository) queryCountRows(ctx context.Context, query string, siteID int64, from, to time.Time, limit int) ([]models.CountRow, error) {
	rows, err := r.db.Pool.Query(ctx, query, siteID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top rows: %w", err)
	}
	defer rows.Close()

	var result []models.CountRow
	for rows.Next() {
		var row models.CountRow
		if err := rows.Scan(&row.Name, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top rows: %w", err)
	}

	return result, nil
}
