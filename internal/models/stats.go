package models

// CountRow пара имя-количество для топ-листов
type CountRow struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ChartPoint одна точка временного графика
type ChartPoint struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// WindowStats агрегаты по одному окну (без топ-листов и графика)
type WindowStats struct {
	TotalViews      int64
	UniqueVisitors  int64
	BouncedVisitors int64
	AvgDurationMs   *float64
}

// Stats полный снимок статистики сайта за период
type Stats struct {
	SiteID   int64  `json:"site_id"`
	Period   string `json:"period"`
	Timezone string `json:"timezone"`

	TotalViews     int64    `json:"total_views"`
	UniqueVisitors int64    `json:"unique_visitors"`
	BounceRate     int64    `json:"bounce_rate"`
	AvgDurationMs  *float64 `json:"avg_duration_ms"`

	// Процентные изменения относительно предыдущего окна (null для "all")
	TotalViewsDelta     *int64 `json:"total_views_delta"`
	UniqueVisitorsDelta *int64 `json:"unique_visitors_delta"`
	BounceRateDelta     *int64 `json:"bounce_rate_delta"`
	AvgDurationDelta    *int64 `json:"avg_duration_delta"`

	TopPages     []CountRow `json:"top_pages"`
	TopReferrers []CountRow `json:"top_referrers"`
	TopCountries []CountRow `json:"top_countries"`
	Browsers     []CountRow `json:"browsers"`
	OSes         []CountRow `json:"operating_systems"`
	Devices      []CountRow `json:"devices"`

	Chart []ChartPoint `json:"chart"`
}

// RealtimeStats блок "онлайн сейчас"
type RealtimeStats struct {
	SiteID         int64        `json:"site_id"`
	ActiveVisitors int64        `json:"active_visitors"`
	Chart          []ChartPoint `json:"chart"`
}
