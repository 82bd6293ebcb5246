package service

import (
	"math"
	"time"
)

// Токены периодов агрегации
var validPeriods = []string{
	"today", "yesterday", "week", "month", "year", "30d", "6m", "12m", "all",
}

// Начало истории для периода "all"
var allEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Window абсолютное окно [From, To) в UTC
type Window struct {
	From time.Time
	To   time.Time
}

// ValidPeriods возвращает поддерживаемые токены периодов
func ValidPeriods() []string {
	out := make([]string, len(validPeriods))
	copy(out, validPeriods)
	return out
}

// normalizePeriod нераспознанный период откатывается к "today"
func normalizePeriod(period string) string {
	for _, p := range validPeriods {
		if p == period {
			return period
		}
	}
	return "today"
}

// loadLocation неизвестная таймзона откатывается к UTC
func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// periodWindow переводит именованный период в абсолютное окно.
// Календарные периоды привязаны к полуночи в таймзоне клиента;
// скользящие (30d/6m/12m) и "all" от таймзоны не зависят.
func periodWindow(period string, now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch period {
	case "yesterday":
		// Единственный период, ограниченный с обеих сторон
		return Window{From: midnight.AddDate(0, 0, -1), To: midnight}
	case "week":
		// Неделя начинается с понедельника
		daysBack := (int(local.Weekday()) + 6) % 7
		return Window{From: midnight.AddDate(0, 0, -daysBack), To: now}
	case "month":
		return Window{From: time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc), To: now}
	case "year":
		return Window{From: time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc), To: now}
	case "30d":
		return Window{From: now.AddDate(0, 0, -30), To: now}
	case "6m":
		return Window{From: now.AddDate(0, -6, 0), To: now}
	case "12m":
		return Window{From: now.AddDate(0, -12, 0), To: now}
	case "all":
		return Window{From: allEpoch, To: now}
	default: // today
		return Window{From: midnight, To: now}
	}
}

// previousWindow симметричное предыдущее окно для процентных изменений.
// Для календарных периодов это полный предыдущий календарный интервал
// (предыдущая неделя = 7 дней до начала текущей), для скользящих — тот же
// размах непосредственно перед From. У "all" предыдущего окна нет.
func previousWindow(period string, w Window) *Window {
	switch period {
	case "today", "yesterday":
		return &Window{From: w.From.AddDate(0, 0, -1), To: w.From}
	case "week":
		return &Window{From: w.From.AddDate(0, 0, -7), To: w.From}
	case "month":
		return &Window{From: w.From.AddDate(0, -1, 0), To: w.From}
	case "year":
		return &Window{From: w.From.AddDate(-1, 0, 0), To: w.From}
	case "30d", "6m", "12m":
		span := w.To.Sub(w.From)
		return &Window{From: w.From.Add(-span), To: w.From}
	default: // all
		return nil
	}
}

// chartUnit гранулярность графика для периода
func chartUnit(period string) string {
	switch period {
	case "today", "yesterday":
		return "hour"
	case "week", "30d", "month":
		return "day"
	case "6m":
		return "week"
	default: // year, 12m, all
		return "month"
	}
}

// bucketLabel форматирует метку корзины графика по гранулярности
func bucketLabel(t time.Time, unit string) string {
	switch unit {
	case "hour":
		return t.Format("2006-01-02 15:00")
	case "day", "week":
		return t.Format("2006-01-02")
	default: // month
		return t.Format("2006-01")
	}
}

// PercentDelta округлённое процентное изменение (current - previous) / previous.
// nil при previous = 0: бесконечный рост не имеет осмысленного процента.
func PercentDelta(current, previous float64) *int64 {
	if previous == 0 {
		return nil
	}
	d := int64(math.Round((current - previous) / previous * 100))
	return &d
}

// roundRate округлённая доля part/whole в процентах; 0 при whole = 0
func roundRate(part, whole int64) int64 {
	if whole == 0 {
		return 0
	}
	return int64(math.Round(float64(part) / float64(whole) * 100))
}
