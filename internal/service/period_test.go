package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidPeriods проверяет состав и количество токенов периодов
func TestValidPeriods(t *testing.T) {
	periods := ValidPeriods()
	assert.Len(t, periods, 9)
	assert.Equal(t, []string{
		"today", "yesterday", "week", "month", "year", "30d", "6m", "12m", "all",
	}, periods)
}

// TestNormalizePeriod проверяет откат нераспознанного периода к today
func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, "week", normalizePeriod("week"))
	assert.Equal(t, "today", normalizePeriod("fortnight"))
	assert.Equal(t, "today", normalizePeriod(""))
}

// TestLoadLocation проверяет откат неизвестной таймзоны к UTC
func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation(""))
	assert.Equal(t, time.UTC, loadLocation("Not/AZone"))
	assert.Equal(t, "Europe/Moscow", loadLocation("Europe/Moscow").String())
}

// TestPeriodWindow_Calendar проверяет календарные окна в UTC
func TestPeriodWindow_Calendar(t *testing.T) {
	// Среда, 15 мая 2024, 12:30 UTC
	now := time.Date(2024, 5, 15, 12, 30, 0, 0, time.UTC)

	w := periodWindow("today", now, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, now, w.To)

	w = periodWindow("yesterday", now, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), w.To)

	// Неделя начинается с ближайшего прошедшего понедельника
	w = periodWindow("week", now, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, now, w.To)

	w = periodWindow("month", now, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), w.From)

	w = periodWindow("year", now, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.From)

	w = periodWindow("all", now, time.UTC)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), w.From)
}

// TestPeriodWindow_WeekFromMonday проверяет границу недели в сам понедельник
func TestPeriodWindow_WeekFromMonday(t *testing.T) {
	// Понедельник, 13 мая 2024
	now := time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC)

	w := periodWindow("week", now, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), w.From)
}

// TestPeriodWindow_CallerTimezone проверяет привязку полуночи к таймзоне клиента
func TestPeriodWindow_CallerTimezone(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	// 22:00 UTC 15 мая = 01:00 16 мая в Москве: "сегодня" уже 16-е
	now := time.Date(2024, 5, 15, 22, 0, 0, 0, time.UTC)

	w := periodWindow("today", now, moscow)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, moscow), w.From)
	// Московская полночь 16-го = 21:00 UTC 15-го
	assert.True(t, w.From.Equal(time.Date(2024, 5, 15, 21, 0, 0, 0, time.UTC)))
}

// TestPeriodWindow_Rolling проверяет скользящие окна, независимые от таймзоны
func TestPeriodWindow_Rolling(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 30, 0, 0, time.UTC)

	w := periodWindow("30d", now, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, -30), w.From)
	assert.Equal(t, now, w.To)

	w = periodWindow("6m", now, time.UTC)
	assert.Equal(t, now.AddDate(0, -6, 0), w.From)

	w = periodWindow("12m", now, time.UTC)
	assert.Equal(t, now.AddDate(0, -12, 0), w.From)
}

// TestPreviousWindow проверяет предыдущие окна для процентных изменений
func TestPreviousWindow(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 30, 0, 0, time.UTC)

	// Предыдущая неделя — полные 7 дней до начала текущей
	w := periodWindow("week", now, time.UTC)
	prev := previousWindow("week", w)
	require.NotNil(t, prev)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), prev.From)
	assert.Equal(t, w.From, prev.To)

	// Предыдущий месяц — полный апрель
	w = periodWindow("month", now, time.UTC)
	prev = previousWindow("month", w)
	require.NotNil(t, prev)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), prev.From)

	// Скользящее окно — тот же размах перед From
	w = periodWindow("30d", now, time.UTC)
	prev = previousWindow("30d", w)
	require.NotNil(t, prev)
	assert.Equal(t, w.From, prev.To)
	assert.Equal(t, w.To.Sub(w.From), prev.To.Sub(prev.From))

	// У "all" предыдущего окна нет
	w = periodWindow("all", now, time.UTC)
	assert.Nil(t, previousWindow("all", w))
}

// TestChartUnit проверяет гранулярность графика по периодам
func TestChartUnit(t *testing.T) {
	assert.Equal(t, "hour", chartUnit("today"))
	assert.Equal(t, "hour", chartUnit("yesterday"))
	assert.Equal(t, "day", chartUnit("week"))
	assert.Equal(t, "day", chartUnit("30d"))
	assert.Equal(t, "day", chartUnit("month"))
	assert.Equal(t, "week", chartUnit("6m"))
	assert.Equal(t, "month", chartUnit("year"))
	assert.Equal(t, "month", chartUnit("12m"))
	assert.Equal(t, "month", chartUnit("all"))
}

// TestPercentDelta проверяет процентные изменения и их граничные случаи
func TestPercentDelta(t *testing.T) {
	// previous = 0 — изменение не определено
	assert.Nil(t, PercentDelta(0, 0))
	assert.Nil(t, PercentDelta(10, 0))

	d := PercentDelta(10, 5)
	require.NotNil(t, d)
	assert.Equal(t, int64(100), *d)

	d = PercentDelta(5, 10)
	require.NotNil(t, d)
	assert.Equal(t, int64(-50), *d)

	d = PercentDelta(5, 5)
	require.NotNil(t, d)
	assert.Equal(t, int64(0), *d)
}

// TestRoundRate проверяет округление долей с защитой от деления на ноль
func TestRoundRate(t *testing.T) {
	assert.Equal(t, int64(0), roundRate(0, 0))
	assert.Equal(t, int64(0), roundRate(5, 0))
	assert.Equal(t, int64(50), roundRate(1, 2))
	assert.Equal(t, int64(100), roundRate(1, 1))
	assert.Equal(t, int64(33), roundRate(1, 3))
	assert.Equal(t, int64(67), roundRate(2, 3))
}

// TestBucketLabel проверяет форматирование меток графика
func TestBucketLabel(t *testing.T) {
	ts := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-15 14:00", bucketLabel(ts, "hour"))
	assert.Equal(t, "2024-05-15", bucketLabel(ts, "day"))
	assert.Equal(t, "2024-05-15", bucketLabel(ts, "week"))
	assert.Equal(t, "2024-05", bucketLabel(ts, "month"))
}
