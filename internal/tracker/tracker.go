package tracker

import (
	"sync"
	"time"
)

// ActiveWindow окно, в пределах которого посетитель считается "онлайн"
const ActiveWindow = 30 * time.Minute

const ipHashLength = 64

// Tracker in-memory состояние недавних посетителей одного сайта.
// Состояние не персистится: рестарт процесса обнуляет счётчики,
// это принятое приближение для "онлайн сейчас".
type Tracker struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Record обновляет отметку последней активности посетителя.
// Невалидный ip_hash молча игнорируется: запись не должна ронять fast path.
func (t *Tracker) Record(ipHash string) {
	if len(ipHash) != ipHashLength {
		return
	}

	t.mu.Lock()
	t.lastSeen[ipHash] = t.now()
	t.mu.Unlock()
}

// CountActive количество посетителей с активностью в пределах window.
// Фильтрация выполняется в момент запроса, состояние не хранится отфильтрованным.
// O(n) по карте — приемлемо при ожидаемой кардинальности одного сайта.
func (t *Tracker) CountActive(window time.Duration) int64 {
	cutoff := t.now().Add(-window)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var count int64
	for _, seen := range t.lastSeen {
		if seen.After(cutoff) {
			count++
		}
	}
	return count
}

// Registry карта "сайт -> трекер" с ленивым созданием.
type Registry struct {
	mu       sync.RWMutex
	trackers map[int64]*Tracker
}

func NewRegistry() *Registry {
	return &Registry{
		trackers: make(map[int64]*Tracker),
	}
}

// EnsureStarted возвращает трекер сайта, создавая его при первом обращении.
// Безопасно при конкурентном первом касании: проигравший гонку создатель
// обнаруживает и переиспользует экземпляр победителя.
func (r *Registry) EnsureStarted(siteID int64) *Tracker {
	r.mu.RLock()
	t, ok := r.trackers[siteID]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Повторная проверка под write-lock
	if t, ok := r.trackers[siteID]; ok {
		return t
	}

	t = NewTracker()
	r.trackers[siteID] = t
	return t
}

// Lookup возвращает трекер без создания; отсутствие означает, что сайт
// не видел событий с момента старта процесса и нужен fallback в БД.
func (r *Registry) Lookup(siteID int64) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trackers[siteID]
	return t, ok
}

// Remove выбрасывает трекер сайта (используется при удалении сайта)
func (r *Registry) Remove(siteID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, siteID)
}
