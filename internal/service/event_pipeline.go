package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount = 3    // Количество воркеров
	defaultQueueSize   = 1000 // Размер буфера канала
	persistTimeout     = 5 * time.Second
)

// siteInvalidator минимальный интерфейс сброса кэша статистики сайта
type siteInvalidator interface {
	InvalidateSite(siteID int64)
}

// EventPipeline асинхронный путь записи: персист -> сброс кэша -> сигнал.
// Шлюз никогда не ждёт завершения; ошибка персиста логируется и глотается.
type EventPipeline interface {
	Start()
	Stop()
	Submit(event *models.Event) bool
	QueueStats() QueueStats
}

// eventPipeline реализация на worker pool
type eventPipeline struct {
	events      repository.EventRepository
	cache       siteInvalidator
	notifier    *ChangeNotifier
	logger      *zap.Logger
	queue       chan *models.Event
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEventPipeline создаёт новый пайплайн записи событий
func NewEventPipeline(
	events repository.EventRepository,
	cache siteInvalidator,
	notifier *ChangeNotifier,
	logger *zap.Logger,
) EventPipeline {
	return &eventPipeline{
		events:      events,
		cache:       cache,
		notifier:    notifier,
		logger:      logger,
		queue:       make(chan *models.Event, defaultQueueSize),
		workerCount: defaultWorkerCount,
	}
}

// Start запускает worker pool
func (p *eventPipeline) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров пайплайна событий", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает worker pool
func (p *eventPipeline) Stop() {
	p.logger.Info("Остановка пайплайна событий...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Пайплайн событий остановлен")
}

// Submit отправляет событие в очередь (неблокирующая операция).
// Очередь ограничена: при переполнении событие отбрасывается с предупреждением —
// это выборочные данные, потеря допустима, блокировка fast path — нет.
func (p *eventPipeline) Submit(event *models.Event) bool {
	select {
	case p.queue <- event:
		return true
	default:
		p.logger.Warn("Очередь пайплайна заполнена, событие потеряно",
			zap.Int64("site_id", event.SiteID),
		)
		return false
	}
}

// worker обрабатывает события из очереди
func (p *eventPipeline) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер пайплайна запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Воркер пайплайна остановлен", zap.Int("id", id))
			return

		case event, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(event)
		}
	}
}

// process один проход пайплайна: персист, инвалидация, сигнал.
// Без ретраев: при ошибке записи событие теряется, остальные шаги не выполняются.
func (p *eventPipeline) process(event *models.Event) {
	ctx, cancel := context.WithTimeout(p.ctx, persistTimeout)
	defer cancel()

	if err := p.events.Insert(ctx, event); err != nil {
		p.logger.Error("Не удалось записать событие",
			zap.Int64("site_id", event.SiteID),
			zap.String("name", event.Name),
			zap.Error(err),
		)
		return
	}

	// Грубая инвалидация: любое записанное событие сбрасывает весь кэш сайта
	p.cache.InvalidateSite(event.SiteID)

	p.notifier.Publish(event.SiteID)
}

// QueueStats возвращает статистику очереди для мониторинга
func (p *eventPipeline) QueueStats() QueueStats {
	return QueueStats{
		BufferSize:  cap(p.queue),
		BufferUsed:  len(p.queue),
		WorkerCount: p.workerCount,
	}
}

// QueueStats статистика очереди worker pool
type QueueStats struct {
	BufferSize  int `json:"buffer_size"`  // Общая ёмкость канала
	BufferUsed  int `json:"buffer_used"`  // Текущее использование
	WorkerCount int `json:"worker_count"` // Количество воркеров
}
