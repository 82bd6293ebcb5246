package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
	"github.com/SergeiKhy/webstats/internal/tracker"
	"go.uber.org/zap"
)

// Ошибки шлюза приёма событий
var (
	ErrUnknownToken = errors.New("неизвестный токен сайта")
	ErrEmptyPath    = errors.New("пустой path события")
)

// Границы нормализации полей
const (
	maxPathLen     = 2000
	maxNameLen     = 100
	maxReferrerLen = 2000

	siteCacheTTL = 5 * time.Minute
)

// Страна принимается только как ровно две буквы A-Z
var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// CollectPayload тело collect-запроса в компактной нотации трекера.
// Числовые поля объявлены как any: клиенты шлют и числа, и строки,
// непарсабельное значение превращается в null, а не в ошибку.
type CollectPayload struct {
	Path         string `json:"p"`
	Referrer     string `json:"r"`
	Name         string `json:"n"`
	ScreenWidth  any    `json:"sw"`
	ScreenHeight any    `json:"sh"`
	DurationMs   any    `json:"d"`
	Country      string `json:"c"`
	UserAgent    string `json:"-"` // заполняется из заголовка запроса
}

// IngestService синхронное ядро шлюза приёма событий
type IngestService interface {
	HandleCollect(ctx context.Context, token, clientIP string, payload *CollectPayload) error
}

type ingestService struct {
	sites     repository.SiteRepository
	siteCache repository.SiteCacheRepository
	registry  *tracker.Registry
	pipeline  EventPipeline
	logger    *zap.Logger
}

// NewIngestService создаёт новый сервис приёма событий
func NewIngestService(
	sites repository.SiteRepository,
	siteCache repository.SiteCacheRepository,
	registry *tracker.Registry,
	pipeline EventPipeline,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		sites:     sites,
		siteCache: siteCache,
		registry:  registry,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// HandleCollect обрабатывает одно входящее событие.
// Синхронный путь не выполняет блокирующий I/O кроме поиска сайта по токену
// (горячий путь закрыт Redis-кэшем); персист уходит в пайплайн без ожидания.
func (s *ingestService) HandleCollect(ctx context.Context, token, clientIP string, payload *CollectPayload) error {
	if token == "" {
		return ErrUnknownToken
	}

	site, err := s.lookupSite(ctx, token)
	if err != nil {
		return err
	}

	if strings.TrimSpace(payload.Path) == "" {
		return ErrEmptyPath
	}

	// Хэшируем IP до того, как сырое значение увидит любой другой шаг
	ipHash := HashIP(clientIP)

	event := normalizeEvent(site.ID, ipHash, payload)

	// Трекер "онлайн сейчас": синхронно, in-memory, без I/O
	s.registry.EnsureStarted(site.ID).Record(ipHash)

	// Fire-and-forget: ответ клиенту не ждёт персиста
	s.pipeline.Submit(event)

	return nil
}

// lookupSite ищет сайт по токену: сначала Redis, затем БД.
// Ошибка кэша не фатальна — просто идём в БД, как при промахе.
func (s *ingestService) lookupSite(ctx context.Context, token string) (*models.Site, error) {
	if site, err := s.siteCache.Get(ctx, token); err == nil {
		return site, nil
	}

	site, err := s.sites.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSiteNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}

	// Кэшируем результат; ошибка записи в кэш не прерывает запрос
	if err := s.siteCache.Set(ctx, token, site, siteCacheTTL); err != nil {
		s.logger.Debug("Не удалось закэшировать сайт", zap.Error(err))
	}

	return site, nil
}

// normalizeEvent приводит сырое тело запроса к неизменяемому событию
func normalizeEvent(siteID int64, ipHash string, payload *CollectPayload) *models.Event {
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = models.EventPageview
	}

	event := &models.Event{
		SiteID:       siteID,
		Name:         truncate(name, maxNameLen),
		Path:         truncate(strings.TrimSpace(payload.Path), maxPathLen),
		Referrer:     truncate(strings.TrimSpace(payload.Referrer), maxReferrerLen),
		UserAgent:    payload.UserAgent,
		ScreenWidth:  lenientInt(payload.ScreenWidth),
		ScreenHeight: lenientInt(payload.ScreenHeight),
		Country:      normalizeCountry(payload.Country),
		IPHash:       ipHash,
		InsertedAt:   time.Now().UTC(),
	}

	// duration_ms осмыслен только для duration-событий и не бывает отрицательным
	if event.Name == models.EventDuration {
		if d := lenientInt64(payload.DurationMs); d != nil && *d >= 0 {
			event.DurationMs = d
		}
	}

	return event
}

// HashIP одностороннее хэширование IP: SHA-256 в нижнем hex.
// Сырой адрес нигде не сохраняется.
func HashIP(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// normalizeCountry принимает только ровно две буквы после приведения к верхнему регистру
func normalizeCountry(raw string) *string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if !countryPattern.MatchString(c) {
		return nil
	}
	return &c
}

// lenientInt снисходительный парсинг целого: число, строка или json.Number;
// всё непарсабельное превращается в nil, никогда в ошибку
func lenientInt(v any) *int {
	if n := lenientInt64(v); n != nil {
		i := int(*n)
		return &i
	}
	return nil
}

func lenientInt64(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		i := int64(n)
		return &i
	case int:
		i := int64(n)
		return &i
	case int64:
		return &n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return &i
		}
		if f, err := n.Float64(); err == nil {
			i := int64(f)
			return &i
		}
		return nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			i := int64(f)
			return &i
		}
		return nil
	default:
		return nil
	}
}

// truncate ограничивает длину строки в байтах
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
