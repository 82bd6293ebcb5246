package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/webstats/internal/cache"
	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/SergeiKhy/webstats/internal/repository"
	"github.com/SergeiKhy/webstats/internal/tracker"
	"go.uber.org/zap"
)

// Длина токена сайта в байтах (32 hex-символа)
const tokenBytes = 16

var ErrEmptyDomain = errors.New("пустой домен сайта")

// SiteService управление сайтами для внешних коллабораторов
type SiteService interface {
	CreateSite(ctx context.Context, input *models.CreateSiteInput) (*models.Site, error)
	GetSite(ctx context.Context, id int64) (*models.Site, error)
	DeleteSite(ctx context.Context, id int64) error
}

type siteService struct {
	sites      repository.SiteRepository
	siteCache  repository.SiteCacheRepository
	statsCache *cache.StatsCache
	registry   *tracker.Registry
	logger     *zap.Logger
}

// NewSiteService создаёт новый сервис сайтов
func NewSiteService(
	sites repository.SiteRepository,
	siteCache repository.SiteCacheRepository,
	statsCache *cache.StatsCache,
	registry *tracker.Registry,
	logger *zap.Logger,
) SiteService {
	return &siteService{
		sites:      sites,
		siteCache:  siteCache,
		statsCache: statsCache,
		registry:   registry,
		logger:     logger,
	}
}

// CreateSite регистрирует сайт и выдаёт ему токен приёма событий
func (s *siteService) CreateSite(ctx context.Context, input *models.CreateSiteInput) (*models.Site, error) {
	if input.Domain == "" {
		return nil, ErrEmptyDomain
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	site := &models.Site{
		Domain:    input.Domain,
		Token:     token,
		CreatedAt: time.Now(),
	}

	if err := s.sites.Create(ctx, site); err != nil {
		if errors.Is(err, repository.ErrTokenExists) {
			// Коллизия токена — крайне маловероятна, пробуем ещё раз
			return s.CreateSite(ctx, input)
		}
		return nil, err
	}

	return site, nil
}

// GetSite возвращает сайт по идентификатору
func (s *siteService) GetSite(ctx context.Context, id int64) (*models.Site, error) {
	return s.sites.GetByID(ctx, id)
}

// DeleteSite удаляет сайт: события уходят каскадом,
// кэши и трекер вычищаются следом
func (s *siteService) DeleteSite(ctx context.Context, id int64) error {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sites.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.siteCache.Delete(ctx, site.Token); err != nil {
		s.logger.Warn("Не удалось удалить токен из кэша", zap.Int64("site_id", id), zap.Error(err))
	}
	s.statsCache.InvalidateSite(id)
	s.registry.Remove(id)

	return nil
}

// generateToken генерирует криптослучайный hex-токен сайта
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
