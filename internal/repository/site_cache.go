package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SergeiKhy/webstats/internal/models"
)

// SiteCacheRepository кэш "токен -> сайт" в Redis.
// Горячий путь: каждый collect-запрос начинается с поиска сайта по токену.
type SiteCacheRepository interface {
	Get(ctx context.Context, token string) (*models.Site, error)
	Set(ctx context.Context, token string, site *models.Site, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

type siteCacheRepository struct {
	redis *RedisDB
}

func NewSiteCacheRepository(redis *RedisDB) SiteCacheRepository {
	return &siteCacheRepository{redis: redis}
}

func (r *siteCacheRepository) Get(ctx context.Context, token string) (*models.Site, error) {
	data, err := r.redis.Client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		return nil, err
	}

	var site models.Site
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to unmarshal site: %w", err)
	}

	return &site, nil
}

func (r *siteCacheRepository) Set(ctx context.Context, token string, site *models.Site, ttl time.Duration) error {
	data, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to marshal site: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(token), data, ttl).Err()
}

func (r *siteCacheRepository) Delete(ctx context.Context, token string) error {
	return r.redis.Client.Del(ctx, r.key(token)).Err()
}

func (r *siteCacheRepository) key(token string) string {
	return "site:token:" + token
}
