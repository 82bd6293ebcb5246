package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/webstats/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	ErrSiteNotFound = errors.New("site not found")
	ErrTokenExists  = errors.New("site token already exists")
)

type SiteRepository interface {
	Create(ctx context.Context, site *models.Site) error
	GetByToken(ctx context.Context, token string) (*models.Site, error)
	GetByID(ctx context.Context, id int64) (*models.Site, error)
	Delete(ctx context.Context, id int64) error
}

type siteRepository struct {
	db *PostgresDB
}

func NewSiteRepository(db *PostgresDB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) Create(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (domain, token, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		site.Domain,
		site.Token,
		site.CreatedAt,
	).Scan(&site.ID, &site.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to create site: %w", err)
	}

	return nil
}

func (r *siteRepository) GetByToken(ctx context.Context, token string) (*models.Site, error) {
	query := `
		SELECT id, domain, token, created_at
		FROM sites
		WHERE token = $1
	`

	site := &models.Site{}
	err := r.db.Pool.QueryRow(ctx, query, token).Scan(
		&site.ID,
		&site.Domain,
		&site.Token,
		&site.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site by token: %w", err)
	}

	return site, nil
}

func (r *siteRepository) GetByID(ctx context.Context, id int64) (*models.Site, error) {
	query := `
		SELECT id, domain, token, created_at
		FROM sites
		WHERE id = $1
	`

	site := &models.Site{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&site.ID,
		&site.Domain,
		&site.Token,
		&site.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return site, nil
}

// Delete удаляет сайт; события удаляются каскадно (FK ON DELETE CASCADE)
func (r *siteRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM sites WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSiteNotFound
	}

	return nil
}

// Проверка на уникальность
func isUniqueViolation(err error) bool {
	// Для pgx v5 проверяем текст ошибки
	return err != nil && contains(err.Error(), "unique")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
