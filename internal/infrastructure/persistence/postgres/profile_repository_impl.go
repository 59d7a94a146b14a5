package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/lib/pq"
)

const profileColumns = `id, analyzed_at, response_time_ms, memory_usage_mb, cache_hit_rate,
		error_rate, user_satisfaction, collected_at, recommendations, applied`

// PostgresProfileRepository реализует repository.ProfileRepository для PostgreSQL
type PostgresProfileRepository struct {
	db *sql.DB
}

// NewPostgresProfileRepository создает новый PostgreSQL repository
func NewPostgresProfileRepository(db *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{
		db: db,
	}
}

// Save сохраняет профиль. Повторное сохранение обновляет список примененных оптимизаций.
func (r *PostgresProfileRepository) Save(ctx context.Context, profile *entity.OptimizationProfile) error {
	model := ToDBModel(profile)

	query := `
		INSERT INTO optimization_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET applied = EXCLUDED.applied
	`

	_, err := r.db.ExecContext(ctx, query,
		model.ID,
		model.AnalyzedAt,
		model.ResponseTimeMs,
		model.MemoryUsageMb,
		model.CacheHitRate,
		model.ErrorRate,
		model.UserSatisfaction,
		model.CollectedAt,
		pq.Array(model.Recommendations),
		pq.Array(model.Applied),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// FindByID находит профиль по идентификатору
func (r *PostgresProfileRepository) FindByID(ctx context.Context, id string) (*entity.OptimizationProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM optimization_profiles WHERE id = $1`

	return r.findOne(ctx, query, id)
}

// FindLatest находит самый свежий профиль
func (r *PostgresProfileRepository) FindLatest(ctx context.Context) (*entity.OptimizationProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM optimization_profiles
		ORDER BY analyzed_at DESC
		LIMIT 1
	`

	return r.findOne(ctx, query)
}

// FindRecent находит последние профили, от новых к старым
func (r *PostgresProfileRepository) FindRecent(ctx context.Context, limit int) ([]*entity.OptimizationProfile, error) {
	if limit <= 0 {
		return []*entity.OptimizationProfile{}, nil
	}

	query := `
		SELECT ` + profileColumns + `
		FROM optimization_profiles
		ORDER BY analyzed_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*entity.OptimizationProfile, 0, limit)
	for rows.Next() {
		model, err := ScanProfileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}

		profile, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return profiles, nil
}

// DeleteOlderThan удаляет профили, проанализированные раньше cutoff
func (r *PostgresProfileRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM optimization_profiles WHERE analyzed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old profiles: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

func (r *PostgresProfileRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.OptimizationProfile, error) {
	model, err := ScanProfileRow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	return ToEntity(model)
}
