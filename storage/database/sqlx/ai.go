package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/ai"
)

type aiConfigRow struct {
	ID              string    `db:"id"`
	Provider        string    `db:"provider"`
	APIKeyEncrypted string    `db:"api_key_encrypted"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type aiConfigRepository struct {
	db *sqlx.DB
}

var _ ai.ConfigRepository = (*aiConfigRepository)(nil)

// NewAIConfigRepository wraps an opened postgres handle.
func NewAIConfigRepository(db *sql.DB) *aiConfigRepository {
	return &aiConfigRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo aiConfigRepository) unboil(row aiConfigRow) ai.ProviderConfig {
	return ai.ProviderConfig{
		ID:           row.ID,
		Provider:     row.Provider,
		APIKeySealed: row.APIKeyEncrypted,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo aiConfigRepository) GetConfig(ctx context.Context, provider string) (ai.ProviderConfig, error) {
	var row aiConfigRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM ai_config WHERE provider = $1`, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return ai.ProviderConfig{}, ai.ErrNotFound
		}
		return ai.ProviderConfig{}, errors.Wrap(err, "getting AI config")
	}
	return repo.unboil(row), nil
}

func (repo aiConfigRepository) SaveConfig(ctx context.Context, cfg ai.ProviderConfig) (ai.ProviderConfig, error) {
	row := aiConfigRow{
		ID:              uuid.New().String(),
		Provider:        cfg.Provider,
		APIKeyEncrypted: cfg.APIKeySealed,
		IsActive:        cfg.IsActive,
		CreatedAt:       cfg.CreatedAt.UTC(),
		UpdatedAt:       cfg.UpdatedAt.UTC(),
	}
	q, args, err := repo.db.BindNamed(`
		INSERT INTO ai_config (id, provider, api_key_encrypted, is_active, created_at, updated_at)
		VALUES (:id, :provider, :api_key_encrypted, :is_active, :created_at, :updated_at)
		ON CONFLICT (provider) DO UPDATE SET
			api_key_encrypted = EXCLUDED.api_key_encrypted,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING *`, row)
	if err != nil {
		return ai.ProviderConfig{}, errors.Wrap(err, "binding AI config")
	}
	if err = repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return ai.ProviderConfig{}, errors.Wrap(err, "saving AI config")
	}
	return repo.unboil(row), nil
}
