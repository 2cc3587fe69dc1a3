package inmemdb

import (
	"context"

	"github.com/Ing-la/future-navigator/core/ai"
)

type aiConfigRepository struct {
	db *aiConfigTable
}

var _ ai.ConfigRepository = (*aiConfigRepository)(nil)

func NewAIConfigRepository(db *DB) *aiConfigRepository {
	return &aiConfigRepository{db: db.aiConfig}
}

func (repo *aiConfigRepository) GetConfig(_ context.Context, provider string) (ai.ProviderConfig, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cfg, ok := repo.db.table[provider]; ok {
		return *cfg, nil
	}
	return ai.ProviderConfig{}, ai.ErrNotFound
}

func (repo *aiConfigRepository) SaveConfig(_ context.Context, cfg ai.ProviderConfig) (ai.ProviderConfig, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[cfg.Provider]; ok {
		cfg.ID = orig.ID
		cfg.CreatedAt = orig.CreatedAt
	} else {
		cfg.ID = newID()
	}
	repo.db.table[cfg.Provider] = &cfg
	return cfg, nil
}
