package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

// SettingsKey is the single row holding the saved LLM settings.
const SettingsKey = "default"

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetSettings(ctx context.Context) (*models.SettingsRecord, error) {
	var res models.SettingsRecord
	err := r.db.WithContext(ctx).Where("id = ?", SettingsKey).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		logging.Logger.Error().Err(err).Msg("fail GetSettings")
		return nil, err
	}
	return &res, nil
}

func (r *settingsRepository) SaveSettings(ctx context.Context, settings *models.SettingsRecord) error {
	settings.ID = SettingsKey
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(settings).Error
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail SaveSettings")
		return err
	}
	return nil
}
