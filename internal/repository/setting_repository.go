package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"letterdesk/internal/model"
)

// SettingRepository stores string-keyed settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	All(ctx context.Context) (map[string]string, error)
	// SetMany upserts every pair in one transaction.
	SetMany(ctx context.Context, values map[string]string) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, error) {
	var s model.Setting
	if err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error; err != nil {
		return "", translate(err)
	}
	return s.Value, nil
}

func (r *settingRepository) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	var rows []model.Setting
	if err := r.db.WithContext(ctx).Where("setting_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toMap(rows), nil
}

func (r *settingRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []model.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toMap(rows), nil
}

func (r *settingRepository) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]model.Setting, 0, len(values))
	for k, v := range values {
		rows = append(rows, model.Setting{Key: k, Value: v})
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
		}).Create(&rows).Error
	})
	return translate(err)
}

func toMap(rows []model.Setting) map[string]string {
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Key] = s.Value
	}
	return out
}
