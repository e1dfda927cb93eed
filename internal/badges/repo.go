package badges

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed badge config repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListConfigs(ctx context.Context) ([]models.BadgeConfig, error) {
	var configs []models.BadgeConfig
	if err := r.db.WithContext(ctx).Order("min_sales ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repository) SaveConfigs(ctx context.Context, configs []models.BadgeConfig) error {
	if len(configs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "badge"}},
			DoUpdates: clause.AssignmentColumns([]string{"min_sales", "color", "updated_at"}),
		}).
		Create(&configs).Error
}
