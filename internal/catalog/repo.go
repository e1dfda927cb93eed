package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
)

// Repository defines persistence operations for pricing catalogs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, catalog *models.PricingCatalog) (*models.PricingCatalog, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingCatalog, error)
	FindActiveGlobal(ctx context.Context) (*models.PricingCatalog, error)
	FindActiveOverride(ctx context.Context, vendorID uuid.UUID) (*models.PricingCatalog, error)
	MaxGlobalVersion(ctx context.Context) (int, error)
	DeactivateActive(ctx context.Context, vendorID *uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit int) ([]models.PricingCatalog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, catalog *models.PricingCatalog) (*models.PricingCatalog, error) {
	if err := r.db.WithContext(ctx).Create(catalog).Error; err != nil {
		return nil, err
	}
	return catalog, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingCatalog, error) {
	var catalog models.PricingCatalog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&catalog).Error
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (r *repository) FindActiveGlobal(ctx context.Context) (*models.PricingCatalog, error) {
	var catalog models.PricingCatalog
	err := r.db.WithContext(ctx).
		Where("vendor_id IS NULL AND active").
		First(&catalog).Error
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

// FindActiveOverride returns the vendor's own active catalog. It never falls
// back to the global catalog; merging the two price lists is the service's
// concern.
func (r *repository) FindActiveOverride(ctx context.Context, vendorID uuid.UUID) (*models.PricingCatalog, error) {
	var catalog models.PricingCatalog
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active", vendorID).
		First(&catalog).Error
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (r *repository) MaxGlobalVersion(ctx context.Context) (int, error) {
	var version int
	err := r.db.WithContext(ctx).
		Model(&models.PricingCatalog{}).
		Where("vendor_id IS NULL").
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

func (r *repository) DeactivateActive(ctx context.Context, vendorID *uuid.UUID) error {
	query := r.db.WithContext(ctx).Model(&models.PricingCatalog{}).Where("active")
	if vendorID == nil {
		query = query.Where("vendor_id IS NULL")
	} else {
		query = query.Where("vendor_id = ?", *vendorID)
	}
	return query.Update("active", false).Error
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PricingCatalog{}).
		Where("id = ?", id).
		Update("active", true).Error
}

func (r *repository) List(ctx context.Context, limit int) ([]models.PricingCatalog, error) {
	if limit <= 0 {
		limit = 50
	}
	var catalogs []models.PricingCatalog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&catalogs).Error
	return catalogs, err
}
