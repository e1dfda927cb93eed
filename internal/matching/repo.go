package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed offer repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOffer(ctx context.Context, offer *models.VendorOffer) (*models.VendorOffer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.VendorOffer, error) {
	var offer models.VendorOffer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) ClaimOffer(ctx context.Context, offerID, vendorID uuid.UUID, to enums.OfferStatus, decidedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VendorOffer{}).
		Where("id = ? AND vendor_id = ? AND status = ?", offerID, vendorID, enums.OfferStatusOffered).
		Updates(map[string]any{"status": to, "decided_at": decidedAt})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListDueOffers(ctx context.Context, cutoff time.Time, limit int) ([]models.VendorOffer, error) {
	var offers []models.VendorOffer
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.OfferStatusOffered, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) ListOffersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error) {
	var offers []models.VendorOffer
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("attempt ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) CountAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VendorOffer{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) VoidOpen(ctx context.Context, orderID uuid.UUID, decidedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VendorOffer{}).
		Where("order_id = ? AND status = ?", orderID, enums.OfferStatusOffered).
		Updates(map[string]any{"status": enums.OfferStatusVoided, "decided_at": decidedAt})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
