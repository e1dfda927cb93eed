package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error)
}

// ListParams filters the order listing. VendorID scopes the result to one
// vendor's assigned orders.
type ListParams struct {
	Limit    int
	Cursor   *pagination.Cursor
	Status   *enums.OrderStatus
	VendorID *uuid.UUID
}
