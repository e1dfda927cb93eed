package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// OrderLineItem is one uploaded document plus its print configuration. Page
// counts arrive pre-extracted from the upload collaborator.
type OrderLineItem struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	FileRef          string            `gorm:"column:file_ref;not null"`
	FileName         string            `gorm:"column:file_name;not null"`
	Pages            int               `gorm:"column:pages;not null"`
	Copies           int               `gorm:"column:copies;not null;default:1"`
	PaperSize        enums.PaperSize   `gorm:"column:paper_size;type:paper_size;not null;default:'a4'"`
	ColorMode        enums.ColorMode   `gorm:"column:color_mode;type:color_mode;not null"`
	Sides            enums.PrintSides  `gorm:"column:sides;type:print_sides;not null;default:'single'"`
	LaminationSheets int               `gorm:"column:lamination_sheets;not null;default:0"`
	BindingKind      enums.BindingKind `gorm:"column:binding_kind;type:binding_kind;not null;default:'none'"`
	PerSheetRate     decimal.Decimal   `gorm:"column:per_sheet_rate;type:numeric(12,2);not null"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}
