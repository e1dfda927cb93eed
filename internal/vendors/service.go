package vendors

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

const registrationAttempts = 5

// BadgeApplier re-evaluates a vendor's badge after a sale, inside the same
// transaction that credited it.
type BadgeApplier interface {
	ApplySale(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
}

// BadgeApplierFunc adapts a plain function to BadgeApplier. Binaries use it
// to wire a badge service constructed after the vendor service.
type BadgeApplierFunc func(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error

func (f BadgeApplierFunc) ApplySale(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
	return f(ctx, tx, vendorID)
}

// Service manages the vendor registry and its counters. It also backs the
// collaborator interfaces the lifecycle, dispatch, and commission services
// declare: the vendor ledger, the dispatch pool, the commission override
// lookup, and the badge vendor store.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Vendor, error)
	Get(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	List(ctx context.Context, params ListParams) ([]models.Vendor, *pagination.Cursor, error)
	SetOnline(ctx context.Context, vendorID uuid.UUID, online bool) error
	UpdateLocation(ctx context.Context, vendorID uuid.UUID, location types.GeographyPoint, radiusKm float64) error
	SetCommissionOverride(ctx context.Context, vendorID uuid.UUID, pct *decimal.Decimal) error
	SetCatalogOverride(ctx context.Context, vendorID uuid.UUID, catalogID *uuid.UUID) error

	ListOnline(ctx context.Context) ([]models.Vendor, error)
	ClaimWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
	ReleaseWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
	RecordCompletion(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, netPayout decimal.Decimal) error
	CommissionOverride(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*decimal.Decimal, error)
	CatalogOverride(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error)
	FindVendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error)
	SetBadge(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, badge enums.VendorBadge) error
}

type service struct {
	repo   Repository
	badges BadgeApplier
	now    func() time.Time
}

// NewService builds the vendor service.
func NewService(repo Repository, badges BadgeApplier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if badges == nil {
		return nil, fmt.Errorf("badge applier required")
	}
	return &service{
		repo:   repo,
		badges: badges,
		now:    time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Vendor, error) {
	if input.Name == "" || input.ShopName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name and shop name required")
	}
	if input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor phone required")
	}
	radius := input.AutoAcceptRadiusKm
	if radius <= 0 {
		radius = 5
	}

	vendor := &models.Vendor{
		Name:               input.Name,
		ShopName:           input.ShopName,
		Phone:              input.Phone,
		Email:              input.Email,
		Location:           input.Location,
		AutoAcceptRadiusKm: radius,
		Badge:              enums.VendorBadgeNone,
	}

	for attempt := 0; ; attempt++ {
		vendor.RegistrationNumber = newRegistrationNumber(s.now())
		created, err := s.repo.Create(ctx, vendor)
		if err == nil {
			return created, nil
		}
		if dbpkg.IsUniqueViolation(err, "registration_number") && attempt < registrationAttempts {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
}

func (s *service) Get(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.FindVendor(ctx, nil, vendorID)
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Vendor, *pagination.Cursor, error) {
	results, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return results, next, nil
}

func (s *service) SetOnline(ctx context.Context, vendorID uuid.UUID, online bool) error {
	return s.update(ctx, vendorID, map[string]any{"online": online})
}

func (s *service) UpdateLocation(ctx context.Context, vendorID uuid.UUID, location types.GeographyPoint, radiusKm float64) error {
	if radiusKm <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "auto-accept radius must be positive")
	}
	return s.update(ctx, vendorID, map[string]any{
		"location":              location,
		"auto_accept_radius_km": radiusKm,
	})
}

func (s *service) SetCommissionOverride(ctx context.Context, vendorID uuid.UUID, pct *decimal.Decimal) error {
	if pct != nil && (pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(50))) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission percentage must be between 0 and 50")
	}
	return s.update(ctx, vendorID, map[string]any{"commission_override_pct": pct})
}

func (s *service) SetCatalogOverride(ctx context.Context, vendorID uuid.UUID, catalogID *uuid.UUID) error {
	return s.update(ctx, vendorID, map[string]any{"override_catalog_id": catalogID})
}

func (s *service) ListOnline(ctx context.Context) ([]models.Vendor, error) {
	online, err := s.repo.ListOnline(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list online vendors")
	}
	return online, nil
}

func (s *service) ClaimWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
	if err := s.repo.WithTx(tx).AdjustWorkload(ctx, vendorID, 1); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim workload")
	}
	return nil
}

func (s *service) ReleaseWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
	if err := s.repo.WithTx(tx).AdjustWorkload(ctx, vendorID, -1); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release workload")
	}
	return nil
}

func (s *service) RecordCompletion(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, netPayout decimal.Decimal) error {
	if err := s.repo.WithTx(tx).AddCompletion(ctx, vendorID, netPayout); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record completion")
	}
	return s.badges.ApplySale(ctx, tx, vendorID)
}

func (s *service) CommissionOverride(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*decimal.Decimal, error) {
	vendor, err := s.FindVendor(ctx, tx, vendorID)
	if err != nil {
		return nil, err
	}
	return vendor.CommissionOverridePct, nil
}

// CatalogOverride returns the catalog the admin pinned for the vendor, nil
// when the vendor prices at the shared list. Catalog resolution consults it
// before any vendor-scoped catalog.
func (s *service) CatalogOverride(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error) {
	vendor, err := s.FindVendor(ctx, nil, vendorID)
	if err != nil {
		return nil, err
	}
	return vendor.OverrideCatalogID, nil
}

func (s *service) FindVendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.WithTx(tx).FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) SetBadge(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, badge enums.VendorBadge) error {
	if !badge.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid badge")
	}
	return s.repo.WithTx(tx).Update(ctx, vendorID, map[string]any{"badge": badge})
}

func (s *service) update(ctx context.Context, vendorID uuid.UUID, updates map[string]any) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if err := s.repo.Update(ctx, vendorID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return nil
}

// newRegistrationNumber builds the vendor-facing registration number, year
// plus a random six digit suffix, retried on the unique index.
func newRegistrationNumber(now time.Time) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		binary.BigEndian.PutUint32(buf[:], uint32(now.UnixNano()))
	}
	suffix := binary.BigEndian.Uint32(buf[:]) % 1_000_000
	return fmt.Sprintf("VP-VND-%d%06d", now.Year(), suffix)
}
