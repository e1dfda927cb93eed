package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VendorOverrides exposes the per-vendor catalog pin maintained by the vendor
// service.
type VendorOverrides interface {
	CatalogOverride(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error)
}

// Service defines catalog management and resolution operations.
type Service interface {
	Create(ctx context.Context, input CreateCatalogInput) (*models.PricingCatalog, error)
	Activate(ctx context.Context, catalogID uuid.UUID) error
	Get(ctx context.Context, catalogID uuid.UUID) (*models.PricingCatalog, error)
	List(ctx context.Context, limit int) ([]models.PricingCatalog, error)
	// ResolveActive returns the catalog that prices a new estimate. With a
	// vendor scope, the vendor's override (the admin-pinned catalog first,
	// else the vendor's own active one) is merged over the active global
	// catalog: populated override sections win, empty sections price at
	// global rates.
	ResolveActive(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error)
	// EnsureCurrent fails with a stale-catalog error when the given catalog
	// is no longer the one ResolveActive would hand out.
	EnsureCurrent(ctx context.Context, catalogID uuid.UUID, vendorID *uuid.UUID) (*models.PricingCatalog, error)
}

// CreateCatalogInput carries a full price list for a new catalog version.
type CreateCatalogInput struct {
	Name          string
	VendorID      *uuid.UUID
	EffectiveFrom time.Time
	PaperRates    []types.PaperRate
	ColorTiers    []types.ColorTier
	Binding       []types.BindingCharge
	Lamination    []types.LaminationRate
	Delivery      types.DeliveryChargeRule
}

type service struct {
	repo      Repository
	overrides VendorOverrides
	tx        txRunner
}

// NewService builds the catalog service.
func NewService(repo Repository, overrides VendorOverrides, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if overrides == nil {
		return nil, fmt.Errorf("vendor overrides required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, overrides: overrides, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateCatalogInput) (*models.PricingCatalog, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog name required")
	}
	if err := validatePriceList(input); err != nil {
		return nil, err
	}

	effectiveFrom := input.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now()
	}

	version, err := s.repo.MaxGlobalVersion(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve catalog version")
	}

	catalog := &models.PricingCatalog{
		Version:       version + 1,
		Name:          input.Name,
		VendorID:      input.VendorID,
		EffectiveFrom: effectiveFrom,
		PaperRates:    input.PaperRates,
		ColorTiers:    input.ColorTiers,
		Binding:       input.Binding,
		Lamination:    input.Lamination,
		Delivery:      input.Delivery,
	}

	created, err := s.repo.Create(ctx, catalog)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create catalog")
	}
	return created, nil
}

// Activate flips the active flag to the given catalog version. The previous
// active catalog for the same scope (global or vendor) is deactivated in the
// same transaction so exactly one stays active.
func (s *service) Activate(ctx context.Context, catalogID uuid.UUID) error {
	if catalogID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "catalog id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalog, err := repo.FindByID(ctx, catalogID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
		}
		if catalog.Active {
			return nil
		}
		if err := repo.DeactivateActive(ctx, catalog.VendorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate current catalog")
		}
		if err := repo.Activate(ctx, catalog.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate catalog")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, catalogID uuid.UUID) (*models.PricingCatalog, error) {
	catalog, err := s.repo.FindByID(ctx, catalogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return catalog, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.PricingCatalog, error) {
	catalogs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalogs")
	}
	return catalogs, nil
}

func (s *service) ResolveActive(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
	global, err := s.repo.FindActiveGlobal(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve active catalog")
		}
		global = nil
	}

	if vendorID == nil {
		if global == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active pricing catalog")
		}
		return global, nil
	}

	override, err := s.vendorOverride(ctx, *vendorID)
	if err != nil {
		return nil, err
	}
	switch {
	case override == nil && global == nil:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active pricing catalog")
	case override == nil:
		return global, nil
	case global == nil:
		return override, nil
	}
	return mergeCatalogs(global, override), nil
}

// vendorOverride resolves the catalog overriding global pricing for a vendor:
// the admin-pinned catalog when one is set, else the vendor's own active
// catalog. Nil means the vendor prices at global rates.
func (s *service) vendorOverride(ctx context.Context, vendorID uuid.UUID) (*models.PricingCatalog, error) {
	pinned, err := s.overrides.CatalogOverride(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if pinned != nil {
		catalog, err := s.repo.FindByID(ctx, *pinned)
		if err == nil {
			return catalog, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pinned catalog")
		}
		// A pin pointing at a deleted catalog falls through to the
		// vendor-scoped lookup.
	}

	catalog, err := s.repo.FindActiveOverride(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve vendor catalog")
	}
	return catalog, nil
}

// mergeCatalogs overlays a vendor override on the global price list. Sections
// the override populates win; sections it leaves empty price at global rates,
// never at zero. The merged catalog keeps the override's identity so stale
// checks pin the vendor's version.
func mergeCatalogs(global, override *models.PricingCatalog) *models.PricingCatalog {
	merged := *override
	if len(merged.PaperRates) == 0 {
		merged.PaperRates = global.PaperRates
	}
	if len(merged.ColorTiers) == 0 {
		merged.ColorTiers = global.ColorTiers
	}
	if len(merged.Binding) == 0 {
		merged.Binding = global.Binding
	}
	if len(merged.Lamination) == 0 {
		merged.Lamination = global.Lamination
	}
	if !deliveryDefined(merged.Delivery) {
		merged.Delivery = global.Delivery
	}
	return &merged
}

// deliveryDefined treats an all-zero rule as "not set". A free-delivery
// override has to say so explicitly with a zero FreeAbove threshold.
func deliveryDefined(rule types.DeliveryChargeRule) bool {
	return !rule.BaseRate.IsZero() || !rule.PerKmRate.IsZero() || rule.FreeAbove != nil
}

func (s *service) EnsureCurrent(ctx context.Context, catalogID uuid.UUID, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
	current, err := s.ResolveActive(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if current.ID != catalogID {
		return nil, pkgerrors.New(pkgerrors.CodeStaleCatalog, "pricing catalog has changed, re-estimate required")
	}
	return current, nil
}

func validatePriceList(input CreateCatalogInput) error {
	if input.VendorID == nil && len(input.PaperRates) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one paper rate required")
	}
	// Vendor overrides may be partial; empty sections inherit global rates at
	// resolution time. A fully empty override is a mistake.
	if input.VendorID != nil &&
		len(input.PaperRates)+len(input.ColorTiers)+len(input.Binding)+len(input.Lamination) == 0 &&
		!deliveryDefined(input.Delivery) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor override must set at least one price section")
	}
	for _, rate := range input.PaperRates {
		if !rate.Size.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid paper size %q", rate.Size))
		}
		if rate.MonoSingle.IsNegative() || rate.MonoDouble.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "paper rates must be non-negative")
		}
	}
	for _, tier := range input.ColorTiers {
		if tier.SingleSided.IsNegative() || tier.DoubleSided.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "color tier rates must be non-negative")
		}
	}
	if err := validateTierBands(input.ColorTiers); err != nil {
		return err
	}
	for _, charge := range input.Binding {
		if charge.Base.IsNegative() || charge.PerBlock.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "binding charges must be non-negative")
		}
		if charge.Scope != types.BindingScopePerItem && charge.Scope != types.BindingScopePerOrder {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid binding scope %q", charge.Scope))
		}
	}
	for _, rate := range input.Lamination {
		if rate.PerSheet.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "lamination rates must be non-negative")
		}
	}
	if input.Delivery.BaseRate.IsNegative() || input.Delivery.PerKmRate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery rates must be non-negative")
	}
	if input.Delivery.FreeAbove != nil && input.Delivery.FreeAbove.Cmp(decimal.Zero) < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "free-above threshold must be non-negative")
	}
	return nil
}

// validateTierBands checks that, per paper size, the color bands start at
// page one, do not overlap, leave no gap, and only the last band is open.
func validateTierBands(tiers []types.ColorTier) error {
	bySize := map[enums.PaperSize][]types.ColorTier{}
	for _, tier := range tiers {
		if !tier.Size.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid paper size %q in color tier", tier.Size))
		}
		bySize[tier.Size] = append(bySize[tier.Size], tier)
	}

	for size, bands := range bySize {
		sort.Slice(bands, func(i, j int) bool { return bands[i].MinPages < bands[j].MinPages })
		if bands[0].MinPages != 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s color tiers must start at page 1", size))
		}
		for i, band := range bands {
			last := i == len(bands)-1
			if band.MaxPages == nil {
				if !last {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has an unbounded tier before the last band", size))
				}
				continue
			}
			if *band.MaxPages < band.MinPages {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s tier band inverted at %d", size, band.MinPages))
			}
			if last {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s last color tier must be unbounded", size))
			}
			if bands[i+1].MinPages != *band.MaxPages+1 {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s color tiers must be contiguous around page %d", size, *band.MaxPages))
			}
		}
	}
	return nil
}
