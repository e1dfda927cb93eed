package badges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ProgressInfo is the customer-facing badge progress for one vendor.
type ProgressInfo struct {
	Badge       enums.VendorBadge  `json:"badge"`
	TotalSales  int                `json:"total_sales"`
	NextBadge   *enums.VendorBadge `json:"next_badge,omitempty"`
	NextAt      *int               `json:"next_at,omitempty"`
	ProgressPct float64            `json:"progress_pct"`
}

// Service manages badge thresholds and applies progression to vendors.
type Service interface {
	Ladder(ctx context.Context) (*Ladder, error)
	UpdateThresholds(ctx context.Context, configs []models.BadgeConfig) error
	// ApplySale re-evaluates a vendor's badge after a completed sale inside
	// the caller's transaction. Upgrades are forward-only; downgrades never
	// happen here.
	ApplySale(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
	// Override sets a vendor's badge directly, the only path that can move
	// a badge down.
	Override(ctx context.Context, vendorID uuid.UUID, badge enums.VendorBadge) error
	VendorProgress(ctx context.Context, vendorID uuid.UUID) (*ProgressInfo, error)
}

type service struct {
	repo    Repository
	vendors VendorStore
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// NewService builds the badge progression service.
func NewService(repo Repository, vendors VendorStore, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("badge repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		vendors: vendors,
		tx:      tx,
		outbox:  outboxSvc,
		now:     time.Now,
	}, nil
}

func (s *service) Ladder(ctx context.Context) (*Ladder, error) {
	configs, err := s.repo.ListConfigs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load badge configs")
	}
	return NewLadder(configs)
}

func (s *service) UpdateThresholds(ctx context.Context, configs []models.BadgeConfig) error {
	if _, err := NewLadder(configs); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SaveConfigs(ctx, configs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save badge configs")
		}
		return nil
	})
}

func (s *service) ApplySale(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
	configs, err := s.repo.WithTx(tx).ListConfigs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load badge configs")
	}
	ladder, err := NewLadder(configs)
	if err != nil {
		return err
	}

	vendor, err := s.loadVendor(ctx, tx, vendorID)
	if err != nil {
		return err
	}

	earned := ladder.Evaluate(vendor.TotalSales)
	if earned.Rank() <= vendor.Badge.Rank() {
		return nil
	}

	if err := s.vendors.SetBadge(ctx, tx, vendorID, earned); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set vendor badge")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBadgeUpgraded,
		AggregateType: enums.AggregateVendor,
		AggregateID:   vendorID,
		Version:       1,
		Data: payloads.BadgeUpgradedEvent{
			VendorID:   vendorID,
			FromBadge:  vendor.Badge,
			ToBadge:    earned,
			TotalSales: vendor.TotalSales,
			UpgradedAt: s.now(),
		},
	})
}

func (s *service) Override(ctx context.Context, vendorID uuid.UUID, badge enums.VendorBadge) error {
	if !badge.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid badge")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		vendor, err := s.loadVendor(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if vendor.Badge == badge {
			return nil
		}
		if err := s.vendors.SetBadge(ctx, tx, vendorID, badge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set vendor badge")
		}
		if badge.Rank() > vendor.Badge.Rank() {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBadgeUpgraded,
				AggregateType: enums.AggregateVendor,
				AggregateID:   vendorID,
				Version:       1,
				Data: payloads.BadgeUpgradedEvent{
					VendorID:   vendorID,
					FromBadge:  vendor.Badge,
					ToBadge:    badge,
					TotalSales: vendor.TotalSales,
					UpgradedAt: s.now(),
				},
			})
		}
		return nil
	})
}

func (s *service) VendorProgress(ctx context.Context, vendorID uuid.UUID) (*ProgressInfo, error) {
	ladder, err := s.Ladder(ctx)
	if err != nil {
		return nil, err
	}
	vendor, err := s.loadVendor(ctx, nil, vendorID)
	if err != nil {
		return nil, err
	}

	info := &ProgressInfo{
		Badge:       vendor.Badge,
		TotalSales:  vendor.TotalSales,
		ProgressPct: ladder.Progress(vendor.TotalSales),
	}
	if next, ok := ladder.Next(vendor.Badge); ok {
		info.NextBadge = &next.Badge
		info.NextAt = &next.MinSales
	}
	return info, nil
}

func (s *service) loadVendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.vendors.FindVendor(ctx, tx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}
