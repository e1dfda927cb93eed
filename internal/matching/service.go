package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/pkg/config"
	dbpkg "github.com/printmitra/printmitra-backend/pkg/db"
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

// OrderAssigner performs the paid-to-assigned move inside the dispatch
// transaction. Implemented by the order lifecycle service.
type OrderAssigner interface {
	Assign(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID, actor orders.Actor) error
}

// VendorPool supplies dispatch candidates and claims capacity on acceptance.
type VendorPool interface {
	ListOnline(ctx context.Context) ([]models.Vendor, error)
	ClaimWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
}

// Service runs the offer cascade that places paid orders with vendors.
type Service interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) (*models.VendorOffer, error)
	Accept(ctx context.Context, input DecisionInput) error
	Decline(ctx context.Context, input DecisionInput) error
	ExpireDue(ctx context.Context, limit int) (int, error)
	ManualAssign(ctx context.Context, input ManualAssignInput) error
	ListOrderOffers(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error)
	// VoidOpenOffers closes the open offer when an order leaves the
	// assignable states, called from the order lifecycle transaction.
	VoidOpenOffers(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo     Repository
	orders   orders.Repository
	assigner OrderAssigner
	vendors  VendorPool
	tx       txRunner
	outbox   outboxPublisher
	cfg      config.OfferConfig
	now      func() time.Time
}

// NewService builds the dispatch service.
func NewService(repo Repository, ordersRepo orders.Repository, assigner OrderAssigner, vendors VendorPool, tx txRunner, outboxSvc outboxPublisher, cfg config.OfferConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if assigner == nil {
		return nil, fmt.Errorf("order assigner required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor pool required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("offer window must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("offer max attempts must be positive")
	}
	return &service{
		repo:     repo,
		orders:   ordersRepo,
		assigner: assigner,
		vendors:  vendors,
		tx:       tx,
		outbox:   outboxSvc,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func (s *service) Dispatch(ctx context.Context, orderID uuid.UUID) (*models.VendorOffer, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var created *models.VendorOffer
	var exhausted error
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPaid || order.AssignedVendorID != nil {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only unassigned paid orders can be dispatched")
		}
		created, err = s.dispatchNext(ctx, tx, order)
		if err != nil && pkgerrors.HasCode(err, pkgerrors.CodeNoVendorAvailable) {
			// Commit the manual-assignment flag, then surface the miss.
			exhausted = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if exhausted != nil {
		return nil, exhausted
	}
	return created, nil
}

func (s *service) Accept(ctx context.Context, input DecisionInput) error {
	if input.OfferID == uuid.Nil || input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer id and vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		offer, err := s.loadOffer(ctx, repo, input.OfferID)
		if err != nil {
			return err
		}
		if offer.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}

		now := s.now()
		if now.After(offer.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeOfferClaimed, "offer window has lapsed")
		}

		claimed, err := repo.ClaimOffer(ctx, offer.ID, input.VendorID, enums.OfferStatusAccepted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim offer")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeOfferClaimed, "offer is no longer open")
		}

		if err := s.assigner.Assign(ctx, tx, offer.OrderID, input.VendorID, input.Actor); err != nil {
			return err
		}
		if err := s.vendors.ClaimWorkload(ctx, tx, input.VendorID); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferAccepted,
			AggregateType: enums.AggregateVendorOffer,
			AggregateID:   offer.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OfferAcceptedEvent{
				OfferID:    offer.ID,
				OrderID:    offer.OrderID,
				VendorID:   input.VendorID,
				AcceptedAt: now,
			},
		})
	})
}

func (s *service) Decline(ctx context.Context, input DecisionInput) error {
	if input.OfferID == uuid.Nil || input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer id and vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		offer, err := s.loadOffer(ctx, repo, input.OfferID)
		if err != nil {
			return err
		}
		if offer.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}

		now := s.now()
		claimed, err := repo.ClaimOffer(ctx, offer.ID, input.VendorID, enums.OfferStatusDeclined, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline offer")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeOfferClaimed, "offer is no longer open")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferDeclined,
			AggregateType: enums.AggregateVendorOffer,
			AggregateID:   offer.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OfferDeclinedEvent{
				OfferID:    offer.ID,
				OrderID:    offer.OrderID,
				VendorID:   input.VendorID,
				Attempt:    offer.Attempt,
				DeclinedAt: now,
			},
		}); err != nil {
			return err
		}

		return s.cascade(ctx, tx, offer.OrderID)
	})
}

func (s *service) ExpireDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	due, err := s.repo.ListDueOffers(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due offers")
	}

	processed := 0
	for _, offer := range due {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			now := s.now()
			claimed, err := repo.ClaimOffer(ctx, offer.ID, offer.VendorID, enums.OfferStatusExpired, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire offer")
			}
			if !claimed {
				// Someone decided it between the sweep and the claim.
				return nil
			}

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOfferExpired,
				AggregateType: enums.AggregateVendorOffer,
				AggregateID:   offer.ID,
				Version:       1,
				Data: payloads.OfferExpiredEvent{
					OfferID:   offer.ID,
					OrderID:   offer.OrderID,
					VendorID:  offer.VendorID,
					Attempt:   offer.Attempt,
					ExpiredAt: now,
				},
			}); err != nil {
				return err
			}

			return s.cascade(ctx, tx, offer.OrderID)
		})
		if err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (s *service) ManualAssign(ctx context.Context, input ManualAssignInput) error {
	if input.OrderID == uuid.Nil || input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).VoidOpen(ctx, input.OrderID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void open offers")
		}
		if err := s.assigner.Assign(ctx, tx, input.OrderID, input.VendorID, input.Actor); err != nil {
			return err
		}
		return s.vendors.ClaimWorkload(ctx, tx, input.VendorID)
	})
}

func (s *service) ListOrderOffers(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	offers, err := s.repo.ListOffersByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	return offers, nil
}

func (s *service) VoidOpenOffers(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if _, err := s.repo.WithTx(tx).VoidOpen(ctx, orderID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void open offers")
	}
	return nil
}

// cascade re-dispatches an order after a decline or expiry, as long as it is
// still waiting for a vendor. Exhausting the cascade is not an error here;
// the order is flagged for manual assignment instead.
func (s *service) cascade(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	order, err := s.loadOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPaid || order.AssignedVendorID != nil {
		return nil
	}
	if _, err := s.dispatchNext(ctx, tx, order); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNoVendorAvailable) {
			return nil
		}
		return err
	}
	return nil
}

func (s *service) dispatchNext(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.VendorOffer, error) {
	repo := s.repo.WithTx(tx)

	attempts, err := repo.CountAttempts(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count attempts")
	}
	if attempts >= s.cfg.MaxAttempts {
		return nil, s.flagManual(ctx, tx, order.ID, "offer attempts exhausted")
	}

	previous, err := repo.ListOffersByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list previous offers")
	}
	tried := make(map[uuid.UUID]struct{}, len(previous))
	for _, offer := range previous {
		tried[offer.VendorID] = struct{}{}
	}

	pick, err := s.pickCandidate(ctx, order, tried)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNoVendorAvailable) {
			return nil, s.flagManual(ctx, tx, order.ID, "no eligible vendor")
		}
		return nil, err
	}

	now := s.now()
	offer := &models.VendorOffer{
		OrderID:    order.ID,
		VendorID:   pick.vendorID,
		Status:     enums.OfferStatusOffered,
		Attempt:    attempts + 1,
		DistanceKm: pick.distanceKm,
		ExpiresAt:  now.Add(s.cfg.Window),
	}
	created, err := repo.CreateOffer(ctx, offer)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_vendor_offers_open_order") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an open offer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOfferCreated,
		AggregateType: enums.AggregateVendorOffer,
		AggregateID:   created.ID,
		Version:       1,
		Data: payloads.OfferCreatedEvent{
			OfferID:    created.ID,
			OrderID:    order.ID,
			VendorID:   created.VendorID,
			Attempt:    created.Attempt,
			DistanceKm: created.DistanceKm,
			ExpiresAt:  created.ExpiresAt,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer event")
	}
	return created, nil
}

// pickCandidate ranks online vendors by distance, then badge tier, then id
// for a stable order. Delivery orders only consider vendors whose
// auto-accept radius covers the order location.
func (s *service) pickCandidate(ctx context.Context, order *models.Order, tried map[uuid.UUID]struct{}) (*candidate, error) {
	online, err := s.vendors.ListOnline(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list online vendors")
	}

	requireRadius := order.FulfillmentType == enums.FulfillmentTypeDelivery
	if requireRadius && order.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery order has no location")
	}

	candidates := make([]candidate, 0, len(online))
	for _, vendor := range online {
		if _, done := tried[vendor.ID]; done {
			continue
		}
		distance := 0.0
		if order.Location != nil {
			distance = vendor.Location.DistanceKm(*order.Location)
		}
		if requireRadius && distance > vendor.AutoAcceptRadiusKm {
			continue
		}
		candidates = append(candidates, candidate{
			vendorID:   vendor.ID,
			distanceKm: distance,
			badgeRank:  vendor.Badge.Rank(),
		})
	}
	if len(candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoVendorAvailable, "no vendor available for order")
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distanceKm != candidates[j].distanceKm {
			return candidates[i].distanceKm < candidates[j].distanceKm
		}
		if candidates[i].badgeRank != candidates[j].badgeRank {
			return candidates[i].badgeRank > candidates[j].badgeRank
		}
		return candidates[i].vendorID.String() < candidates[j].vendorID.String()
	})
	return &candidates[0], nil
}

func (s *service) flagManual(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	err := s.orders.WithTx(tx).Update(ctx, orderID, map[string]any{"needs_manual_assign": true})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag manual assignment")
	}
	return pkgerrors.New(pkgerrors.CodeNoVendorAvailable, reason)
}

func (s *service) loadOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadOffer(ctx context.Context, repo Repository, offerID uuid.UUID) (*models.VendorOffer, error) {
	offer, err := repo.FindOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return offer, nil
}

func actorRef(actor orders.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil && actor.VendorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, VendorID: actor.VendorID, Role: actor.Role}
}
