package orders

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

	"github.com/printmitra/printmitra-backend/internal/pricing"
	dbpkg "github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
)

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CatalogResolver supplies the active pricing catalog and checks estimate
// freshness against it.
type CatalogResolver interface {
	ResolveActive(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error)
	EnsureCurrent(ctx context.Context, catalogID uuid.UUID, vendorID *uuid.UUID) (*models.PricingCatalog, error)
}

// CommissionResolver returns the commission percentage in force for a vendor
// at a point in time. Completion snapshots this value onto the order.
type CommissionResolver interface {
	EffectivePct(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, at time.Time) (decimal.Decimal, error)
}

// VendorLedger mutates vendor counters from inside a lifecycle transaction.
// RecordCompletion adds the sale and its net earnings and frees the workload
// slot; ReleaseWorkload frees the slot without crediting a sale.
type VendorLedger interface {
	RecordCompletion(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, netPayout decimal.Decimal) error
	ReleaseWorkload(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error
}

// OfferVoider closes any open dispatch offer when an order leaves the
// assignable states.
type OfferVoider interface {
	VoidOpenOffers(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// OfferVoiderFunc adapts a plain function to OfferVoider. Binaries use it to
// hand the lifecycle service a dispatch engine that is constructed later.
type OfferVoiderFunc func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error

func (f OfferVoiderFunc) VoidOpenOffers(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return f(ctx, tx, orderID)
}

// Service defines the order lifecycle operations.
type Service interface {
	CreateEstimate(ctx context.Context, input CreateEstimateInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error)
	StartProduction(ctx context.Context, input VendorActionInput) error
	MarkReady(ctx context.Context, input VendorActionInput) error
	Complete(ctx context.Context, input VendorActionInput) error
	Cancel(ctx context.Context, input CancelInput) error
	// Assign moves a paid order to a vendor inside the caller's
	// transaction. The dispatch engine calls this when an offer is
	// accepted or an admin assigns manually.
	Assign(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID, actor Actor) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	catalogs   CatalogResolver
	commission CommissionResolver
	vendors    VendorLedger
	offers     OfferVoider
	now        func() time.Time
}

// NewService builds an order lifecycle service with the required
// collaborators.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, catalogs CatalogResolver, commission CommissionResolver, vendors VendorLedger, offers OfferVoider) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if catalogs == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if commission == nil {
		return nil, fmt.Errorf("commission resolver required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor ledger required")
	}
	if offers == nil {
		return nil, fmt.Errorf("offer voider required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     outboxSvc,
		catalogs:   catalogs,
		commission: commission,
		vendors:    vendors,
		offers:     offers,
		now:        time.Now,
	}, nil
}

// allowedTransitions is the one source of truth for the lifecycle graph.
// Terminal states have no outgoing edges.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusEstimated:      {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:           {enums.OrderStatusAssigned, enums.OrderStatusCancelled},
	enums.OrderStatusAssigned:       {enums.OrderStatusInProduction, enums.OrderStatusCancelled},
	enums.OrderStatusInProduction:   {enums.OrderStatusReadyForPickup, enums.OrderStatusOutForDelivery},
	enums.OrderStatusReadyForPickup: {enums.OrderStatusCompleted},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusCompleted},
}

// CanTransition reports whether the lifecycle graph permits from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *service) CreateEstimate(ctx context.Context, input CreateEstimateInput) (*models.Order, error) {
	if input.CustomerName == "" || input.CustomerPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone required")
	}
	if !input.FulfillmentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment type")
	}
	if input.FulfillmentType == enums.FulfillmentTypeDelivery && input.DeliveryAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for delivery orders")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}

	var catalog *models.PricingCatalog
	var err error
	if input.CatalogID != uuid.Nil {
		catalog, err = s.catalogs.EnsureCurrent(ctx, input.CatalogID, input.VendorID)
	} else {
		catalog, err = s.catalogs.ResolveActive(ctx, input.VendorID)
	}
	if err != nil {
		return nil, err
	}

	estimate, err := pricing.Calculate(catalog, input.Items, input.FulfillmentType, input.DistanceKm)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			CustomerName:    input.CustomerName,
			CustomerEmail:   input.CustomerEmail,
			CustomerPhone:   input.CustomerPhone,
			FulfillmentType: input.FulfillmentType,
			DeliveryAddress: input.DeliveryAddress,
			Location:        input.Location,
			Status:          enums.OrderStatusEstimated,
			Currency:        estimate.Currency,
			CatalogID:       catalog.ID,
			ItemsSubtotal:   estimate.ItemsSubtotal,
			DeliveryCharge:  estimate.DeliveryCharge,
			Total:           estimate.Total,
		}

		for attempt := 0; ; attempt++ {
			order.OrderNumber = newOrderNumber(s.now())
			created, err = repo.Create(ctx, order)
			if err == nil {
				break
			}
			if dbpkg.IsUniqueViolation(err, "order_number") && attempt < orderNumberAttempts {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderLineItem, 0, len(estimate.Items))
		for _, priced := range estimate.Items {
			items = append(items, models.OrderLineItem{
				OrderID:          created.ID,
				FileRef:          priced.Input.FileRef,
				FileName:         priced.Input.FileName,
				Pages:            priced.Input.Pages,
				Copies:           priced.Input.Copies,
				PaperSize:        priced.Input.PaperSize,
				ColorMode:        priced.Input.ColorMode,
				Sides:            priced.Input.Sides,
				LaminationSheets: priced.Input.LaminationSheets,
				BindingKind:      priced.Input.BindingKind,
				PerSheetRate:     priced.PerSheetRate,
				Subtotal:         priced.Subtotal,
			})
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		created.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PaymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		// Gateway webhooks retry; a second callback for an already paid
		// order is a no-op, not an error.
		if order.Status == enums.OrderStatusPaid {
			confirmed = order
			return nil
		}

		if !order.Total.Equal(input.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("payment amount %s does not match order total %s", input.Amount, order.Total))
		}
		if input.Currency != order.Currency {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("payment currency %s does not match order currency %s", input.Currency, order.Currency))
		}

		now := s.now()
		if err := s.transition(ctx, tx, repo, order, enums.OrderStatusPaid, map[string]any{"paid_at": now}, nil, input.Actor); err != nil {
			return err
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (s *service) StartProduction(ctx context.Context, input VendorActionInput) error {
	return s.vendorTransition(ctx, input, enums.OrderStatusInProduction, nil)
}

func (s *service) MarkReady(ctx context.Context, input VendorActionInput) error {
	// Target depends on fulfillment; resolved inside the transaction once
	// the order is loaded.
	return s.vendorTransition(ctx, input, "", nil)
}

func (s *service) Complete(ctx context.Context, input VendorActionInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.AssignedVendorID == nil || *order.AssignedVendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not assigned to this vendor")
		}

		now := s.now()
		pct, err := s.commission.EffectivePct(ctx, tx, input.VendorID, now)
		if err != nil {
			return err
		}
		commissionAmount := order.Total.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
		netPayout := order.Total.Sub(commissionAmount)

		updates := map[string]any{
			"completed_at":      now,
			"commission_pct":    pct,
			"commission_amount": commissionAmount,
			"net_payout":        netPayout,
		}
		if err := s.transition(ctx, tx, repo, order, enums.OrderStatusCompleted, updates, nil, input.Actor); err != nil {
			return err
		}

		return s.vendors.RecordCompletion(ctx, tx, input.VendorID, netPayout)
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{"cancelled_at": now}
		if err := s.transition(ctx, tx, repo, order, enums.OrderStatusCancelled, updates, input.Note, input.Actor); err != nil {
			return err
		}

		if err := s.offers.VoidOpenOffers(ctx, tx, order.ID); err != nil {
			return err
		}
		if order.AssignedVendorID != nil {
			return s.vendors.ReleaseWorkload(ctx, tx, *order.AssignedVendorID)
		}
		return nil
	})
}

func (s *service) Assign(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID, actor Actor) error {
	if orderID == uuid.Nil || vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and vendor id required")
	}

	repo := s.repo.WithTx(tx)
	order, err := s.load(ctx, repo, orderID)
	if err != nil {
		return err
	}

	now := s.now()
	updates := map[string]any{
		"assigned_vendor_id":  vendorID,
		"assigned_at":         now,
		"needs_manual_assign": false,
	}
	order.AssignedVendorID = &vendorID
	if err := s.transition(ctx, tx, repo, order, enums.OrderStatusAssigned, updates, nil, actor); err != nil {
		return err
	}
	order.AssignedAt = &now
	return nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.load(ctx, s.repo, orderID)
}

func (s *service) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	results, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return results, next, nil
}

// vendorTransition handles the production-side moves that only the assigned
// vendor may perform. An empty target means "ready": the destination is
// picked from the order's fulfillment type.
func (s *service) vendorTransition(ctx context.Context, input VendorActionInput, target enums.OrderStatus, updates map[string]any) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.AssignedVendorID == nil || *order.AssignedVendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not assigned to this vendor")
		}

		to := target
		if to == "" {
			to = enums.OrderStatusReadyForPickup
			if order.FulfillmentType == enums.FulfillmentTypeDelivery {
				to = enums.OrderStatusOutForDelivery
			}
		}
		return s.transition(ctx, tx, repo, order, to, updates, nil, input.Actor)
	})
}

// transition performs the compare-and-set move, appends the history row, and
// emits the status-changed event in one transaction. The CAS losing means a
// concurrent writer got there first.
func (s *service) transition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, to enums.OrderStatus, updates map[string]any, note *string, actor Actor) error {
	from := order.Status
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", from, to))
	}

	moved, err := repo.UpdateStatus(ctx, order.ID, from, to, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently")
	}

	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	var noteText string
	if note != nil {
		noteText = *note
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			FromStatus:  from,
			ToStatus:    to,
			VendorID:    order.AssignedVendorID,
			ChangedAt:   s.now(),
			Note:        noteText,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
	}

	order.Status = to
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil && actor.VendorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, VendorID: actor.VendorID, Role: actor.Role}
}

// newOrderNumber builds the customer-facing order number, year plus a random
// six digit suffix. Collisions are handled by retrying on the unique index.
func newOrderNumber(now time.Time) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		binary.BigEndian.PutUint32(buf[:], uint32(now.UnixNano()))
	}
	suffix := binary.BigEndian.Uint32(buf[:]) % 1_000_000
	return fmt.Sprintf("PM-ORD-%d%06d", now.Year(), suffix)
}
