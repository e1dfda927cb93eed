package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateVendorOffer OutboxAggregateType = "vendor_offer"
	AggregatePayout      OutboxAggregateType = "payout"
	AggregateVendor      OutboxAggregateType = "vendor"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateVendorOffer,
	AggregatePayout,
	AggregateVendor,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOfferCreated       OutboxEventType = "vendor_offer_created"
	EventOfferAccepted      OutboxEventType = "vendor_offer_accepted"
	EventOfferDeclined      OutboxEventType = "vendor_offer_declined"
	EventOfferExpired       OutboxEventType = "vendor_offer_expired"
	EventPayoutRecorded     OutboxEventType = "payout_recorded"
	EventBadgeUpgraded      OutboxEventType = "vendor_badge_upgraded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStatusChanged,
	EventOfferCreated,
	EventOfferAccepted,
	EventOfferDeclined,
	EventOfferExpired,
	EventPayoutRecorded,
	EventBadgeUpgraded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
