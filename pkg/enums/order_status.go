package enums

import "fmt"

// OrderStatus tracks the lifecycle of a print order.
type OrderStatus string

const (
	OrderStatusEstimated      OrderStatus = "estimated"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusAssigned       OrderStatus = "assigned"
	OrderStatusInProduction   OrderStatus = "in_production"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusEstimated,
	OrderStatusPaid,
	OrderStatusAssigned,
	OrderStatusInProduction,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
