package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the lifecycle of a delivery order.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusCODPending          OrderStatus = "cod_pending"
	OrderStatusProcessing          OrderStatus = "processing"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusReceivedAtWarehouse OrderStatus = "received_at_warehouse"
	OrderStatusClassified          OrderStatus = "classified"
	OrderStatusAssigned            OrderStatus = "assigned"
	OrderStatusPickedUp            OrderStatus = "picked_up"
	OrderStatusInTransit           OrderStatus = "in_transit"
	OrderStatusInDelivery          OrderStatus = "in_delivery"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusFailedDelivery      OrderStatus = "failed_delivery"
	OrderStatusReturning           OrderStatus = "returning"
	OrderStatusReturned            OrderStatus = "returned"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusCODPending,
	OrderStatusProcessing,
	OrderStatusConfirmed,
	OrderStatusReceivedAtWarehouse,
	OrderStatusClassified,
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusInTransit,
	OrderStatusInDelivery,
	OrderStatusDelivered,
	OrderStatusFailedDelivery,
	OrderStatusReturning,
	OrderStatusReturned,
	OrderStatusCancelled,
}

// legacy spellings still sent by older clients.
var orderStatusAliases = map[string]OrderStatus{
	"assigned_to_driver": OrderStatusAssigned,
	"in_delivery_route":  OrderStatusInDelivery,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is accepted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IntakeStarted reports whether the parcel has reached the warehouse or gone further.
func (s OrderStatus) IntakeStarted() bool {
	switch s {
	case OrderStatusPending, OrderStatusCODPending, OrderStatusProcessing, OrderStatusConfirmed:
		return false
	}
	return s.IsValid() && s != OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus, accepting legacy aliases.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if alias, ok := orderStatusAliases[normalized]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatuses returns the full vocabulary in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}
