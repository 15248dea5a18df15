package enums

import (
	"fmt"
	"strings"
)

// ShipperStatusToken is the closed set of status updates a shipper app can send.
type ShipperStatusToken string

const (
	ShipperTokenPickedUp       ShipperStatusToken = "PICKED_UP"
	ShipperTokenDelivering     ShipperStatusToken = "DELIVERING"
	ShipperTokenOutForDelivery ShipperStatusToken = "OUT_FOR_DELIVERY"
	ShipperTokenDelivered      ShipperStatusToken = "DELIVERED"
	ShipperTokenFailed         ShipperStatusToken = "FAILED"
	ShipperTokenReturning      ShipperStatusToken = "RETURNING"
	ShipperTokenReturned       ShipperStatusToken = "RETURNED"
)

var validShipperStatusTokens = []ShipperStatusToken{
	ShipperTokenPickedUp,
	ShipperTokenDelivering,
	ShipperTokenOutForDelivery,
	ShipperTokenDelivered,
	ShipperTokenFailed,
	ShipperTokenReturning,
	ShipperTokenReturned,
}

// String implements fmt.Stringer.
func (t ShipperStatusToken) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ShipperStatusToken.
func (t ShipperStatusToken) IsValid() bool {
	for _, candidate := range validShipperStatusTokens {
		if candidate == t {
			return true
		}
	}
	return false
}

// OrderStatus maps the token to its canonical order status. Values that did not come
// from ParseShipperStatusToken panic.
func (t ShipperStatusToken) OrderStatus() OrderStatus {
	switch t {
	case ShipperTokenPickedUp:
		return OrderStatusPickedUp
	case ShipperTokenDelivering:
		return OrderStatusInTransit
	case ShipperTokenOutForDelivery:
		return OrderStatusInDelivery
	case ShipperTokenDelivered:
		return OrderStatusDelivered
	case ShipperTokenFailed:
		return OrderStatusFailedDelivery
	case ShipperTokenReturning:
		return OrderStatusReturning
	case ShipperTokenReturned:
		return OrderStatusReturned
	}
	panic(fmt.Sprintf("unmapped shipper status token %q", string(t)))
}

// ParseShipperStatusToken normalizes case and surrounding whitespace.
func ParseShipperStatusToken(value string) (ShipperStatusToken, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validShipperStatusTokens {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipper status token %q", value)
}

// ShipperStatusTokens lists every accepted token.
func ShipperStatusTokens() []ShipperStatusToken {
	out := make([]ShipperStatusToken, len(validShipperStatusTokens))
	copy(out, validShipperStatusTokens)
	return out
}
