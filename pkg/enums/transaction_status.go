package enums

import (
	"fmt"
	"strings"
)

// TransactionStatus tracks one payment attempt. Every status other than pending is final.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusExpired   TransactionStatus = "expired"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusSucceeded,
	TransactionStatusFailed,
	TransactionStatusCancelled,
	TransactionStatusExpired,
}

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsResolved reports whether the attempt reached a final state.
func (s TransactionStatus) IsResolved() bool {
	return s.IsValid() && s != TransactionStatusPending
}

// PaymentStatus is the order-level status that must agree with this transaction status.
func (s TransactionStatus) PaymentStatus() PaymentStatus {
	switch s {
	case TransactionStatusSucceeded:
		return PaymentStatusPaid
	case TransactionStatusFailed:
		return PaymentStatusFailed
	case TransactionStatusCancelled:
		return PaymentStatusCancelled
	case TransactionStatusExpired:
		return PaymentStatusExpired
	default:
		return PaymentStatusPending
	}
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}

// GatewayStatus is the outcome reported by the payment gateway callback.
type GatewayStatus string

const (
	GatewayStatusSuccess   GatewayStatus = "success"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusCancelled GatewayStatus = "cancelled"
)

var validGatewayStatuses = []GatewayStatus{
	GatewayStatusSuccess,
	GatewayStatusFailed,
	GatewayStatusCancelled,
}

func (g GatewayStatus) String() string {
	return string(g)
}

func (g GatewayStatus) IsValid() bool {
	for _, candidate := range validGatewayStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// TransactionStatus maps the callback outcome onto the transaction vocabulary.
func (g GatewayStatus) TransactionStatus() TransactionStatus {
	switch g {
	case GatewayStatusSuccess:
		return TransactionStatusSucceeded
	case GatewayStatusCancelled:
		return TransactionStatusCancelled
	default:
		return TransactionStatusFailed
	}
}

// ParseGatewayStatus is case-insensitive and does not trim; the raw value is signed.
func ParseGatewayStatus(value string) (GatewayStatus, error) {
	normalized := strings.ToLower(value)
	for _, candidate := range validGatewayStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway status %q", value)
}
