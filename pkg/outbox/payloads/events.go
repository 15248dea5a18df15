package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a customer places an order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID           `json:"orderId"`
	OrderNumber    string              `json:"orderNumber"`
	TrackingNumber string              `json:"trackingNumber"`
	CustomerID     uuid.UUID           `json:"customerId"`
	ServiceType    enums.ServiceType   `json:"serviceType"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod"`
	TotalAmount    int64               `json:"totalAmount"`
	Status         enums.OrderStatus   `json:"status"`
}

// OrderStatusChangedEvent is emitted for every accepted status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	CustomerID uuid.UUID         `json:"customerId"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	Notes      *string           `json:"notes,omitempty"`
	ChangedAt  time.Time         `json:"changedAt"`
}

// PaymentEvent is emitted when a transaction is created or resolved.
type PaymentEvent struct {
	OrderID       uuid.UUID               `json:"orderId"`
	TransactionID uuid.UUID               `json:"transactionId"`
	Reference     string                  `json:"reference"`
	Amount        int64                   `json:"amount"`
	PaidAmount    *int64                  `json:"paidAmount,omitempty"`
	Status        enums.TransactionStatus `json:"status"`
	PaymentStatus enums.PaymentStatus     `json:"paymentStatus"`
}
