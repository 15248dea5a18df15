package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/parcelhub-backend/internal/realtime"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

type notifier interface {
	Notify(ctx context.Context, input NewNotification) (*NotificationDTO, error)
}

type roomPusher interface {
	EmitToRoom(ctx context.Context, room, name string, data any) int
}

// StatusUpdate is the realtime payload for order-status-updated.
type StatusUpdate struct {
	OrderID        uuid.UUID           `json:"order_id"`
	TrackingNumber string              `json:"tracking_number"`
	From           enums.OrderStatus   `json:"from"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	Notes          *string             `json:"notes,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Dispatcher turns committed order and payment changes into inbox entries and room pushes.
type Dispatcher struct {
	inbox notifier
	rooms roomPusher
}

// NewDispatcher wires the dispatcher. rooms may be nil in processes without websocket clients.
func NewDispatcher(inbox notifier, rooms roomPusher) (*Dispatcher, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification service required")
	}
	return &Dispatcher{inbox: inbox, rooms: rooms}, nil
}

// OrderStatusChanged notifies the customer and, on assignment, the shipper.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *models.Order, from enums.OrderStatus, notes *string) error {
	if order == nil {
		return nil
	}
	d.pushStatus(ctx, order, from, notes)

	orderID := order.ID
	var errs error
	errs = multierr.Append(errs, d.send(ctx, NewNotification{
		UserID:  order.CustomerID,
		OrderID: &orderID,
		Type:    enums.NotificationTypeOrderStatus,
		Title:   statusTitle(order.Status),
		Message: fmt.Sprintf("Order %s is now %s.", order.OrderNumber, humanStatus(order.Status)),
	}))
	if order.Status == enums.OrderStatusAssigned && order.ShipperID != nil {
		errs = multierr.Append(errs, d.send(ctx, NewNotification{
			UserID:  *order.ShipperID,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   "New delivery assigned",
			Message: fmt.Sprintf("Order %s (%s) was assigned to you.", order.OrderNumber, order.TrackingNumber),
		}))
	}
	return errs
}

// PaymentResolved tells the customer how their online payment ended.
func (d *Dispatcher) PaymentResolved(ctx context.Context, order *models.Order, txn *models.PaymentTransaction) error {
	if order == nil || txn == nil {
		return nil
	}
	if txn.Status == enums.TransactionStatusSucceeded {
		d.pushStatus(ctx, order, order.Status, nil)
	}

	orderID := order.ID
	title, message := paymentCopy(order, txn)
	return d.send(ctx, NewNotification{
		UserID:  order.CustomerID,
		OrderID: &orderID,
		Type:    enums.NotificationTypePayment,
		Title:   title,
		Message: message,
	})
}

func (d *Dispatcher) send(ctx context.Context, input NewNotification) error {
	_, err := d.inbox.Notify(ctx, input)
	return err
}

func (d *Dispatcher) pushStatus(ctx context.Context, order *models.Order, from enums.OrderStatus, notes *string) {
	if d.rooms == nil {
		return
	}
	d.rooms.EmitToRoom(ctx, realtime.OrderRoom(order.ID), realtime.EventOrderStatusUpdated, StatusUpdate{
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		From:           from,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		Notes:          notes,
		UpdatedAt:      order.UpdatedAt,
	})
}

func paymentCopy(order *models.Order, txn *models.PaymentTransaction) (string, string) {
	switch txn.Status {
	case enums.TransactionStatusSucceeded:
		return "Payment received", fmt.Sprintf("We received %d %s for order %s.", paidAmount(txn), txn.Currency, order.OrderNumber)
	case enums.TransactionStatusFailed:
		return "Payment failed", fmt.Sprintf("Payment %s for order %s failed. You can try again.", txn.Reference, order.OrderNumber)
	case enums.TransactionStatusCancelled:
		return "Payment cancelled", fmt.Sprintf("Payment %s for order %s was cancelled.", txn.Reference, order.OrderNumber)
	case enums.TransactionStatusExpired:
		return "Payment expired", fmt.Sprintf("Payment %s for order %s expired before completion.", txn.Reference, order.OrderNumber)
	}
	return "Payment update", fmt.Sprintf("Payment %s for order %s is %s.", txn.Reference, order.OrderNumber, txn.Status)
}

func paidAmount(txn *models.PaymentTransaction) int64 {
	if txn.PaidAmount != nil {
		return *txn.PaidAmount
	}
	return txn.Amount
}

func statusTitle(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusDelivered:
		return "Order delivered"
	case enums.OrderStatusCancelled:
		return "Order cancelled"
	case enums.OrderStatusFailedDelivery:
		return "Delivery attempt failed"
	}
	return "Order updated"
}

var statusLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:             "awaiting payment",
	enums.OrderStatusCODPending:          "awaiting pickup (cash on delivery)",
	enums.OrderStatusProcessing:          "processing",
	enums.OrderStatusConfirmed:           "confirmed",
	enums.OrderStatusReceivedAtWarehouse: "at the warehouse",
	enums.OrderStatusClassified:          "sorted for dispatch",
	enums.OrderStatusAssigned:            "assigned to a shipper",
	enums.OrderStatusPickedUp:            "picked up",
	enums.OrderStatusInTransit:           "in transit",
	enums.OrderStatusInDelivery:          "out for delivery",
	enums.OrderStatusDelivered:           "delivered",
	enums.OrderStatusFailedDelivery:      "undeliverable on this attempt",
	enums.OrderStatusReturning:           "returning to sender",
	enums.OrderStatusReturned:            "returned to sender",
	enums.OrderStatusCancelled:           "cancelled",
}

func humanStatus(status enums.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}
