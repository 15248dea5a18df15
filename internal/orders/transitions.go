package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

// CustomerCancelWindow is how long a processing order stays self-cancellable.
const CustomerCancelWindow = 30 * time.Minute

// statuses intake staff may set through the warehouse desk.
var intakeTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusReceivedAtWarehouse: true,
	enums.OrderStatusClassified:          true,
	enums.OrderStatusAssigned:            true,
}

// shipperSources lists, per target, the statuses a shipper may move an order out of.
var shipperSources = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPickedUp:       {enums.OrderStatusAssigned},
	enums.OrderStatusInTransit:      {enums.OrderStatusPickedUp},
	enums.OrderStatusInDelivery:     {enums.OrderStatusPickedUp, enums.OrderStatusInTransit},
	enums.OrderStatusDelivered:      {enums.OrderStatusPickedUp, enums.OrderStatusInTransit, enums.OrderStatusInDelivery},
	enums.OrderStatusFailedDelivery: {enums.OrderStatusInTransit, enums.OrderStatusInDelivery},
	enums.OrderStatusReturning:      {enums.OrderStatusInTransit, enums.OrderStatusFailedDelivery},
	enums.OrderStatusReturned:       {enums.OrderStatusReturning},
}

// CheckTransition decides whether actor may move order to target at now.
func CheckTransition(order *models.Order, target enums.OrderStatus, actor Actor, now time.Time) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", target))
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status)).
			WithDetails(map[string]any{"current_status": order.Status})
	}
	if order.Status == target {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", target)).
			WithDetails(map[string]any{"current_status": order.Status})
	}

	switch actor.Role {
	case enums.RoleAdmin:
		return nil
	case enums.RoleIntakeStaff:
		if !intakeTargets[target] {
			return pkgerrors.New(pkgerrors.CodeForbidden, "intake staff may only intake, classify or assign orders")
		}
		return nil
	case enums.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if target != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel orders")
		}
		return checkCustomerCancel(order, now)
	case enums.RoleShipper:
		if order.ShipperID == nil || *order.ShipperID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this shipper")
		}
		sources, ok := shipperSources[target]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("shippers cannot set status %s", target))
		}
		for _, source := range sources {
			if source == order.Status {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move from %s to %s", order.Status, target)).
			WithDetails(map[string]any{"current_status": order.Status, "allowed_from": sources})
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not change order status")
}

func checkCustomerCancel(order *models.Order, now time.Time) error {
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusCODPending, enums.OrderStatusConfirmed:
		return nil
	case enums.OrderStatusProcessing:
		since := order.UpdatedAt
		if order.ProcessingAt != nil {
			since = *order.ProcessingAt
		}
		if now.Sub(since) <= CustomerCancelWindow {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation window has passed").
			WithDetails(map[string]any{"current_status": order.Status, "processing_since": since})
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is too far into fulfillment to self-cancel").
		WithDetails(map[string]any{"current_status": order.Status})
}

// statusUpdates returns the columns written alongside a status change.
func statusUpdates(order *models.Order, target enums.OrderStatus, actor Actor, now time.Time) map[string]any {
	updates := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case enums.OrderStatusProcessing:
		updates["processing_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		// Only the customer path marks a refund; admin cancellations leave payment untouched.
		if actor.Role == enums.RoleCustomer && order.PaymentStatus == enums.PaymentStatusPaid {
			updates["payment_status"] = enums.PaymentStatusRefundPending
		}
		if order.PaymentStatus == enums.PaymentStatusPending {
			updates["payment_status"] = enums.PaymentStatusCancelled
		}
	}
	return updates
}

// NewHistoryEntry builds the audit row for a transition.
func NewHistoryEntry(orderID uuid.UUID, status enums.OrderStatus, notes *string, actor Actor) *models.OrderStatusHistory {
	entry := &models.OrderStatusHistory{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  status,
		Notes:   notes,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		entry.ChangedBy = &id
	}
	if actor.Role != "" {
		role := actor.Role
		entry.ActorRole = &role
	}
	return entry
}
