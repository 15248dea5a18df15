package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// RoomAuthorizer decides who may subscribe to an order room.
type RoomAuthorizer struct {
	orders orderLoader
}

func NewRoomAuthorizer(loader orderLoader) (*RoomAuthorizer, error) {
	if loader == nil {
		return nil, fmt.Errorf("order loader required")
	}
	return &RoomAuthorizer{orders: loader}, nil
}

// CanJoin applies the same visibility rule as reading the order.
func (a *RoomAuthorizer) CanJoin(ctx context.Context, actor orders.Actor, room string) error {
	orderID, err := ParseOrderRoom(room)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid room")
	}
	if actor.Role.IsStaff() {
		return nil
	}
	order, err := a.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !orders.CanView(order, actor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to join room")
	}
	return nil
}
