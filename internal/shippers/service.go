// Package shippers is the driver-facing surface: assigned orders, status updates from
// the road and location check-ins.
package shippers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/realtime"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

type orderFlow interface {
	List(ctx context.Context, actor orders.Actor, params orders.ListParams) (*orders.ListResult, error)
	Transition(ctx context.Context, input orders.TransitionInput) (*orders.OrderDTO, error)
}

type trackingStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpsertTracking(ctx context.Context, tracking *models.DeliveryTracking) error
}

type roomPusher interface {
	EmitToRoom(ctx context.Context, room, name string, data any) int
}

// Service is what a signed-in shipper can do.
type Service interface {
	MyOrders(ctx context.Context, actor orders.Actor, statuses []enums.OrderStatus, page pagination.Params) (*orders.ListResult, error)
	UpdateStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input StatusInput) (*orders.OrderDTO, error)
	UpdateLocation(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input LocationInput) (*LocationUpdate, error)
}

type StatusInput struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

type LocationInput struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Note      *string `json:"note,omitempty"`
}

// LocationUpdate is the location-update payload and the check-in response.
type LocationUpdate struct {
	OrderID uuid.UUID `json:"order_id"`
	orders.TrackingDTO
}

type service struct {
	orders   orderFlow
	tracking trackingStore
	rooms    roomPusher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the shipper surface. rooms may be nil when no websocket hub runs.
func NewService(orderSvc orderFlow, tracking trackingStore, rooms roomPusher, logg *logger.Logger) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   orderSvc,
		tracking: tracking,
		rooms:    rooms,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) MyOrders(ctx context.Context, actor orders.Actor, statuses []enums.OrderStatus, page pagination.Params) (*orders.ListResult, error) {
	if err := requireShipper(actor); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, actor, orders.ListParams{Statuses: statuses, Pagination: page})
}

func (s *service) UpdateStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input StatusInput) (*orders.OrderDTO, error) {
	if err := requireShipper(actor); err != nil {
		return nil, err
	}
	token, err := enums.ParseShipperStatusToken(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"allowed": enums.ShipperStatusTokens()})
	}
	return s.orders.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  token.OrderStatus(),
		Actor:   actor,
		Notes:   trimNote(input.Notes),
	})
}

func (s *service) UpdateLocation(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input LocationInput) (*LocationUpdate, error) {
	if err := requireShipper(actor); err != nil {
		return nil, err
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	order, err := s.tracking.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ShipperID == nil || *order.ShipperID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this shipper")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status)).
			WithDetails(map[string]any{"current_status": order.Status})
	}

	row := &models.DeliveryTracking{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ShipperID: actor.UserID,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Status:    order.Status,
		Note:      trimNote(input.Note),
		UpdatedAt: s.now(),
	}
	if err := s.tracking.UpsertTracking(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery tracking")
	}

	update := &LocationUpdate{
		OrderID: order.ID,
		TrackingDTO: orders.TrackingDTO{
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			Status:    row.Status,
			Note:      row.Note,
			UpdatedAt: row.UpdatedAt,
		},
	}
	if s.rooms != nil {
		delivered := s.rooms.EmitToRoom(ctx, realtime.OrderRoom(order.ID), realtime.EventLocationUpdate, update)
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"receivers": delivered,
		})
		s.logg.Info(logCtx, "location update pushed")
	}
	return update, nil
}

func requireShipper(actor orders.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.RoleShipper {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shipper role required")
	}
	return nil
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
