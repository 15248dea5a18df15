// Package warehouse drives the intake desk: receiving parcels at a hub, sizing them and
// handing them to a shipper.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

// intakeSources are the statuses a parcel may arrive at the warehouse from.
var intakeSources = []enums.OrderStatus{
	enums.OrderStatusProcessing,
	enums.OrderStatusConfirmed,
	enums.OrderStatusCODPending,
}

// defaultQueue is what the intake desk sees without a status filter.
var defaultQueue = []enums.OrderStatus{
	enums.OrderStatusProcessing,
	enums.OrderStatusConfirmed,
	enums.OrderStatusCODPending,
	enums.OrderStatusReceivedAtWarehouse,
	enums.OrderStatusClassified,
}

type orderTransitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*orders.OrderDTO, error)
	List(ctx context.Context, actor orders.Actor, params orders.ListParams) (*orders.ListResult, error)
}

type hubFinder interface {
	FindActiveHub(ctx context.Context, id uuid.UUID) (*models.Hub, error)
}

type shipperFinder interface {
	FindApprovedShipper(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service is the intake desk.
type Service interface {
	Intake(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input IntakeInput) (*orders.OrderDTO, error)
	Classify(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input ClassifyInput) (*orders.OrderDTO, error)
	Assign(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input AssignInput) (*orders.OrderDTO, error)
	Queue(ctx context.Context, actor orders.Actor, statuses []enums.OrderStatus, page pagination.Params) (*orders.ListResult, error)
}

type IntakeInput struct {
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	Weight      float64   `json:"weight" validate:"gt=0"`
	Notes       *string   `json:"notes,omitempty"`
}

type ClassifyInput struct {
	PackageSize enums.PackageSize `json:"package_size" validate:"required"`
	Notes       *string           `json:"notes,omitempty"`
}

type AssignInput struct {
	ShipperID   uuid.UUID          `json:"shipper_id" validate:"required"`
	VehicleType *enums.VehicleType `json:"vehicle_type,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
}

type service struct {
	orders   orderTransitioner
	hubs     hubFinder
	shippers shipperFinder
	logg     *logger.Logger
}

// NewService wires the intake desk.
func NewService(orderSvc orderTransitioner, hubs hubFinder, shippers shipperFinder, logg *logger.Logger) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if hubs == nil {
		return nil, fmt.Errorf("hub finder required")
	}
	if shippers == nil {
		return nil, fmt.Errorf("shipper finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orderSvc, hubs: hubs, shippers: shippers, logg: logg}, nil
}

func (s *service) Intake(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input IntakeInput) (*orders.OrderDTO, error) {
	if err := requireDesk(actor); err != nil {
		return nil, err
	}
	if input.Weight <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	hub, err := s.hubs.FindActiveHub(ctx, input.WarehouseID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusReceivedAtWarehouse,
		Actor:   actor,
		Notes:   trimNotes(input.Notes),
		Updates: map[string]any{
			"warehouse_id": hub.ID,
			"weight":       input.Weight,
		},
		Guard: requireStatus(intakeSources...),
	})
	if err != nil {
		return nil, err
	}
	s.logStep(ctx, actor, order, "parcel received at warehouse")
	return order, nil
}

func (s *service) Classify(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input ClassifyInput) (*orders.OrderDTO, error) {
	if err := requireDesk(actor); err != nil {
		return nil, err
	}
	if !input.PackageSize.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid package_size %q", input.PackageSize))
	}

	order, err := s.orders.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusClassified,
		Actor:   actor,
		Notes:   trimNotes(input.Notes),
		Updates: map[string]any{"package_size": input.PackageSize},
		Guard:   requireStatus(enums.OrderStatusReceivedAtWarehouse),
	})
	if err != nil {
		return nil, err
	}
	s.logStep(ctx, actor, order, "parcel classified")
	return order, nil
}

func (s *service) Assign(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input AssignInput) (*orders.OrderDTO, error) {
	if err := requireDesk(actor); err != nil {
		return nil, err
	}
	if input.VehicleType != nil && !input.VehicleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid vehicle_type %q", *input.VehicleType))
	}
	shipper, err := s.shippers.FindApprovedShipper(ctx, input.ShipperID)
	if err != nil {
		return nil, err
	}

	vehicle := input.VehicleType
	if vehicle == nil {
		vehicle = shipper.VehicleType
	}
	updates := map[string]any{"shipper_id": shipper.ID}
	if vehicle != nil {
		updates["vehicle_type"] = *vehicle
	}

	order, err := s.orders.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusAssigned,
		Actor:   actor,
		Notes:   trimNotes(input.Notes),
		Updates: updates,
		Guard:   requireStatus(enums.OrderStatusClassified),
	})
	if err != nil {
		return nil, err
	}
	s.logStep(ctx, actor, order, "parcel assigned to shipper")
	return order, nil
}

func (s *service) Queue(ctx context.Context, actor orders.Actor, statuses []enums.OrderStatus, page pagination.Params) (*orders.ListResult, error) {
	if err := requireDesk(actor); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = defaultQueue
	}
	return s.orders.List(ctx, actor, orders.ListParams{Statuses: statuses, Pagination: page})
}

func (s *service) logStep(ctx context.Context, actor orders.Actor, order *orders.OrderDTO, msg string) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"actor_id": actor.UserID.String(),
		"status":   order.Status.String(),
	})
	s.logg.Info(ctx, msg)
}

func requireDesk(actor orders.Actor) error {
	if actor.Role != enums.RoleIntakeStaff && actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "warehouse access required")
	}
	return nil
}

// requireStatus pins the source status for a warehouse step. Admins are held to it too.
func requireStatus(allowed ...enums.OrderStatus) func(*models.Order) error {
	return func(order *models.Order) error {
		for _, status := range allowed {
			if order.Status == status {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s", order.Status)).
			WithDetails(map[string]any{"current_status": order.Status, "allowed_from": allowed})
	}
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
