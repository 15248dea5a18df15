package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

const maxNumberAttempts = 3

// Service defines order placement, reads and the status transition path.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason *string) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus, notes *string) (*OrderDTO, error)
	Transition(ctx context.Context, input TransitionInput) (*OrderDTO, error)
	Track(ctx context.Context, trackingNumber string) (*PublicTrackingDTO, error)
}

// TransitionInput describes one status change. Updates are extra columns written
// with the status; Guard runs against the freshly loaded row before the legality check.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   Actor
	Notes   *string
	Updates map[string]any
	Guard   func(order *models.Order) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	quoter   Quoter
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, quoter Quoter, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("quoter required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		quoter:   quoter,
		notifier: notifier,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	quote, err := s.quoter.Quote(ctx, pricing.QuoteInput{
		ServiceType:   input.ServiceType,
		Weight:        input.Weight,
		LengthCM:      input.LengthCM,
		WidthCM:       input.WidthCM,
		HeightCM:      input.HeightCM,
		DeclaredValue: input.DeclaredValue,
	})
	if err != nil {
		return nil, err
	}

	status := enums.OrderStatusPending
	if input.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.OrderStatusCODPending
	}
	actor := Actor{UserID: customerID, Role: enums.RoleCustomer}

	for attempt := 1; ; attempt++ {
		order, err := s.buildOrder(customerID, input, quote, status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order numbers")
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, order); err != nil {
				return err
			}
			if err := repo.AppendHistory(ctx, NewHistoryEntry(order.ID, status, nil, actor)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor.ref(),
				Data: payloads.OrderCreatedEvent{
					OrderID:        order.ID,
					OrderNumber:    order.OrderNumber,
					TrackingNumber: order.TrackingNumber,
					CustomerID:     customerID,
					ServiceType:    order.ServiceType,
					PaymentMethod:  order.PaymentMethod,
					TotalAmount:    order.TotalAmount,
					Status:         order.Status,
				},
			})
		})
		if err == nil {
			return ToDTO(order), nil
		}
		if db.IsUniqueViolation(err, "") && attempt < maxNumberAttempts {
			continue
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
}

func (s *service) buildOrder(customerID uuid.UUID, input CreateOrderInput, quote pricing.Quote, status enums.OrderStatus) (*models.Order, error) {
	now := s.now()
	orderNumber, err := NewOrderNumber(now)
	if err != nil {
		return nil, err
	}
	trackingNumber, err := NewTrackingNumber()
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                  uuid.New(),
		OrderNumber:         orderNumber,
		TrackingNumber:      trackingNumber,
		CustomerID:          customerID,
		ServiceType:         input.ServiceType,
		SenderName:          strings.TrimSpace(input.SenderName),
		SenderPhone:         strings.TrimSpace(input.SenderPhone),
		SenderAddress:       strings.TrimSpace(input.SenderAddress),
		ReceiverName:        strings.TrimSpace(input.ReceiverName),
		ReceiverPhone:       strings.TrimSpace(input.ReceiverPhone),
		ReceiverAddress:     strings.TrimSpace(input.ReceiverAddress),
		DeclaredWeight:      input.Weight,
		LengthCM:            input.LengthCM,
		WidthCM:             input.WidthCM,
		HeightCM:            input.HeightCM,
		DeclaredValue:       input.DeclaredValue,
		ChargeableWeight:    quote.ChargeableWeight,
		ShippingFee:         quote.ShippingFee,
		InsuranceFee:        quote.InsuranceFee,
		CODAmount:           input.CODAmount,
		TotalAmount:         quote.ShippingFee + quote.InsuranceFee,
		PaymentMethod:       input.PaymentMethod,
		PaymentStatus:       enums.PaymentStatusUnpaid,
		Status:              status,
		Notes:               input.Notes,
		EstimatedPickupAt:   quote.EstimatedPickupAt,
		EstimatedDeliveryAt: quote.EstimatedDeliveryAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for _, item := range input.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Description: strings.TrimSpace(item.Description),
			Quantity:    qty,
			Weight:      item.Weight,
		})
	}
	return order, nil
}

func validateCreate(input CreateOrderInput) error {
	if !input.ServiceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	missing := []string{}
	for name, value := range map[string]string{
		"sender_name":      input.SenderName,
		"sender_phone":     input.SenderPhone,
		"sender_address":   input.SenderAddress,
		"receiver_name":    input.ReceiverName,
		"receiver_phone":   input.ReceiverPhone,
		"receiver_address": input.ReceiverAddress,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sender and receiver details are required").
			WithDetails(map[string]any{"missing": missing})
	}
	if input.CODAmount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cod_amount must not be negative")
	}
	if input.CODAmount > 0 && input.PaymentMethod != enums.PaymentMethodCOD {
		return pkgerrors.New(pkgerrors.CodeValidation, "cod_amount requires cod payment method")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.Description) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d description required", i))
		}
		if item.Quantity < 0 || item.Weight < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d quantity and weight must not be negative", i))
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadVisible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	tracking, err := s.repo.FindTracking(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery tracking")
	}

	dto := ToDTO(order)
	dto.History = toHistory(history)
	dto.Tracking = toTracking(tracking)
	return dto, nil
}

// loadVisible returns the order when actor may read it. Orders outside the caller's
// scope are reported as missing.
func (s *service) loadVisible(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if !CanView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// CanView reports whether actor may read order.
func CanView(order *models.Order, actor Actor) bool {
	switch actor.Role {
	case enums.RoleAdmin, enums.RoleIntakeStaff:
		return true
	case enums.RoleCustomer:
		return order.CustomerID == actor.UserID
	case enums.RoleShipper:
		return order.ShipperID != nil && *order.ShipperID == actor.UserID
	}
	return false
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		Statuses: params.Statuses,
		Limit:    params.Pagination.Limit,
		Cursor:   cursor,
	}
	switch actor.Role {
	case enums.RoleCustomer:
		id := actor.UserID
		filter.CustomerID = &id
	case enums.RoleShipper:
		id := actor.UserID
		filter.ShipperID = &id
	case enums.RoleAdmin, enums.RoleIntakeStaff:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list orders")
	}

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSummary(row))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason *string) (*OrderDTO, error) {
	updates := map[string]any{}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		trimmed := strings.TrimSpace(*reason)
		updates["cancel_reason"] = trimmed
		reason = &trimmed
	}
	return s.Transition(ctx, TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusCancelled,
		Actor:   actor,
		Notes:   reason,
		Updates: updates,
	})
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus, notes *string) (*OrderDTO, error) {
	if actor.Role != enums.RoleAdmin && actor.Role != enums.RoleIntakeStaff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	input := TransitionInput{
		OrderID: orderID,
		Target:  target,
		Actor:   actor,
		Notes:   notes,
	}
	if target == enums.OrderStatusCancelled && notes != nil {
		input.Updates = map[string]any{"cancel_reason": *notes}
	}
	return s.Transition(ctx, input)
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadErr(err)
		}
		if input.Actor.Role == enums.RoleCustomer && order.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if input.Guard != nil {
			if err := input.Guard(order); err != nil {
				return err
			}
		}
		now := s.now()
		if err := CheckTransition(order, input.Target, input.Actor, now); err != nil {
			return err
		}

		updates := statusUpdates(order, input.Target, input.Actor, now)
		for k, v := range input.Updates {
			updates[k] = v
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if input.Target == enums.OrderStatusCancelled {
			if _, err := repo.CancelPendingPayments(ctx, order.ID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel pending payments")
			}
		}
		if err := repo.AppendHistory(ctx, NewHistoryEntry(order.ID, input.Target, input.Notes, input.Actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.ref(),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				From:       order.Status,
				To:         input.Target,
				Notes:      input.Notes,
				ChangedAt:  now,
			},
		}); err != nil {
			return err
		}

		from = order.Status
		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition order")
	}

	if input.Actor.Role != enums.RoleCustomer {
		s.notify(ctx, updated, from, input.Notes)
	}
	return ToDTO(updated), nil
}

func (s *service) notify(ctx context.Context, order *models.Order, from enums.OrderStatus, notes *string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderStatusChanged(ctx, order, from, notes); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"status":   order.Status,
			"error":    err.Error(),
		})
		s.logg.Warn(logCtx, "order status notification failed")
	}
}

func (s *service) Track(ctx context.Context, trackingNumber string) (*PublicTrackingDTO, error) {
	trackingNumber = strings.ToUpper(strings.TrimSpace(trackingNumber))
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	order, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	history, err := s.repo.ListHistory(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	tracking, err := s.repo.FindTracking(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery tracking")
	}

	public := toHistory(history)
	for i := range public {
		public[i].ChangedBy = nil
	}
	return &PublicTrackingDTO{
		TrackingNumber:      order.TrackingNumber,
		Status:              order.Status,
		ServiceType:         order.ServiceType,
		EstimatedDeliveryAt: order.EstimatedDeliveryAt,
		DeliveredAt:         order.DeliveredAt,
		History:             public,
		Location:            toTracking(tracking),
	}, nil
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
