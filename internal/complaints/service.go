// Package complaints handles customer complaints about their orders and the support
// workflow that resolves them.
package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/notifications"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

const (
	maxSubjectLength     = 200
	maxDescriptionLength = 4000
)

// moves lists the statuses support may move a complaint to from each open state.
var moves = map[enums.ComplaintStatus][]enums.ComplaintStatus{
	enums.ComplaintStatusOpen:     {enums.ComplaintStatusInReview, enums.ComplaintStatusResolved, enums.ComplaintStatusRejected},
	enums.ComplaintStatusInReview: {enums.ComplaintStatusResolved, enums.ComplaintStatusRejected},
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type notifier interface {
	Notify(ctx context.Context, input notifications.NewNotification) (*notifications.NotificationDTO, error)
}

// Service is the complaint desk.
type Service interface {
	File(ctx context.Context, actor orders.Actor, input FileInput) (*ComplaintDTO, error)
	Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*ComplaintDTO, error)
	List(ctx context.Context, actor orders.Actor, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, actor orders.Actor, id uuid.UUID, input StatusInput) (*ComplaintDTO, error)
}

type FileInput struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required,max=200"`
	Description string    `json:"description" validate:"required,max=4000"`
}

type StatusInput struct {
	Status     enums.ComplaintStatus `json:"status" validate:"required"`
	Resolution *string               `json:"resolution,omitempty"`
}

type ListParams struct {
	Status     *enums.ComplaintStatus
	Pagination pagination.Params
}

type ComplaintDTO struct {
	ID          uuid.UUID             `json:"id"`
	OrderID     uuid.UUID             `json:"order_id"`
	CustomerID  uuid.UUID             `json:"customer_id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      enums.ComplaintStatus `json:"status"`
	Resolution  *string               `json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID            `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

type ListResult = pagination.Page[ComplaintDTO]

type service struct {
	repo   Repository
	orders orderLoader
	inbox  notifier
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the complaint desk. inbox may be nil.
func NewService(repo Repository, orderLoader orderLoader, inbox notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("complaints repository required")
	}
	if orderLoader == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		orders: orderLoader,
		inbox:  inbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) File(ctx context.Context, actor orders.Actor, input FileInput) (*ComplaintDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers may file complaints")
	}
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and description are required")
	}
	if len(subject) > maxSubjectLength || len(description) > maxDescriptionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "complaint text too long")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapLoadErr(err, "order not found")
	}
	if order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	now := s.now()
	complaint := &models.Complaint{
		ID:          uuid.New(),
		OrderID:     order.ID,
		CustomerID:  actor.UserID,
		Subject:     subject,
		Description: description,
		Status:      enums.ComplaintStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create complaint")
	}
	return toDTO(complaint), nil
}

func (s *service) Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*ComplaintDTO, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err, "complaint not found")
	}
	switch actor.Role {
	case enums.RoleAdmin:
	case enums.RoleCustomer:
		if complaint.CustomerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	return toDTO(complaint), nil
}

func (s *service) List(ctx context.Context, actor orders.Actor, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	filter := ListFilter{Status: params.Status, Limit: params.Pagination.Limit, Cursor: cursor}
	switch actor.Role {
	case enums.RoleAdmin:
	case enums.RoleCustomer:
		id := actor.UserID
		filter.CustomerID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list complaints")
	}
	items := make([]ComplaintDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *toDTO(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor orders.Actor, id uuid.UUID, input StatusInput) (*ComplaintDTO, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	var resolution *string
	if input.Resolution != nil {
		if trimmed := strings.TrimSpace(*input.Resolution); trimmed != "" {
			resolution = &trimmed
		}
	}
	if input.Status.IsClosed() && resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution note required")
	}

	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err, "complaint not found")
	}
	if !allowed(complaint.Status, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move complaint from %s to %s", complaint.Status, input.Status)).
			WithDetails(map[string]any{"current_status": complaint.Status})
	}

	now := s.now()
	updates := map[string]any{
		"status":     input.Status,
		"updated_at": now,
	}
	if resolution != nil {
		updates["resolution"] = *resolution
	}
	if input.Status.IsClosed() {
		updates["resolved_by"] = actor.UserID
		updates["resolved_at"] = now
	}
	if err := s.repo.UpdateFields(ctx, complaint.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
	}

	updated, err := s.repo.FindByID(ctx, complaint.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload complaint")
	}
	s.notify(ctx, updated)
	return toDTO(updated), nil
}

func (s *service) notify(ctx context.Context, complaint *models.Complaint) {
	if s.inbox == nil {
		return
	}
	message := fmt.Sprintf("Your complaint %q is now %s.", complaint.Subject, strings.ReplaceAll(string(complaint.Status), "_", " "))
	if complaint.Resolution != nil {
		message += " " + *complaint.Resolution
	}
	orderID := complaint.OrderID
	_, err := s.inbox.Notify(ctx, notifications.NewNotification{
		UserID:  complaint.CustomerID,
		OrderID: &orderID,
		Type:    enums.NotificationTypeComplaint,
		Title:   "Complaint updated",
		Message: message,
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"complaint_id": complaint.ID.String(),
			"error":        err.Error(),
		})
		s.logg.Warn(logCtx, "complaint notification failed")
	}
}

func allowed(from, to enums.ComplaintStatus) bool {
	for _, candidate := range moves[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func mapLoadErr(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load record")
}

func toDTO(c *models.Complaint) *ComplaintDTO {
	return &ComplaintDTO{
		ID:          c.ID,
		OrderID:     c.OrderID,
		CustomerID:  c.CustomerID,
		Subject:     c.Subject,
		Description: c.Description,
		Status:      c.Status,
		Resolution:  c.Resolution,
		ResolvedBy:  c.ResolvedBy,
		ResolvedAt:  c.ResolvedAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
