package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Quoter prices a parcel at order placement.
type Quoter interface {
	Quote(ctx context.Context, input pricing.QuoteInput) (pricing.Quote, error)
}

// Notifier is told about committed status changes. Delivery is best-effort.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order, from enums.OrderStatus, notes *string) error
}

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) ref() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}
