package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// PaymentTransaction is one payment attempt for an order.
type PaymentTransaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	Reference   string                  `gorm:"column:reference;not null;uniqueIndex"`
	Amount      int64                   `gorm:"column:amount;not null"`
	Currency    string                  `gorm:"column:currency;not null;default:'VND'"`
	Status      enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaidAmount  *int64                  `gorm:"column:paid_amount"`
	Signature   string                  `gorm:"column:signature;not null"`
	RedirectURL string                  `gorm:"column:redirect_url;not null"`
	ExpiresAt   time.Time               `gorm:"column:expires_at;not null"`
	CompletedAt *time.Time              `gorm:"column:completed_at"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
