package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// Complaint is a customer-filed issue about one of their orders.
type Complaint struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	CustomerID  uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	Subject     string                `gorm:"column:subject;not null"`
	Description string                `gorm:"column:description;not null"`
	Status      enums.ComplaintStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Resolution  *string               `gorm:"column:resolution"`
	ResolvedBy  *uuid.UUID            `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt  *time.Time            `gorm:"column:resolved_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
