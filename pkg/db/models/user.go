package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// User represents every account: customers, shippers, intake staff and admins.
type User struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string             `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone        *string            `gorm:"column:phone"`
	FullName     string             `gorm:"column:full_name;not null"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	Role         enums.Role         `gorm:"column:role;type:text;not null"`
	Status       enums.UserStatus   `gorm:"column:status;type:text;not null;default:'approved'"`
	VehicleType  *enums.VehicleType `gorm:"column:vehicle_type;type:text"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
