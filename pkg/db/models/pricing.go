package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// PricingRule overrides the default rate card for one service type.
type PricingRule struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceType         enums.ServiceType `gorm:"column:service_type;type:text;not null;uniqueIndex"`
	BaseFee             int64             `gorm:"column:base_fee;not null"`
	StepFee             int64             `gorm:"column:step_fee;not null"`
	Surcharge           int64             `gorm:"column:surcharge;not null;default:0"`
	Discount            int64             `gorm:"column:discount;not null;default:0"`
	MinimumFare         int64             `gorm:"column:minimum_fare;not null;default:0"`
	InsuranceRate       decimal.Decimal   `gorm:"column:insurance_rate;type:numeric(8,5);not null"`
	InsuranceThreshold  int64             `gorm:"column:insurance_threshold;not null"`
	DeliveryOffsetHours int               `gorm:"column:delivery_offset_hours;not null"`
	Active              bool              `gorm:"column:active;not null"`
	UpdatedBy           *uuid.UUID        `gorm:"column:updated_by;type:uuid"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Zone groups provinces into a delivery area.
type Zone struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string         `gorm:"column:code;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null"`
	Provinces pq.StringArray `gorm:"column:provinces;type:text[];not null"`
	Active    bool           `gorm:"column:active;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Hub is a warehouse where parcels are received and classified.
type Hub struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string     `gorm:"column:code;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;not null"`
	Address   string     `gorm:"column:address;not null"`
	ZoneID    *uuid.UUID `gorm:"column:zone_id;type:uuid"`
	Active    bool       `gorm:"column:active;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
