package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// Order is a customer delivery order. Rows are never deleted.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string            `gorm:"column:order_number;not null;uniqueIndex"`
	TrackingNumber string            `gorm:"column:tracking_number;not null;uniqueIndex"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	ServiceType    enums.ServiceType `gorm:"column:service_type;type:text;not null"`

	SenderName      string `gorm:"column:sender_name;not null"`
	SenderPhone     string `gorm:"column:sender_phone;not null"`
	SenderAddress   string `gorm:"column:sender_address;not null"`
	ReceiverName    string `gorm:"column:receiver_name;not null"`
	ReceiverPhone   string `gorm:"column:receiver_phone;not null"`
	ReceiverAddress string `gorm:"column:receiver_address;not null"`

	DeclaredWeight   float64 `gorm:"column:declared_weight;not null"`
	LengthCM         float64 `gorm:"column:length_cm;not null;default:0"`
	WidthCM          float64 `gorm:"column:width_cm;not null;default:0"`
	HeightCM         float64 `gorm:"column:height_cm;not null;default:0"`
	DeclaredValue    int64   `gorm:"column:declared_value;not null;default:0"`
	ChargeableWeight float64 `gorm:"column:chargeable_weight;not null"`

	ShippingFee  int64 `gorm:"column:shipping_fee;not null"`
	InsuranceFee int64 `gorm:"column:insurance_fee;not null;default:0"`
	CODAmount    int64 `gorm:"column:cod_amount;not null;default:0"`
	TotalAmount  int64 `gorm:"column:total_amount;not null"`

	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	Notes            *string             `gorm:"column:notes"`

	WarehouseID    *uuid.UUID         `gorm:"column:warehouse_id;type:uuid"`
	PackageSize    *enums.PackageSize `gorm:"column:package_size;type:text"`
	MeasuredWeight *float64           `gorm:"column:weight"`

	ShipperID   *uuid.UUID         `gorm:"column:shipper_id;type:uuid"`
	VehicleType *enums.VehicleType `gorm:"column:vehicle_type;type:text"`

	EstimatedPickupAt   time.Time  `gorm:"column:estimated_pickup_at;not null"`
	EstimatedDeliveryAt time.Time  `gorm:"column:estimated_delivery_at;not null"`
	ProcessingAt        *time.Time `gorm:"column:processing_at"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at"`
	CancelledAt         *time.Time `gorm:"column:cancelled_at"`
	CancelReason        *string    `gorm:"column:cancel_reason"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem describes one piece of content inside a parcel.
type OrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Description string    `gorm:"column:description;not null"`
	Quantity    int       `gorm:"column:quantity;not null;default:1"`
	Weight      float64   `gorm:"column:weight;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusHistory is the append-only audit trail of status transitions.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Notes     *string           `gorm:"column:notes"`
	ChangedBy *uuid.UUID        `gorm:"column:changed_by;type:uuid"`
	ActorRole *enums.Role       `gorm:"column:actor_role;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// DeliveryTracking holds the latest shipper check-in for an order.
type DeliveryTracking struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ShipperID uuid.UUID         `gorm:"column:shipper_id;type:uuid;not null"`
	Latitude  float64           `gorm:"column:latitude;not null"`
	Longitude float64           `gorm:"column:longitude;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Note      *string           `gorm:"column:note"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeliveryTracking) TableName() string {
	return "delivery_tracking"
}
