package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

// CreateOrderInput is what a customer submits to place an order.
type CreateOrderInput struct {
	ServiceType     enums.ServiceType
	PaymentMethod   enums.PaymentMethod
	SenderName      string
	SenderPhone     string
	SenderAddress   string
	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	Weight          float64
	LengthCM        float64
	WidthCM         float64
	HeightCM        float64
	DeclaredValue   int64
	CODAmount       int64
	Notes           *string
	Items           []ItemInput
}

// ItemInput is one line of parcel contents.
type ItemInput struct {
	Description string
	Quantity    int
	Weight      float64
}

// ListParams narrows an order listing.
type ListParams struct {
	Statuses   []enums.OrderStatus
	Pagination pagination.Params
}

// ListResult is a page of order summaries.
type ListResult = pagination.Page[OrderSummary]

// OrderSummary is the list row representation.
type OrderSummary struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	TrackingNumber      string              `json:"tracking_number"`
	ServiceType         enums.ServiceType   `json:"service_type"`
	Status              enums.OrderStatus   `json:"status"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	ReceiverName        string              `json:"receiver_name"`
	ReceiverAddress     string              `json:"receiver_address"`
	TotalAmount         int64               `json:"total_amount"`
	ShipperID           *uuid.UUID          `json:"shipper_id,omitempty"`
	EstimatedDeliveryAt time.Time           `json:"estimated_delivery_at"`
	CreatedAt           time.Time           `json:"created_at"`
}

// OrderDTO is the detailed order representation.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	OrderNumber    string            `json:"order_number"`
	TrackingNumber string            `json:"tracking_number"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	ServiceType    enums.ServiceType `json:"service_type"`
	Status         enums.OrderStatus `json:"status"`

	Sender   PartyDTO `json:"sender"`
	Receiver PartyDTO `json:"receiver"`

	DeclaredWeight   float64 `json:"declared_weight"`
	LengthCM         float64 `json:"length_cm"`
	WidthCM          float64 `json:"width_cm"`
	HeightCM         float64 `json:"height_cm"`
	DeclaredValue    int64   `json:"declared_value"`
	ChargeableWeight float64 `json:"chargeable_weight"`

	ShippingFee      int64               `json:"shipping_fee"`
	InsuranceFee     int64               `json:"insurance_fee"`
	CODAmount        int64               `json:"cod_amount"`
	TotalAmount      int64               `json:"total_amount"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	Notes            *string             `json:"notes,omitempty"`

	WarehouseID    *uuid.UUID         `json:"warehouse_id,omitempty"`
	PackageSize    *enums.PackageSize `json:"package_size,omitempty"`
	MeasuredWeight *float64           `json:"weight,omitempty"`
	ShipperID      *uuid.UUID         `json:"shipper_id,omitempty"`
	VehicleType    *enums.VehicleType `json:"vehicle_type,omitempty"`

	EstimatedPickupAt   time.Time  `json:"estimated_pickup_at"`
	EstimatedDeliveryAt time.Time  `json:"estimated_delivery_at"`
	ProcessingAt        *time.Time `json:"processing_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CancelReason        *string    `json:"cancel_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Items    []ItemDTO    `json:"items"`
	History  []HistoryDTO `json:"history,omitempty"`
	Tracking *TrackingDTO `json:"tracking,omitempty"`
}

// PartyDTO is a sender or receiver contact.
type PartyDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ItemDTO mirrors an order item.
type ItemDTO struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Weight      float64   `json:"weight"`
}

// HistoryDTO is one audit row.
type HistoryDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Notes     *string           `json:"notes,omitempty"`
	ChangedBy *uuid.UUID        `json:"changed_by,omitempty"`
	ActorRole *enums.Role       `json:"actor_role,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TrackingDTO is the latest shipper check-in.
type TrackingDTO struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Status    enums.OrderStatus `json:"status"`
	Note      *string           `json:"note,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PublicTrackingDTO is what an anonymous caller sees for a tracking number.
type PublicTrackingDTO struct {
	TrackingNumber      string            `json:"tracking_number"`
	Status              enums.OrderStatus `json:"status"`
	ServiceType         enums.ServiceType `json:"service_type"`
	EstimatedDeliveryAt time.Time         `json:"estimated_delivery_at"`
	DeliveredAt         *time.Time        `json:"delivered_at,omitempty"`
	History             []HistoryDTO      `json:"history"`
	Location            *TrackingDTO      `json:"location,omitempty"`
}

func toSummary(o models.Order) OrderSummary {
	return OrderSummary{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		TrackingNumber:      o.TrackingNumber,
		ServiceType:         o.ServiceType,
		Status:              o.Status,
		PaymentMethod:       o.PaymentMethod,
		PaymentStatus:       o.PaymentStatus,
		ReceiverName:        o.ReceiverName,
		ReceiverAddress:     o.ReceiverAddress,
		TotalAmount:         o.TotalAmount,
		ShipperID:           o.ShipperID,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		CreatedAt:           o.CreatedAt,
	}
}

// ToDTO maps an order row, without history or tracking.
func ToDTO(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		TrackingNumber:      o.TrackingNumber,
		CustomerID:          o.CustomerID,
		ServiceType:         o.ServiceType,
		Status:              o.Status,
		Sender:              PartyDTO{Name: o.SenderName, Phone: o.SenderPhone, Address: o.SenderAddress},
		Receiver:            PartyDTO{Name: o.ReceiverName, Phone: o.ReceiverPhone, Address: o.ReceiverAddress},
		DeclaredWeight:      o.DeclaredWeight,
		LengthCM:            o.LengthCM,
		WidthCM:             o.WidthCM,
		HeightCM:            o.HeightCM,
		DeclaredValue:       o.DeclaredValue,
		ChargeableWeight:    o.ChargeableWeight,
		ShippingFee:         o.ShippingFee,
		InsuranceFee:        o.InsuranceFee,
		CODAmount:           o.CODAmount,
		TotalAmount:         o.TotalAmount,
		PaymentMethod:       o.PaymentMethod,
		PaymentStatus:       o.PaymentStatus,
		PaymentReference:    o.PaymentReference,
		Notes:               o.Notes,
		WarehouseID:         o.WarehouseID,
		PackageSize:         o.PackageSize,
		MeasuredWeight:      o.MeasuredWeight,
		ShipperID:           o.ShipperID,
		VehicleType:         o.VehicleType,
		EstimatedPickupAt:   o.EstimatedPickupAt,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		ProcessingAt:        o.ProcessingAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
		CancelReason:        o.CancelReason,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		Items:               make([]ItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Weight:      item.Weight,
		})
	}
	return dto
}

func toHistory(rows []models.OrderStatusHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryDTO{
			Status:    row.Status,
			Notes:     row.Notes,
			ChangedBy: row.ChangedBy,
			ActorRole: row.ActorRole,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

func toTracking(row *models.DeliveryTracking) *TrackingDTO {
	if row == nil {
		return nil
	}
	return &TrackingDTO{
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		Status:    row.Status,
		Note:      row.Note,
		UpdatedAt: row.UpdatedAt,
	}
}
