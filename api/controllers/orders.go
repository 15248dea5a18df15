package controllers

import (
	"net/http"

	"github.com/angelmondragon/parcelhub-backend/api/responses"
	"github.com/angelmondragon/parcelhub-backend/api/validators"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

type createOrderRequest struct {
	ServiceType   enums.ServiceType   `json:"service_type" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`

	SenderName      string `json:"sender_name" validate:"required,max=120"`
	SenderPhone     string `json:"sender_phone" validate:"required,max=32"`
	SenderAddress   string `json:"sender_address" validate:"required,max=500"`
	ReceiverName    string `json:"receiver_name" validate:"required,max=120"`
	ReceiverPhone   string `json:"receiver_phone" validate:"required,max=32"`
	ReceiverAddress string `json:"receiver_address" validate:"required,max=500"`

	Weight        float64 `json:"weight" validate:"gt=0"`
	LengthCM      float64 `json:"length_cm" validate:"gte=0"`
	WidthCM       float64 `json:"width_cm" validate:"gte=0"`
	HeightCM      float64 `json:"height_cm" validate:"gte=0"`
	DeclaredValue int64   `json:"declared_value" validate:"gte=0"`
	CODAmount     int64   `json:"cod_amount" validate:"gte=0"`
	Notes         *string `json:"notes,omitempty"`

	Items []orderItemRequest `json:"items" validate:"dive"`
}

type orderItemRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	Weight      float64 `json:"weight" validate:"gte=0"`
}

func (req createOrderRequest) toInput() orders.CreateOrderInput {
	input := orders.CreateOrderInput{
		ServiceType:     req.ServiceType,
		PaymentMethod:   req.PaymentMethod,
		SenderName:      validators.SanitizeString(req.SenderName, 120),
		SenderPhone:     validators.SanitizeString(req.SenderPhone, 32),
		SenderAddress:   validators.SanitizeString(req.SenderAddress, 500),
		ReceiverName:    validators.SanitizeString(req.ReceiverName, 120),
		ReceiverPhone:   validators.SanitizeString(req.ReceiverPhone, 32),
		ReceiverAddress: validators.SanitizeString(req.ReceiverAddress, 500),
		Weight:          req.Weight,
		LengthCM:        req.LengthCM,
		WidthCM:         req.WidthCM,
		HeightCM:        req.HeightCM,
		DeclaredValue:   req.DeclaredValue,
		CODAmount:       req.CODAmount,
		Notes:           validators.SanitizeOptional(req.Notes, 1000),
		Items:           make([]orders.ItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, orders.ItemInput{
			Description: validators.SanitizeString(item.Description, 255),
			Quantity:    item.Quantity,
			Weight:      item.Weight,
		})
	}
	return input
}

type cancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type orderStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Notes  *string           `json:"notes,omitempty"`
}

// CreateOrder places an order for the authenticated customer.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), actor.UserID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithOrderID(r.Context(), order.ID.String()), "order.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders returns the caller's view of orders: own orders for customers, assigned for
// shippers, everything for back-office roles.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		statuses, err := orderStatusesFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, orders.ListParams{Statuses: statuses, Pagination: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelOrder lets a customer withdraw an own order before it reaches the warehouse.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), actor, orderID, validators.SanitizeOptional(body.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateOrderStatus is the back-office override for moving an order along its lifecycle.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), actor, orderID, body.Status, validators.SanitizeOptional(body.Notes, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TrackOrder is the public tracking lookup.
func TrackOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		number := validators.SanitizeString(chiParam(r, "trackingNumber"), 64)
		result, err := svc.Track(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
