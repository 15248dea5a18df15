package controllers

import (
	"net/http"

	"github.com/angelmondragon/parcelhub-backend/api/responses"
	"github.com/angelmondragon/parcelhub-backend/api/validators"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/warehouse"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

// WarehouseQueue lists orders waiting on the warehouse floor.
func WarehouseQueue(svc warehouse.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("warehouse"))
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

		result, err := svc.Queue(r.Context(), actor, statuses, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func WarehouseIntake(svc warehouse.Service, logg *logger.Logger) http.HandlerFunc {
	return warehouseStep(svc == nil, logg, func(r *http.Request, actor orders.Actor) (*orders.OrderDTO, error) {
		var body warehouse.IntakeInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		body.Notes = validators.SanitizeOptional(body.Notes, 1000)
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.Intake(r.Context(), actor, orderID, body)
	})
}

func WarehouseClassify(svc warehouse.Service, logg *logger.Logger) http.HandlerFunc {
	return warehouseStep(svc == nil, logg, func(r *http.Request, actor orders.Actor) (*orders.OrderDTO, error) {
		var body warehouse.ClassifyInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		body.Notes = validators.SanitizeOptional(body.Notes, 1000)
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.Classify(r.Context(), actor, orderID, body)
	})
}

func WarehouseAssign(svc warehouse.Service, logg *logger.Logger) http.HandlerFunc {
	return warehouseStep(svc == nil, logg, func(r *http.Request, actor orders.Actor) (*orders.OrderDTO, error) {
		var body warehouse.AssignInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		body.Notes = validators.SanitizeOptional(body.Notes, 1000)
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.Assign(r.Context(), actor, orderID, body)
	})
}

func warehouseStep(missing bool, logg *logger.Logger, run func(r *http.Request, actor orders.Actor) (*orders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if missing {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("warehouse"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := run(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
