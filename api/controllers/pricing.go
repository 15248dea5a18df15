package controllers

import (
	"net/http"

	"github.com/angelmondragon/parcelhub-backend/api/responses"
	"github.com/angelmondragon/parcelhub-backend/api/validators"
	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

type quoteRequest struct {
	ServiceType   enums.ServiceType `json:"service_type" validate:"required"`
	Weight        float64           `json:"weight" validate:"gt=0"`
	LengthCM      float64           `json:"length_cm" validate:"gte=0"`
	WidthCM       float64           `json:"width_cm" validate:"gte=0"`
	HeightCM      float64           `json:"height_cm" validate:"gte=0"`
	DeclaredValue int64             `json:"declared_value" validate:"gte=0"`
}

type upsertRuleRequest struct {
	BaseFee             int64  `json:"base_fee" validate:"gte=0"`
	StepFee             int64  `json:"step_fee" validate:"gte=0"`
	Surcharge           int64  `json:"surcharge" validate:"gte=0"`
	Discount            int64  `json:"discount" validate:"gte=0"`
	MinimumFare         int64  `json:"minimum_fare" validate:"gte=0"`
	InsuranceRate       string `json:"insurance_rate" validate:"required"`
	InsuranceThreshold  int64  `json:"insurance_threshold" validate:"gte=0"`
	DeliveryOffsetHours int    `json:"delivery_offset_hours" validate:"gte=0"`
	Active              *bool  `json:"active,omitempty"`
}

// QuotePrice is the public price estimator.
func QuotePrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("pricing"))
			return
		}

		var body quoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), pricing.QuoteInput{
			ServiceType:   body.ServiceType,
			Weight:        body.Weight,
			LengthCM:      body.LengthCM,
			WidthCM:       body.WidthCM,
			HeightCM:      body.HeightCM,
			DeclaredValue: body.DeclaredValue,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func ListPricingRules(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("pricing"))
			return
		}

		rules, err := svc.ListRules(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

// UpsertPricingRule replaces the rate row for the service type in the path.
func UpsertPricingRule(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("pricing"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, err := enums.ParseServiceType(chiParam(r, "serviceType"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type"))
			return
		}

		var body upsertRuleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active := true
		if body.Active != nil {
			active = *body.Active
		}

		rule, err := svc.UpsertRule(r.Context(), actor.UserID, pricing.UpsertRuleInput{
			ServiceType:         serviceType,
			BaseFee:             body.BaseFee,
			StepFee:             body.StepFee,
			Surcharge:           body.Surcharge,
			Discount:            body.Discount,
			MinimumFare:         body.MinimumFare,
			InsuranceRate:       body.InsuranceRate,
			InsuranceThreshold:  body.InsuranceThreshold,
			DeliveryOffsetHours: body.DeliveryOffsetHours,
			Active:              active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}
