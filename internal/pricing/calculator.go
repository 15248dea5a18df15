package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

const (
	// PickupOffset applies to every service type.
	PickupOffset = 4 * time.Hour
)

var (
	minChargeableWeight = decimal.RequireFromString("0.5")
	weightStep          = decimal.RequireFromString("0.5")
	volumetricDivisor   = decimal.NewFromInt(6000)
)

// Rates is the rate card for one service type. Amounts are whole VND.
type Rates struct {
	BaseFee            int64
	StepFee            int64
	Surcharge          int64
	Discount           int64
	MinimumFare        int64
	InsuranceRate      decimal.Decimal
	InsuranceThreshold int64
	DeliveryOffset     time.Duration
}

// DefaultRates returns the built-in rate card used when no pricing rule is active.
func DefaultRates(serviceType enums.ServiceType) Rates {
	rates := Rates{
		BaseFee:            18000,
		StepFee:            5000,
		InsuranceRate:      decimal.RequireFromString("0.005"),
		InsuranceThreshold: 3000000,
		DeliveryOffset:     48 * time.Hour,
	}
	switch serviceType {
	case enums.ServiceTypeExpress:
		rates.Surcharge = 12000
		rates.DeliveryOffset = 24 * time.Hour
	case enums.ServiceTypeEconomy:
		rates.Discount = 3000
		rates.MinimumFare = 15000
		rates.DeliveryOffset = 96 * time.Hour
	}
	return rates
}

// QuoteInput carries the parcel attributes a fee depends on.
type QuoteInput struct {
	ServiceType   enums.ServiceType
	Weight        float64
	LengthCM      float64
	WidthCM       float64
	HeightCM      float64
	DeclaredValue int64
}

// Quote is the computed price and estimate for a parcel.
type Quote struct {
	ServiceType         enums.ServiceType `json:"service_type"`
	VolumetricWeight    float64           `json:"volumetric_weight"`
	ChargeableWeight    float64           `json:"chargeable_weight"`
	ShippingFee         int64             `json:"shipping_fee"`
	InsuranceFee        int64             `json:"insurance_fee"`
	TotalFee            int64             `json:"total_fee"`
	EstimatedPickupAt   time.Time         `json:"estimated_pickup_at"`
	EstimatedDeliveryAt time.Time         `json:"estimated_delivery_at"`
}

// Validate rejects negative measurements and unknown service types.
func (in QuoteInput) Validate() error {
	if !in.ServiceType.IsValid() {
		return fmt.Errorf("invalid service type %q", in.ServiceType)
	}
	if in.Weight < 0 || in.LengthCM < 0 || in.WidthCM < 0 || in.HeightCM < 0 {
		return fmt.Errorf("weight and dimensions must not be negative")
	}
	if in.DeclaredValue < 0 {
		return fmt.Errorf("declared value must not be negative")
	}
	return nil
}

// Calculate prices a parcel. It has no side effects.
func Calculate(in QuoteInput, rates Rates, now time.Time) (Quote, error) {
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}

	volumetric := VolumetricWeight(in.LengthCM, in.WidthCM, in.HeightCM)
	chargeable := ChargeableWeight(in.Weight, in.LengthCM, in.WidthCM, in.HeightCM)
	shipping := ShippingFee(chargeable, rates)
	insurance := InsuranceFee(in.DeclaredValue, rates)

	return Quote{
		ServiceType:         in.ServiceType,
		VolumetricWeight:    volumetric.Round(4).InexactFloat64(),
		ChargeableWeight:    chargeable.InexactFloat64(),
		ShippingFee:         shipping,
		InsuranceFee:        insurance,
		TotalFee:            shipping + insurance,
		EstimatedPickupAt:   now.Add(PickupOffset),
		EstimatedDeliveryAt: now.Add(rates.DeliveryOffset),
	}, nil
}

// VolumetricWeight is L×W×H/6000 in kilograms.
func VolumetricWeight(lengthCM, widthCM, heightCM float64) decimal.Decimal {
	return decimal.NewFromFloat(lengthCM).
		Mul(decimal.NewFromFloat(widthCM)).
		Mul(decimal.NewFromFloat(heightCM)).
		Div(volumetricDivisor)
}

// ChargeableWeight is the largest of declared weight, volumetric weight and 0.5 kg.
func ChargeableWeight(weight, lengthCM, widthCM, heightCM float64) decimal.Decimal {
	return decimal.Max(
		decimal.NewFromFloat(weight),
		VolumetricWeight(lengthCM, widthCM, heightCM),
		minChargeableWeight,
	)
}

// ShippingFee charges the base fee for the first 0.5 kg and StepFee for each further
// started 0.5 kg, then applies the service adjustment.
func ShippingFee(chargeable decimal.Decimal, rates Rates) int64 {
	steps := chargeable.Div(weightStep).Ceil().Sub(decimal.NewFromInt(1))
	if steps.IsNegative() {
		steps = decimal.Zero
	}

	fee := decimal.NewFromInt(rates.BaseFee).
		Add(steps.Mul(decimal.NewFromInt(rates.StepFee))).
		Add(decimal.NewFromInt(rates.Surcharge)).
		Sub(decimal.NewFromInt(rates.Discount))

	if floor := decimal.NewFromInt(rates.MinimumFare); fee.LessThan(floor) {
		fee = floor
	}
	return fee.Round(0).IntPart()
}

// InsuranceFee is declaredValue × rate once the value reaches the threshold.
func InsuranceFee(declaredValue int64, rates Rates) int64 {
	if declaredValue < rates.InsuranceThreshold || declaredValue <= 0 {
		return 0
	}
	return decimal.NewFromInt(declaredValue).Mul(rates.InsuranceRate).Round(0).IntPart()
}
