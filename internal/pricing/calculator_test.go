package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func TestCalculate_StandardMinimumWeight(t *testing.T) {
	quote, err := Calculate(QuoteInput{
		ServiceType: enums.ServiceTypeStandard,
		Weight:      0.2,
		LengthCM:    10,
		WidthCM:     10,
		HeightCM:    10,
	}, DefaultRates(enums.ServiceTypeStandard), fixedNow)
	require.NoError(t, err)

	assert.InDelta(t, 0.1667, quote.VolumetricWeight, 0.0001)
	assert.Equal(t, 0.5, quote.ChargeableWeight)
	assert.Equal(t, int64(18000), quote.ShippingFee)
	assert.Equal(t, int64(0), quote.InsuranceFee)
	assert.Equal(t, int64(18000), quote.TotalFee)
	assert.Equal(t, fixedNow.Add(4*time.Hour), quote.EstimatedPickupAt)
	assert.Equal(t, fixedNow.Add(48*time.Hour), quote.EstimatedDeliveryAt)
}

func TestCalculate_ExpressWithInsurance(t *testing.T) {
	quote, err := Calculate(QuoteInput{
		ServiceType:   enums.ServiceTypeExpress,
		Weight:        0.5,
		DeclaredValue: 5000000,
	}, DefaultRates(enums.ServiceTypeExpress), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, int64(25000), quote.InsuranceFee)
	assert.Equal(t, int64(18000+12000), quote.ShippingFee)
	assert.Equal(t, int64(55000), quote.TotalFee)
	assert.Equal(t, fixedNow.Add(24*time.Hour), quote.EstimatedDeliveryAt)
	assert.Equal(t, fixedNow.Add(4*time.Hour), quote.EstimatedPickupAt)
}

func TestCalculate_EconomyFlooredAtMinimumFare(t *testing.T) {
	rates := DefaultRates(enums.ServiceTypeEconomy)
	quote, err := Calculate(QuoteInput{ServiceType: enums.ServiceTypeEconomy, Weight: 0.3}, rates, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), quote.ShippingFee)
	assert.Equal(t, fixedNow.Add(96*time.Hour), quote.EstimatedDeliveryAt)

	rates.Discount = 10000
	quote, err = Calculate(QuoteInput{ServiceType: enums.ServiceTypeEconomy, Weight: 0.3}, rates, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, rates.MinimumFare, quote.ShippingFee)

	quote, err = Calculate(QuoteInput{ServiceType: enums.ServiceTypeEconomy, Weight: 3}, DefaultRates(enums.ServiceTypeEconomy), fixedNow)
	require.NoError(t, err)
	// 3kg = 6 half-kilo steps: 18000 + 5*5000 - 3000
	assert.Equal(t, int64(40000), quote.ShippingFee)
}

func TestCalculate_StepBoundaries(t *testing.T) {
	rates := DefaultRates(enums.ServiceTypeStandard)
	cases := []struct {
		weight float64
		fee    int64
	}{
		{0.5, 18000},
		{0.51, 23000},
		{1.0, 23000},
		{1.01, 28000},
		{2.5, 38000},
	}
	for _, tc := range cases {
		quote, err := Calculate(QuoteInput{ServiceType: enums.ServiceTypeStandard, Weight: tc.weight}, rates, fixedNow)
		require.NoError(t, err)
		assert.Equalf(t, tc.fee, quote.ShippingFee, "weight %.2f", tc.weight)
	}
}

func TestCalculate_VolumetricDominates(t *testing.T) {
	quote, err := Calculate(QuoteInput{
		ServiceType: enums.ServiceTypeStandard,
		Weight:      1,
		LengthCM:    50,
		WidthCM:     40,
		HeightCM:    30,
	}, DefaultRates(enums.ServiceTypeStandard), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 10.0, quote.ChargeableWeight)
	// 10kg = 20 steps: 18000 + 19*5000
	assert.Equal(t, int64(113000), quote.ShippingFee)
}

func TestChargeableWeightLowerBounds(t *testing.T) {
	weights := []float64{0, 0.1, 0.49, 0.5, 0.75, 3.2, 12}
	dims := [][3]float64{{0, 0, 0}, {10, 10, 10}, {30, 20, 10}, {60, 60, 60}}
	for _, w := range weights {
		for _, d := range dims {
			got := ChargeableWeight(w, d[0], d[1], d[2])
			if got.LessThan(decimal.RequireFromString("0.5")) {
				t.Fatalf("chargeable weight %s below minimum for w=%v dims=%v", got, w, d)
			}
			if got.LessThan(decimal.NewFromFloat(w)) {
				t.Fatalf("chargeable weight %s below declared %v", got, w)
			}
		}
	}
}

func TestShippingFeeMonotonic(t *testing.T) {
	for _, service := range enums.ServiceTypes() {
		rates := DefaultRates(service)
		previous := int64(-1)
		for grams := 0; grams <= 30000; grams += 37 {
			weight := decimal.New(int64(grams), -3)
			chargeable := decimal.Max(weight, decimal.RequireFromString("0.5"))
			fee := ShippingFee(chargeable, rates)
			if fee < previous {
				t.Fatalf("%s fee decreased at %s kg: %d < %d", service, chargeable, fee, previous)
			}
			previous = fee
		}
	}
}

func TestInsuranceFeeThreshold(t *testing.T) {
	rates := DefaultRates(enums.ServiceTypeStandard)
	assert.Equal(t, int64(0), InsuranceFee(0, rates))
	assert.Equal(t, int64(0), InsuranceFee(2999999, rates))
	assert.Equal(t, int64(15000), InsuranceFee(3000000, rates))
	assert.Equal(t, int64(15001), InsuranceFee(3000100, rates))
	assert.Equal(t, int64(25000), InsuranceFee(5000000, rates))
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	rates := DefaultRates(enums.ServiceTypeStandard)
	_, err := Calculate(QuoteInput{ServiceType: "overnight", Weight: 1}, rates, fixedNow)
	assert.Error(t, err)
	_, err = Calculate(QuoteInput{ServiceType: enums.ServiceTypeStandard, Weight: -1}, rates, fixedNow)
	assert.Error(t, err)
	_, err = Calculate(QuoteInput{ServiceType: enums.ServiceTypeStandard, DeclaredValue: -5}, rates, fixedNow)
	assert.Error(t, err)
}
