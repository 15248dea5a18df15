package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	concrete := svc.(*service)
	concrete.now = func() time.Time { return fixedNow }
	return concrete
}

func TestService_QuoteFallsBackToDefaults(t *testing.T) {
	svc := newTestService(t)

	quote, err := svc.Quote(context.Background(), QuoteInput{ServiceType: enums.ServiceTypeStandard, Weight: 0.2})
	require.NoError(t, err)
	assert.Equal(t, int64(18000), quote.ShippingFee)
	assert.Equal(t, fixedNow.Add(48*time.Hour), quote.EstimatedDeliveryAt)
}

func TestService_UpsertRuleOverridesRates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()

	rule, err := svc.UpsertRule(ctx, admin, UpsertRuleInput{
		ServiceType:         enums.ServiceTypeStandard,
		BaseFee:             20000,
		StepFee:             4000,
		InsuranceRate:       "0.01",
		InsuranceThreshold:  1000000,
		DeliveryOffsetHours: 36,
		Active:              true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), rule.BaseFee)

	quote, err := svc.Quote(ctx, QuoteInput{ServiceType: enums.ServiceTypeStandard, Weight: 1, DeclaredValue: 2000000})
	require.NoError(t, err)
	assert.Equal(t, int64(24000), quote.ShippingFee)
	assert.Equal(t, int64(20000), quote.InsuranceFee)
	assert.Equal(t, fixedNow.Add(36*time.Hour), quote.EstimatedDeliveryAt)

	_, err = svc.UpsertRule(ctx, admin, UpsertRuleInput{
		ServiceType:         enums.ServiceTypeStandard,
		BaseFee:             21000,
		StepFee:             4000,
		InsuranceRate:       "0.01",
		InsuranceThreshold:  1000000,
		DeliveryOffsetHours: 36,
		Active:              true,
	})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, int64(21000), rules[0].BaseFee)
}

func TestService_InactiveRuleIsIgnored(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertRule(ctx, uuid.New(), UpsertRuleInput{
		ServiceType:         enums.ServiceTypeExpress,
		BaseFee:             99000,
		StepFee:             1000,
		InsuranceRate:       "0.005",
		InsuranceThreshold:  3000000,
		DeliveryOffsetHours: 24,
		Active:              false,
	})
	require.NoError(t, err)

	rates, err := svc.RatesFor(ctx, enums.ServiceTypeExpress)
	require.NoError(t, err)
	assert.Equal(t, DefaultRates(enums.ServiceTypeExpress), rates)
}

func TestService_UpsertRuleValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UpsertRule(context.Background(), uuid.New(), UpsertRuleInput{
		ServiceType:         enums.ServiceTypeStandard,
		BaseFee:             18000,
		InsuranceRate:       "1.5",
		DeliveryOffsetHours: 48,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Quote(context.Background(), QuoteInput{ServiceType: "teleport"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
