package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

// Service resolves rate cards and prices parcels.
type Service interface {
	RatesFor(ctx context.Context, serviceType enums.ServiceType) (Rates, error)
	Quote(ctx context.Context, input QuoteInput) (Quote, error)
	ListRules(ctx context.Context) ([]RuleDTO, error)
	UpsertRule(ctx context.Context, actorID uuid.UUID, input UpsertRuleInput) (*RuleDTO, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the pricing repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// UpsertRuleInput is the admin payload for replacing a service tier's rate card.
type UpsertRuleInput struct {
	ServiceType         enums.ServiceType
	BaseFee             int64
	StepFee             int64
	Surcharge           int64
	Discount            int64
	MinimumFare         int64
	InsuranceRate       string
	InsuranceThreshold  int64
	DeliveryOffsetHours int
	Active              bool
}

// RuleDTO is the API representation of a pricing rule.
type RuleDTO struct {
	ID                  uuid.UUID         `json:"id"`
	ServiceType         enums.ServiceType `json:"service_type"`
	BaseFee             int64             `json:"base_fee"`
	StepFee             int64             `json:"step_fee"`
	Surcharge           int64             `json:"surcharge"`
	Discount            int64             `json:"discount"`
	MinimumFare         int64             `json:"minimum_fare"`
	InsuranceRate       string            `json:"insurance_rate"`
	InsuranceThreshold  int64             `json:"insurance_threshold"`
	DeliveryOffsetHours int               `json:"delivery_offset_hours"`
	Active              bool              `json:"active"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (s *service) RatesFor(ctx context.Context, serviceType enums.ServiceType) (Rates, error) {
	if !serviceType.IsValid() {
		return Rates{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	rule, err := s.repo.FindActive(ctx, serviceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultRates(serviceType), nil
		}
		return Rates{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing rule")
	}
	return ratesFromRule(rule), nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (Quote, error) {
	if err := input.Validate(); err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rates, err := s.RatesFor(ctx, input.ServiceType)
	if err != nil {
		return Quote{}, err
	}
	quote, err := Calculate(input, rates, s.now())
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return quote, nil
}

func (s *service) ListRules(ctx context.Context) ([]RuleDTO, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pricing rules")
	}
	out := make([]RuleDTO, 0, len(rules))
	for i := range rules {
		out = append(out, toRuleDTO(&rules[i]))
	}
	return out, nil
}

func (s *service) UpsertRule(ctx context.Context, actorID uuid.UUID, input UpsertRuleInput) (*RuleDTO, error) {
	if !input.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	rate, err := decimal.NewFromString(input.InsuranceRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "insurance_rate must be a decimal between 0 and 1")
	}
	if input.BaseFee <= 0 || input.StepFee < 0 || input.Surcharge < 0 || input.Discount < 0 || input.MinimumFare < 0 || input.InsuranceThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fees must be non-negative and base_fee positive")
	}
	if input.DeliveryOffsetHours <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_offset_hours must be positive")
	}

	rule := &models.PricingRule{
		ServiceType:         input.ServiceType,
		BaseFee:             input.BaseFee,
		StepFee:             input.StepFee,
		Surcharge:           input.Surcharge,
		Discount:            input.Discount,
		MinimumFare:         input.MinimumFare,
		InsuranceRate:       rate,
		InsuranceThreshold:  input.InsuranceThreshold,
		DeliveryOffsetHours: input.DeliveryOffsetHours,
		Active:              input.Active,
		UpdatedAt:           s.now(),
	}
	if actorID != uuid.Nil {
		rule.UpdatedBy = &actorID
	}
	if err := s.repo.Upsert(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save pricing rule")
	}

	saved, err := s.repo.FindActive(ctx, input.ServiceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dto := toRuleDTO(rule)
			return &dto, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload pricing rule")
	}
	dto := toRuleDTO(saved)
	return &dto, nil
}

func ratesFromRule(rule *models.PricingRule) Rates {
	return Rates{
		BaseFee:            rule.BaseFee,
		StepFee:            rule.StepFee,
		Surcharge:          rule.Surcharge,
		Discount:           rule.Discount,
		MinimumFare:        rule.MinimumFare,
		InsuranceRate:      rule.InsuranceRate,
		InsuranceThreshold: rule.InsuranceThreshold,
		DeliveryOffset:     time.Duration(rule.DeliveryOffsetHours) * time.Hour,
	}
}

func toRuleDTO(rule *models.PricingRule) RuleDTO {
	return RuleDTO{
		ID:                  rule.ID,
		ServiceType:         rule.ServiceType,
		BaseFee:             rule.BaseFee,
		StepFee:             rule.StepFee,
		Surcharge:           rule.Surcharge,
		Discount:            rule.Discount,
		MinimumFare:         rule.MinimumFare,
		InsuranceRate:       rule.InsuranceRate.String(),
		InsuranceThreshold:  rule.InsuranceThreshold,
		DeliveryOffsetHours: rule.DeliveryOffsetHours,
		Active:              rule.Active,
		UpdatedAt:           rule.UpdatedAt,
	}
}
