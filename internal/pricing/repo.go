package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// Repository persists admin-managed pricing rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, serviceType enums.ServiceType) (*models.PricingRule, error)
	List(ctx context.Context) ([]models.PricingRule, error)
	Upsert(ctx context.Context, rule *models.PricingRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the pricing repository to a database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context, serviceType enums.ServiceType) (*models.PricingRule, error) {
	var rule models.PricingRule
	err := r.db.WithContext(ctx).
		Where("service_type = ? AND active = ?", serviceType, true).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context) ([]models.PricingRule, error) {
	var rules []models.PricingRule
	if err := r.db.WithContext(ctx).Order("service_type ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) Upsert(ctx context.Context, rule *models.PricingRule) error {
	if rule == nil {
		return errors.New("pricing rule required")
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_fee", "step_fee", "surcharge", "discount", "minimum_fare",
			"insurance_rate", "insurance_threshold", "delivery_offset_hours",
			"active", "updated_by", "updated_at",
		}),
	}).Create(rule).Error
}
