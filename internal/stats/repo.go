package stats

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// Window bounds a report on orders.created_at. Zero values are open ends.
type Window struct {
	From time.Time
	To   time.Time
}

type statusCount struct {
	Status enums.OrderStatus
	Count  int64
}

type serviceRevenue struct {
	ServiceType enums.ServiceType
	Orders      int64
	Revenue     int64
}

// Repository runs the aggregate queries behind the admin dashboard.
type Repository interface {
	CountByStatus(ctx context.Context, window Window) ([]statusCount, error)
	RevenueByService(ctx context.Context, window Window) ([]serviceRevenue, error)
	CODCollected(ctx context.Context, window Window) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the stats repository to a database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) scoped(ctx context.Context, window Window) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if !window.From.IsZero() {
		query = query.Where("created_at >= ?", window.From)
	}
	if !window.To.IsZero() {
		query = query.Where("created_at < ?", window.To)
	}
	return query
}

func (r *repository) CountByStatus(ctx context.Context, window Window) ([]statusCount, error) {
	var rows []statusCount
	err := r.scoped(ctx, window).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) RevenueByService(ctx context.Context, window Window) ([]serviceRevenue, error) {
	var rows []serviceRevenue
	err := r.scoped(ctx, window).
		Select("service_type, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Group("service_type").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) CODCollected(ctx context.Context, window Window) (int64, error) {
	var total int64
	err := r.scoped(ctx, window).
		Select("COALESCE(SUM(cod_amount), 0)").
		Where("payment_method = ? AND status = ?", enums.PaymentMethodCOD, enums.OrderStatusDelivered).
		Scan(&total).Error
	return total, err
}
