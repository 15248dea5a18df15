package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// Repository persists payment transactions and the order columns they drive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	FindActivePending(ctx context.Context, orderID uuid.UUID, now time.Time) (*models.PaymentTransaction, error)
	ExpireStale(ctx context.Context, orderID uuid.UUID, now time.Time) ([]models.PaymentTransaction, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.PaymentTransaction, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payments repository to a database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockOrder loads the order row with SELECT ... FOR UPDATE.
func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindActivePending(ctx context.Context, orderID uuid.UUID, now time.Time) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND expires_at > ?", orderID, enums.TransactionStatusPending, now).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ExpireStale moves the order's overdue pending transactions to expired and returns them.
func (r *repository) ExpireStale(ctx context.Context, orderID uuid.UUID, now time.Time) ([]models.PaymentTransaction, error) {
	var stale []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND expires_at <= ?", orderID, enums.TransactionStatusPending, now).
		Find(&stale).Error
	if err != nil || len(stale) == 0 {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(stale))
	for _, txn := range stale {
		ids = append(ids, txn.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     enums.TransactionStatusExpired,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}

func (r *repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.TransactionStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn == nil {
		return errors.New("payment transaction required")
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.updates(ctx, &models.PaymentTransaction{}, id, updates)
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.updates(ctx, &models.Order{}, orderID, updates)
}

func (r *repository) updates(ctx context.Context, model any, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry == nil {
		return errors.New("history entry required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}
