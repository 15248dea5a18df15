package complaints

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

// Repository persists complaints.
type Repository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	List(ctx context.Context, filter ListFilter) ([]models.Complaint, *pagination.Cursor, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// ListFilter scopes a complaint listing. Nil pointers mean "any".
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *enums.ComplaintStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the complaints repository to a database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint == nil {
		return errors.New("complaint required")
	}
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Complaint, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var rows []models.Complaint
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(filter.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, filter.Limit, func(c models.Complaint) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return page, next, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
