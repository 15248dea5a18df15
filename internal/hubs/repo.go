package hubs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
)

// Repository persists hubs and the zones they belong to.
type Repository interface {
	CreateZone(ctx context.Context, zone *models.Zone) error
	FindZone(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	ListZones(ctx context.Context) ([]models.Zone, error)
	UpdateZone(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateHub(ctx context.Context, hub *models.Hub) error
	FindHub(ctx context.Context, id uuid.UUID) (*models.Hub, error)
	ListHubs(ctx context.Context, zoneID *uuid.UUID) ([]models.Hub, error)
	UpdateHub(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the hubs repository to a database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateZone(ctx context.Context, zone *models.Zone) error {
	if zone == nil {
		return errors.New("zone required")
	}
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *repository) FindZone(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	var zone models.Zone
	if err := r.db.WithContext(ctx).First(&zone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) ListZones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	err := r.db.WithContext(ctx).Order("code ASC").Find(&zones).Error
	return zones, err
}

func (r *repository) UpdateZone(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, &models.Zone{}, id, updates)
}

func (r *repository) CreateHub(ctx context.Context, hub *models.Hub) error {
	if hub == nil {
		return errors.New("hub required")
	}
	if hub.ID == uuid.Nil {
		hub.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(hub).Error
}

func (r *repository) FindHub(ctx context.Context, id uuid.UUID) (*models.Hub, error) {
	var hub models.Hub
	if err := r.db.WithContext(ctx).First(&hub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &hub, nil
}

func (r *repository) ListHubs(ctx context.Context, zoneID *uuid.UUID) ([]models.Hub, error) {
	query := r.db.WithContext(ctx).Order("code ASC")
	if zoneID != nil {
		query = query.Where("zone_id = ?", *zoneID)
	}
	var hubs []models.Hub
	err := query.Find(&hubs).Error
	return hubs, err
}

func (r *repository) UpdateHub(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, &models.Hub{}, id, updates)
}

func (r *repository) update(ctx context.Context, model any, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
