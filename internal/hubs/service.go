package hubs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

// Service manages delivery zones and warehouse hubs.
type Service interface {
	CreateZone(ctx context.Context, input ZoneInput) (*ZoneDTO, error)
	ListZones(ctx context.Context) ([]ZoneDTO, error)
	UpdateZone(ctx context.Context, id uuid.UUID, input ZonePatch) (*ZoneDTO, error)
	CreateHub(ctx context.Context, input HubInput) (*HubDTO, error)
	ListHubs(ctx context.Context, zoneID *uuid.UUID) ([]HubDTO, error)
	UpdateHub(ctx context.Context, id uuid.UUID, input HubPatch) (*HubDTO, error)
	FindActiveHub(ctx context.Context, id uuid.UUID) (*models.Hub, error)
}

type ZoneInput struct {
	Code      string   `json:"code" validate:"required,max=32"`
	Name      string   `json:"name" validate:"required"`
	Provinces []string `json:"provinces" validate:"required,min=1,dive,required"`
}

type ZonePatch struct {
	Name      *string  `json:"name,omitempty"`
	Provinces []string `json:"provinces,omitempty" validate:"omitempty,dive,required"`
	Active    *bool    `json:"active,omitempty"`
}

type HubInput struct {
	Code    string     `json:"code" validate:"required,max=32"`
	Name    string     `json:"name" validate:"required"`
	Address string     `json:"address" validate:"required"`
	ZoneID  *uuid.UUID `json:"zone_id,omitempty"`
}

type HubPatch struct {
	Name    *string    `json:"name,omitempty"`
	Address *string    `json:"address,omitempty"`
	ZoneID  *uuid.UUID `json:"zone_id,omitempty"`
	Active  *bool      `json:"active,omitempty"`
}

type ZoneDTO struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Provinces []string  `json:"provinces"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HubDTO struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	ZoneID    *uuid.UUID `json:"zone_id,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the hubs service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("hubs repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) CreateZone(ctx context.Context, input ZoneInput) (*ZoneDTO, error) {
	code := normalizeCode(input.Code)
	name := strings.TrimSpace(input.Name)
	provinces := cleanProvinces(input.Provinces)
	if code == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and name are required")
	}
	if len(provinces) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one province is required")
	}

	zone := &models.Zone{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		Provinces: pq.StringArray(provinces),
		Active:    true,
	}
	if err := s.repo.CreateZone(ctx, zone); err != nil {
		return nil, mapWriteErr(err, "zones_code_key", "zone code already exists", "create zone")
	}
	dto := toZoneDTO(zone)
	return &dto, nil
}

func (s *service) ListZones(ctx context.Context) ([]ZoneDTO, error) {
	rows, err := s.repo.ListZones(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list zones")
	}
	out := make([]ZoneDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toZoneDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateZone(ctx context.Context, id uuid.UUID, input ZonePatch) (*ZoneDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Provinces != nil {
		provinces := cleanProvinces(input.Provinces)
		if len(provinces) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one province is required")
		}
		updates["provinces"] = pq.StringArray(provinces)
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	updates["updated_at"] = s.now()

	if err := s.repo.UpdateZone(ctx, id, updates); err != nil {
		return nil, mapLoadErr(err, "zone not found", "update zone")
	}
	zone, err := s.repo.FindZone(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err, "zone not found", "load zone")
	}
	dto := toZoneDTO(zone)
	return &dto, nil
}

func (s *service) CreateHub(ctx context.Context, input HubInput) (*HubDTO, error) {
	code := normalizeCode(input.Code)
	name := strings.TrimSpace(input.Name)
	address := strings.TrimSpace(input.Address)
	if code == "" || name == "" || address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code, name and address are required")
	}
	if err := s.checkZone(ctx, input.ZoneID); err != nil {
		return nil, err
	}

	hub := &models.Hub{
		ID:      uuid.New(),
		Code:    code,
		Name:    name,
		Address: address,
		ZoneID:  input.ZoneID,
		Active:  true,
	}
	if err := s.repo.CreateHub(ctx, hub); err != nil {
		return nil, mapWriteErr(err, "hubs_code_key", "hub code already exists", "create hub")
	}
	dto := toHubDTO(hub)
	return &dto, nil
}

func (s *service) ListHubs(ctx context.Context, zoneID *uuid.UUID) ([]HubDTO, error) {
	rows, err := s.repo.ListHubs(ctx, zoneID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hubs")
	}
	out := make([]HubDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toHubDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateHub(ctx context.Context, id uuid.UUID, input HubPatch) (*HubDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address cannot be empty")
		}
		updates["address"] = address
	}
	if input.ZoneID != nil {
		if err := s.checkZone(ctx, input.ZoneID); err != nil {
			return nil, err
		}
		updates["zone_id"] = *input.ZoneID
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	updates["updated_at"] = s.now()

	if err := s.repo.UpdateHub(ctx, id, updates); err != nil {
		return nil, mapLoadErr(err, "hub not found", "update hub")
	}
	hub, err := s.repo.FindHub(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err, "hub not found", "load hub")
	}
	dto := toHubDTO(hub)
	return &dto, nil
}

// FindActiveHub resolves the warehouse referenced by an intake. Unknown or inactive hubs are
// validation failures on the intake payload.
func (s *service) FindActiveHub(ctx context.Context, id uuid.UUID) (*models.Hub, error) {
	hub, err := s.repo.FindHub(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hub")
	}
	if !hub.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse is inactive")
	}
	return hub, nil
}

func (s *service) checkZone(ctx context.Context, zoneID *uuid.UUID) error {
	if zoneID == nil {
		return nil
	}
	if _, err := s.repo.FindZone(ctx, *zoneID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "zone not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load zone")
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func cleanProvinces(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(p)]; dup {
			continue
		}
		seen[strings.ToLower(p)] = struct{}{}
		out = append(out, p)
	}
	return out
}

func mapWriteErr(err error, constraint, conflictMsg, op string) error {
	if db.IsUniqueViolation(err, constraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, conflictMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func mapLoadErr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func toZoneDTO(z *models.Zone) ZoneDTO {
	provinces := []string(z.Provinces)
	if provinces == nil {
		provinces = []string{}
	}
	return ZoneDTO{
		ID:        z.ID,
		Code:      z.Code,
		Name:      z.Name,
		Provinces: provinces,
		Active:    z.Active,
		CreatedAt: z.CreatedAt,
		UpdatedAt: z.UpdatedAt,
	}
}

func toHubDTO(h *models.Hub) HubDTO {
	return HubDTO{
		ID:        h.ID,
		Code:      h.Code,
		Name:      h.Name,
		Address:   h.Address,
		ZoneID:    h.ZoneID,
		Active:    h.Active,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}
