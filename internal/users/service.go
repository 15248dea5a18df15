package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
	"github.com/angelmondragon/parcelhub-backend/pkg/security"
)

const tempPasswordLength = 12

// Service is the admin-facing account management surface.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, params ListParams) (ListResult, error)
	Create(ctx context.Context, input CreateInput) (*CreatedUser, error)
	UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, status enums.UserStatus) (*UserDTO, error)
	FindApprovedShipper(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ListParams filters the admin listing.
type ListParams struct {
	Role       *enums.Role
	Status     *enums.UserStatus
	Pagination pagination.Params
}

// ListResult is one page of users.
type ListResult = pagination.Page[UserDTO]

// CreateInput describes an account created by an admin.
type CreateInput struct {
	Email       string             `json:"email" validate:"required,email"`
	FullName    string             `json:"full_name" validate:"required"`
	Phone       *string            `json:"phone,omitempty"`
	Role        enums.Role         `json:"role" validate:"required"`
	Password    string             `json:"password,omitempty"`
	VehicleType *enums.VehicleType `json:"vehicle_type,omitempty"`
}

// CreatedUser carries the generated password when the admin did not supply one.
type CreatedUser struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password,omitempty"`
}

type userRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus, at time.Time) error
	List(ctx context.Context, filter ListFilter) ([]models.User, *pagination.Cursor, error)
}

type service struct {
	repo        userRepository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the account management service.
func NewService(repo userRepository, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		passwordCfg: passwordCfg,
		logg:        logg,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Role != nil && !params.Role.IsValid() {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, ListFilter{
		Role:   params.Role,
		Status: params.Status,
		Limit:  params.Pagination.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, next), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreatedUser, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if input.Role == enums.RoleShipper {
		if input.VehicleType == nil || !input.VehicleType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_type is required for shippers")
		}
	} else if input.VehicleType != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_type only applies to shippers")
	}

	password := input.Password
	temp := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
		temp = generated
	} else if err := security.CheckPasswordStrength(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         input.Role,
		Status:       enums.UserStatusApproved,
		VehicleType:  input.VehicleType,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": user.Role.String()})
	s.logg.Info(ctx, "account created by admin")

	return &CreatedUser{User: FromModel(user), TempPassword: temp}, nil
}

// statusMoves lists which account statuses an admin may move a shipper between.
var statusMoves = map[enums.UserStatus][]enums.UserStatus{
	enums.UserStatusPending:   {enums.UserStatusApproved, enums.UserStatusRejected},
	enums.UserStatusApproved:  {enums.UserStatusSuspended},
	enums.UserStatusSuspended: {enums.UserStatusApproved},
	enums.UserStatusRejected:  {enums.UserStatusApproved},
}

func (s *service) UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, status enums.UserStatus) (*UserDTO, error) {
	if !status.IsValid() || status == enums.UserStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved, rejected or suspended")
	}
	if actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot change own account status")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if user.Role != enums.RoleShipper && status == enums.UserStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only shippers go through approval")
	}
	if user.Status == status {
		return FromModel(user), nil
	}
	if !allowedMove(user.Status, status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move account from %s to %s", user.Status, status)).
			WithDetails(map[string]any{"from": user.Status, "to": status})
	}

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, userID, status, now); err != nil {
		return nil, mapLoadErr(err)
	}
	user.Status = status
	user.UpdatedAt = now

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  userID.String(),
		"actor_id": actorID.String(),
		"status":   status.String(),
	})
	s.logg.Info(ctx, "account status updated")
	return FromModel(user), nil
}

func (s *service) FindApprovedShipper(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipper")
	}
	if user.Role != enums.RoleShipper {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a shipper")
	}
	if user.Status != enums.UserStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper is not approved")
	}
	return user, nil
}

func allowedMove(from, to enums.UserStatus) bool {
	for _, candidate := range statusMoves[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
