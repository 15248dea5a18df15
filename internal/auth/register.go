package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/users"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/security"
)

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}

	role := req.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	status := enums.UserStatusApproved
	switch role {
	case enums.RoleCustomer:
		if req.VehicleType != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_type only applies to shippers")
		}
	case enums.RoleShipper:
		if req.VehicleType == nil || !req.VehicleType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_type is required for shippers")
		}
		status = enums.UserStatusPending
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot be self-registered")
	}

	if err := security.CheckPasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         role,
		Status:       status,
		VehicleType:  req.VehicleType,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": role.String()})
	s.logg.Info(ctx, "user registered")
	return users.FromModel(user), nil
}
