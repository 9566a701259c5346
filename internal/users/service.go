package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/security"
	"gorm.io/gorm"
)

// Service covers the user profile operations and their admin counterparts.
type Service interface {
	Get(ctx context.Context, userID int64) (*UserDTO, error)
	List(ctx context.Context) ([]UserDTO, error)
	UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID int64, password string) error
	ChangeRole(ctx context.Context, userID int64, role enums.UserRole) (*UserDTO, error)
}

// ServiceParams bundles the users service dependencies.
type ServiceParams struct {
	Repo           *Repository
	DB             *db.Client
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo        *Repository
	dbClient    *db.Client
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		dbClient:    params.DB,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*UserDTO, error) {
	fields := map[string]any{}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		fields["username"] = username
	}
	if input.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*input.FullName)
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		fields["email"] = email
	}

	var updated *UserDTO
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, userID); err != nil {
			return mapLookupError(err)
		}

		if username, ok := fields["username"].(string); ok {
			taken, err := repo.UsernameTaken(ctx, username, userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check username")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeConflict, "username already in use").
					WithDetails(map[string]any{"username": username})
			}
		}
		if email, ok := fields["email"].(string); ok {
			taken, err := repo.EmailTaken(ctx, email, userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check email")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already in use").
					WithDetails(map[string]any{"email": email})
			}
		}

		if err := repo.UpdateFields(ctx, userID, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username or email already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update user")
		}

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: reload user")
		}
		updated = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, userID)
	s.logg.Info(logCtx, "user.profile_updated")
	return updated, nil
}

func (s *service) ChangePassword(ctx context.Context, userID int64, password string) error {
	if strings.TrimSpace(password) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return mapLookupError(err)
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update password")
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID), "user.password_changed")
	return nil
}

func (s *service) ChangeRole(ctx context.Context, userID int64, role enums.UserRole) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": string(role)})
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return nil, mapLookupError(err)
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update role")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: reload user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": userID, "role": string(role)})
	s.logg.Info(logCtx, "user.role_changed")
	return FromModel(user), nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: load user")
}
