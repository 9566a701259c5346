package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/rvstore-backend/internal/users"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService handles self-service signup.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner        txRunner
	PasswordConfig  config.PasswordConfig
	Logger          *logger.Logger
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
}

type registerService struct {
	tx          txRunner
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	repoFactory func(tx *gorm.DB) registerUserRepository
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	factory := params.UserRepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) registerUserRepository { return users.NewRepository(tx) }
	}
	return &registerService{
		tx:          params.TxRunner,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		repoFactory: factory,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := users.NormalizeEmail(req.Email)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.repoFactory(tx)

		taken, err := userRepo.UsernameTaken(ctx, username, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already in use").
				WithDetails(map[string]any{"username": username})
		}
		taken, err = userRepo.EmailTaken(ctx, email, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already in use").
				WithDetails(map[string]any{"email": email})
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			FullName:     req.FullName,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         enums.UserRoleUser1,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username or email already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, created.UserID), "auth.registered")
	return created, nil
}
