package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"gorm.io/gorm"
)

// Category is the wire form of a product category.
type Category struct {
	CategoryID  int64  `json:"categoryId"`
	Description string `json:"description"`
}

// DeleteResult reports the removed category and the barcodes moved to the default one.
type DeleteResult struct {
	DeletedCategory Category `json:"deletedCategory"`
	MovedProducts   []string `json:"movedProducts"`
}

// DefaultCategorySource resolves the category that orphaned products move to.
type DefaultCategorySource interface {
	DefaultCategoryIDInTx(ctx context.Context, tx *gorm.DB) (int64, error)
}

// Service manages product categories.
type Service interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, description string) (*Category, error)
	Update(ctx context.Context, id int64, description string) (*Category, error)
	Delete(ctx context.Context, actorID, id int64) (*DeleteResult, error)
}

// ServiceParams wires the categories service.
type ServiceParams struct {
	Repo     *Repository
	DB       *db.Client
	History  history.Repository
	Defaults DefaultCategorySource
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	history  history.Repository
	defaults DefaultCategorySource
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a categories service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if params.Defaults == nil {
		return nil, fmt.Errorf("default category source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DB,
		history:  params.History,
		defaults: params.Defaults,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context) ([]Category, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list categories")
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Category, error) {
	row, err := s.repo.FindLive(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	category := toCategory(*row)
	return &category, nil
}

func (s *service) Create(ctx context.Context, description string) (*Category, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	row := &models.Category{Description: description}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert category")
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", row.ID), "category.created")
	category := toCategory(*row)
	return &category, nil
}

func (s *service) Update(ctx context.Context, id int64, description string) (*Category, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	var updated *models.Category
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row, err := txRepo.LockLive(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		if err := txRepo.UpdateDescription(ctx, id, description); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update category")
		}
		row.Description = description
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	category := toCategory(*updated)
	return &category, nil
}

// Delete moves the category's products to the default category and marks it deleted.
// Each moved product gets a category_changed event.
func (s *service) Delete(ctx context.Context, actorID, id int64) (*DeleteResult, error) {
	var result *DeleteResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		defaultID, err := s.defaults.DefaultCategoryIDInTx(ctx, tx)
		if err != nil {
			return err
		}
		if id == defaultID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "the default category cannot be deleted")
		}

		row, err := txRepo.LockLive(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		members, err := txRepo.ListMembers(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list category products")
		}
		if err := txRepo.MoveProducts(ctx, id, defaultID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: move products")
		}

		now := s.now()
		moved := make([]string, 0, len(members))
		events := make([]models.ItemHistory, 0, len(members))
		for _, member := range members {
			moved = append(moved, member.Barcode)
			events = append(events, models.ItemHistory{
				Time:       now,
				Action:     enums.HistoryActionCategoryChanged,
				UserID:     actorID,
				ProductID:  member.ProductID,
				StockAfter: member.Stock,
				PriceID:    member.PriceID,
			})
		}
		if err := s.history.WithTx(tx).CreateItemEvents(ctx, events); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert category events")
		}
		if err := txRepo.MarkDeleted(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: delete category")
		}

		result = &DeleteResult{DeletedCategory: toCategory(*row), MovedProducts: moved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, actorID), map[string]any{
		"category_id":    id,
		"moved_products": len(result.MovedProducts),
	})
	s.logg.Info(logCtx, "category.deleted")
	return result, nil
}

func toCategory(row models.Category) Category {
	return Category{CategoryID: row.ID, Description: row.Description}
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find category")
}
