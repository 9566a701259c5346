package product

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
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes product browsing, admin management and the stock mutation primitive.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]ProductDTO, error)
	Get(ctx context.Context, barcode string) (*ProductDTO, error)
	FindCurrentByBarcode(ctx context.Context, barcode string) (*ProductWithPrice, error)
	Create(ctx context.Context, actorID int64, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actorID int64, barcode string, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, barcode string) (*ProductDTO, error)
	BuyIn(ctx context.Context, actorID int64, barcode string, input BuyInInput) (*BuyInResult, error)
	ApplyStockChange(ctx context.Context, change StockChange) (*StockChangeResult, error)
	ApplyStockChangeInTx(ctx context.Context, tx *gorm.DB, change StockChange) (*StockChangeResult, error)
	AddStockInTx(ctx context.Context, tx *gorm.DB, addition StockAddition) (*StockChangeResult, error)
	ReportStockChange(ctx context.Context, productID, actorID int64, result *StockChangeResult)
}

// MarginSource supplies the margin used to derive a missing sell price.
type MarginSource interface {
	DefaultMargin(ctx context.Context) (decimal.Decimal, error)
}

// ServiceParams wires the product service.
type ServiceParams struct {
	Repo    *Repository
	DB      *db.Client
	History history.Repository
	Margins MarginSource
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
	Now     func() time.Time
}

// service implements the product service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	history  history.Repository
	margins  MarginSource
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	now      func() time.Time
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if params.Margins == nil {
		return nil, fmt.Errorf("margin source required")
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
		margins:  params.Margins,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]ProductDTO, error) {
	rows, err := s.repo.ListCurrent(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDTO())
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, barcode string) (*ProductDTO, error) {
	current, err := s.FindCurrentByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	dto := current.ToDTO()
	return &dto, nil
}

// FindCurrentByBarcode returns the live product with its open price version.
func (s *service) FindCurrentByBarcode(ctx context.Context, barcode string) (*ProductWithPrice, error) {
	return findCurrentByBarcode(ctx, s.repo, barcode)
}

func findCurrentByBarcode(ctx context.Context, repo *Repository, barcode string) (*ProductWithPrice, error) {
	if strings.TrimSpace(barcode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	current, err := repo.FindCurrentByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find product")
	}
	return current, nil
}

// Create inserts the product, its first price version and a created event.
func (s *service) Create(ctx context.Context, actorID int64, input CreateProductInput) (*ProductDTO, error) {
	input.Barcode = strings.TrimSpace(input.Barcode)
	input.Name = strings.TrimSpace(input.Name)
	if input.Barcode == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode and name are required")
	}
	if input.BuyPrice < 0 || (input.SellPrice != nil && *input.SellPrice < 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	if input.Weight < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight cannot be negative")
	}

	sellPrice, err := s.resolveSellPrice(ctx, input.BuyPrice, input.SellPrice)
	if err != nil {
		return nil, err
	}

	var created *ProductWithPrice
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		taken, err := txRepo.BarcodeTaken(ctx, input.Barcode)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check barcode")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "barcode already in use")
		}
		if err := ensureCategory(ctx, txRepo, input.CategoryID); err != nil {
			return err
		}

		product := &models.Product{
			Barcode:    input.Barcode,
			Name:       input.Name,
			CategoryID: input.CategoryID,
			Weight:     input.Weight,
		}
		if err := txRepo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "barcode already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert product")
		}

		now := s.now()
		price := &models.PriceVersion{
			ProductID: product.ID,
			BuyPrice:  input.BuyPrice,
			SellPrice: sellPrice,
			Stock:     input.Stock,
			StartTime: now,
			UserID:    actorID,
		}
		if err := txRepo.CreatePrice(ctx, price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert price version")
		}

		event := models.ItemHistory{
			Time:       now,
			Action:     enums.HistoryActionCreated,
			UserID:     actorID,
			ProductID:  product.ID,
			StockAfter: input.Stock,
			PriceID:    price.ID,
		}
		if err := s.history.WithTx(tx).CreateItemEvents(ctx, []models.ItemHistory{event}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert created event")
		}

		created, err = txRepo.FindCurrentByID(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBarcode(s.logg.WithUserID(ctx, actorID), created.Barcode)
	s.logg.Info(logCtx, "product.created")
	dto := created.ToDTO()
	return &dto, nil
}

// Update applies descriptive changes as history events and routes price and stock
// changes through the stock mutation primitive, all in one transaction.
func (s *service) Update(ctx context.Context, actorID int64, barcode string, input UpdateProductInput) (*ProductDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Weight != nil && *input.Weight < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight cannot be negative")
	}

	var (
		updated     *ProductWithPrice
		stockResult *StockChangeResult
	)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.LockProduct(ctx, barcode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock product")
		}
		current, err := s.lockOpenPrice(ctx, tx, product.ID)
		if err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{}
		var events []models.ItemHistory
		record := func(action enums.HistoryAction) {
			events = append(events, models.ItemHistory{
				Time:       now,
				Action:     action,
				UserID:     actorID,
				ProductID:  product.ID,
				StockAfter: current.Stock,
				PriceID:    current.ID,
			})
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != product.Name {
				updates["name"] = name
				record(enums.HistoryActionNameChanged)
			}
		}
		if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
			if err := ensureCategory(ctx, txRepo, *input.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *input.CategoryID
			record(enums.HistoryActionCategoryChanged)
		}
		if input.Weight != nil && *input.Weight != product.Weight {
			updates["weight"] = *input.Weight
			record(enums.HistoryActionWeightChanged)
		}

		if err := txRepo.UpdateProductFields(ctx, product.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update product")
		}
		if err := s.history.WithTx(tx).CreateItemEvents(ctx, events); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert product events")
		}

		if input.BuyPrice != nil || input.SellPrice != nil || input.Stock != nil {
			change := StockChange{
				ProductID: product.ID,
				BuyPrice:  current.BuyPrice,
				SellPrice: current.SellPrice,
				Quantity:  current.Stock,
				ActorID:   actorID,
			}
			if input.BuyPrice != nil {
				change.BuyPrice = *input.BuyPrice
			}
			if input.SellPrice != nil {
				change.SellPrice = *input.SellPrice
			}
			if input.Stock != nil {
				change.Quantity = *input.Stock
			}
			if err := validateStockChange(change.ProductID, change.ActorID, change.BuyPrice, change.SellPrice); err != nil {
				return err
			}
			stockResult, err = s.applyLocked(ctx, tx, current, change, now)
			if err != nil {
				return err
			}
		}

		updated, err = txRepo.FindCurrentByID(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBarcode(s.logg.WithUserID(ctx, actorID), updated.Barcode)
	s.logg.Info(logCtx, "product.updated")
	s.ReportStockChange(ctx, updated.ProductID, actorID, stockResult)
	dto := updated.ToDTO()
	return &dto, nil
}

// Delete soft deletes the product and returns its last state.
func (s *service) Delete(ctx context.Context, barcode string) (*ProductDTO, error) {
	var deleted *ProductWithPrice
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := findCurrentByBarcode(ctx, txRepo, barcode)
		if err != nil {
			return err
		}
		if err := txRepo.SoftDelete(ctx, current.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: delete product")
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithBarcode(ctx, barcode), "product.deleted")
	dto := deleted.ToDTO()
	return &dto, nil
}

// BuyIn adds loose units to a product, optionally repricing it.
func (s *service) BuyIn(ctx context.Context, actorID int64, barcode string, input BuyInInput) (*BuyInResult, error) {
	if input.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}

	var (
		productID int64
		result    *StockChangeResult
	)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := findCurrentByBarcode(ctx, s.repo.WithTx(tx), barcode)
		if err != nil {
			return err
		}
		productID = current.ProductID
		result, err = s.AddStockInTx(ctx, tx, StockAddition{
			ProductID: current.ProductID,
			Added:     input.Count,
			BuyPrice:  input.BuyPrice,
			SellPrice: input.SellPrice,
			ActorID:   actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ReportStockChange(s.logg.WithBarcode(ctx, barcode), productID, actorID, result)
	return &BuyInResult{
		Stock:     result.Stock,
		BuyPrice:  result.BuyPrice,
		SellPrice: result.SellPrice,
	}, nil
}

func (s *service) resolveSellPrice(ctx context.Context, buyPrice int64, sellPrice *int64) (int64, error) {
	if sellPrice != nil {
		return *sellPrice, nil
	}
	margin, err := s.margins.DefaultMargin(ctx)
	if err != nil {
		return 0, err
	}
	return SuggestSellPrice(buyPrice, margin), nil
}

// SuggestSellPrice marks buyPrice up by margin and rounds to whole cents.
func SuggestSellPrice(buyPrice int64, margin decimal.Decimal) int64 {
	return decimal.NewFromInt(buyPrice).
		Mul(decimal.NewFromInt(1).Add(margin)).
		Round(0).
		IntPart()
}

func ensureCategory(ctx context.Context, repo *Repository, categoryID int64) error {
	if categoryID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	ok, err := repo.CategoryExists(ctx, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidReference, "category does not exist").
			WithDetails(map[string]any{"categoryId": categoryID})
	}
	return nil
}
