package boxes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service manages boxes and box buy-ins.
type Service interface {
	List(ctx context.Context) ([]BoxDTO, error)
	Get(ctx context.Context, boxBarcode string) (*BoxDTO, error)
	Create(ctx context.Context, input CreateBoxInput) (*BoxDTO, error)
	Update(ctx context.Context, boxBarcode string, input UpdateBoxInput) (*BoxDTO, error)
	Delete(ctx context.Context, boxBarcode string) (*BoxDTO, error)
	BuyIn(ctx context.Context, actorID int64, boxBarcode string, input BuyInInput) (*BuyInResult, error)
}

// stockAdder is the slice of the product service a buy-in needs.
type stockAdder interface {
	AddStockInTx(ctx context.Context, tx *gorm.DB, addition productsvc.StockAddition) (*productsvc.StockChangeResult, error)
	ReportStockChange(ctx context.Context, productID, actorID int64, result *productsvc.StockChangeResult)
}

type service struct {
	repo        *Repository
	productRepo *productsvc.Repository
	products    stockAdder
	dbClient    *db.Client
	logg        *logger.Logger
}

// NewService constructs a boxes service instance.
func NewService(repo *Repository, productRepo *productsvc.Repository, products stockAdder, dbClient *db.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("boxes repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		products:    products,
		dbClient:    dbClient,
		logg:        logg,
	}, nil
}

func (s *service) List(ctx context.Context) ([]BoxDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list boxes")
	}
	out := make([]BoxDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDTO())
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, boxBarcode string) (*BoxDTO, error) {
	return s.load(ctx, s.repo, boxBarcode)
}

func (s *service) load(ctx context.Context, repo *Repository, boxBarcode string) (*BoxDTO, error) {
	box, err := repo.Find(ctx, boxBarcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "box not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find box")
	}
	dto := box.ToDTO()
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateBoxInput) (*BoxDTO, error) {
	input.BoxBarcode = strings.TrimSpace(input.BoxBarcode)
	if input.BoxBarcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "box barcode is required")
	}
	if input.ItemsPerBox <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items per box must be positive")
	}

	var created *BoxDTO
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		exists, err := txRepo.Exists(ctx, input.BoxBarcode)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check box")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "box barcode already in use")
		}

		productID, err := s.resolveProduct(ctx, tx, input.ProductBarcode)
		if err != nil {
			return err
		}
		box := &models.Box{
			BoxBarcode:  input.BoxBarcode,
			ItemsPerBox: input.ItemsPerBox,
			ProductID:   productID,
		}
		if err := txRepo.Create(ctx, box); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "box barcode already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert box")
		}

		created, err = s.load(ctx, txRepo, input.BoxBarcode)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBarcode(ctx, input.BoxBarcode), "box.created")
	return created, nil
}

func (s *service) Update(ctx context.Context, boxBarcode string, input UpdateBoxInput) (*BoxDTO, error) {
	if input.ItemsPerBox != nil && *input.ItemsPerBox <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items per box must be positive")
	}

	var updated *BoxDTO
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Lock(ctx, boxBarcode); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "box not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock box")
		}

		updates := map[string]any{}
		if input.ItemsPerBox != nil {
			updates["items_per_box"] = *input.ItemsPerBox
		}
		if input.ProductBarcode != nil {
			productID, err := s.resolveProduct(ctx, tx, *input.ProductBarcode)
			if err != nil {
				return err
			}
			updates["product_id"] = productID
		}
		if err := txRepo.Update(ctx, boxBarcode, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update box")
		}

		var err error
		updated, err = s.load(ctx, txRepo, boxBarcode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the box row. Boxes carry no history so the delete is physical.
func (s *service) Delete(ctx context.Context, boxBarcode string) (*BoxDTO, error) {
	var deleted *BoxDTO
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		box, err := s.load(ctx, txRepo, boxBarcode)
		if err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, boxBarcode); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: delete box")
		}
		deleted = box
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBarcode(ctx, boxBarcode), "box.deleted")
	return deleted, nil
}

// BuyIn adds itemsPerBox*BoxCount units to the box's product. Reading the box and
// changing the stock happen in one transaction.
func (s *service) BuyIn(ctx context.Context, actorID int64, boxBarcode string, input BuyInInput) (*BuyInResult, error) {
	if input.BoxCount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "box count must be positive")
	}

	var (
		productID int64
		result    *productsvc.StockChangeResult
	)
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		box, err := s.repo.WithTx(tx).Lock(ctx, boxBarcode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "box not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock box")
		}

		productID = box.ProductID
		result, err = s.products.AddStockInTx(ctx, tx, productsvc.StockAddition{
			ProductID: box.ProductID,
			Added:     box.ItemsPerBox * input.BoxCount,
			BuyPrice:  input.ProductBuyPrice,
			SellPrice: input.ProductSellPrice,
			ActorID:   actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.products.ReportStockChange(ctx, productID, actorID, result)
	logCtx := s.logg.WithBarcode(s.logg.WithUserID(ctx, actorID), boxBarcode)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"box_count":   input.BoxCount,
		"stock_after": result.Stock,
		"new_version": result.NewVersion,
	})
	s.logg.Info(logCtx, "box.bought_in")
	return &BuyInResult{
		ProductStock:     result.Stock,
		ProductBuyPrice:  result.BuyPrice,
		ProductSellPrice: result.SellPrice,
	}, nil
}

func (s *service) resolveProduct(ctx context.Context, tx *gorm.DB, barcode string) (int64, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product barcode is required")
	}
	current, err := s.productRepo.WithTx(tx).FindCurrentByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeInvalidReference, "product does not exist").
				WithDetails(map[string]any{"productBarcode": barcode})
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find product")
	}
	return current.ProductID, nil
}
