package product

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"gorm.io/gorm"
)

// ApplyStockChange sets the price and absolute quantity of a product in its own transaction.
func (s *service) ApplyStockChange(ctx context.Context, change StockChange) (*StockChangeResult, error) {
	started := time.Now()
	var result *StockChangeResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.ApplyStockChangeInTx(ctx, tx, change)
		return err
	})
	s.metrics.ObserveDuration("stock_change", time.Since(started))
	if err != nil {
		return nil, err
	}
	s.ReportStockChange(ctx, change.ProductID, change.ActorID, result)
	return result, nil
}

// ApplyStockChangeInTx is ApplyStockChange joined to the caller's transaction.
func (s *service) ApplyStockChangeInTx(ctx context.Context, tx *gorm.DB, change StockChange) (*StockChangeResult, error) {
	if err := validateStockChange(change.ProductID, change.ActorID, change.BuyPrice, change.SellPrice); err != nil {
		return nil, err
	}
	current, err := s.lockOpenPrice(ctx, tx, change.ProductID)
	if err != nil {
		return nil, err
	}
	return s.applyLocked(ctx, tx, current, change, s.now())
}

// AddStockInTx adds units to the current stock inside the caller's transaction.
// Prices left nil keep their current value. A deleted product is reported as not found.
func (s *service) AddStockInTx(ctx context.Context, tx *gorm.DB, addition StockAddition) (*StockChangeResult, error) {
	if _, err := s.repo.WithTx(tx).LockProductByID(ctx, addition.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": addition.ProductID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock product")
	}
	current, err := s.lockOpenPrice(ctx, tx, addition.ProductID)
	if err != nil {
		return nil, err
	}

	change := StockChange{
		ProductID: addition.ProductID,
		BuyPrice:  current.BuyPrice,
		SellPrice: current.SellPrice,
		Quantity:  current.Stock + addition.Added,
		ActorID:   addition.ActorID,
	}
	if addition.BuyPrice != nil {
		change.BuyPrice = *addition.BuyPrice
	}
	if addition.SellPrice != nil {
		change.SellPrice = *addition.SellPrice
	}
	if err := validateStockChange(change.ProductID, change.ActorID, change.BuyPrice, change.SellPrice); err != nil {
		return nil, err
	}
	return s.applyLocked(ctx, tx, current, change, s.now())
}

func (s *service) lockOpenPrice(ctx context.Context, tx *gorm.DB, productID int64) (*models.PriceVersion, error) {
	current, err := s.repo.WithTx(tx).LockOpenPrice(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "product has no open price version").
				WithDetails(map[string]any{"productId": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock price version")
	}
	return current, nil
}

// applyLocked writes the change against an already locked open version. Unchanged prices keep
// the version and rewrite its stock; a price change retires it and opens a new one.
func (s *service) applyLocked(ctx context.Context, tx *gorm.DB, current *models.PriceVersion, change StockChange, now time.Time) (*StockChangeResult, error) {
	buyChanged := change.BuyPrice != current.BuyPrice
	sellChanged := change.SellPrice != current.SellPrice
	quantityChanged := change.Quantity != current.Stock

	result := &StockChangeResult{
		PriceID:   current.ID,
		BuyPrice:  current.BuyPrice,
		SellPrice: current.SellPrice,
		Stock:     current.Stock,
	}
	if !buyChanged && !sellChanged && !quantityChanged {
		return result, nil
	}

	repo := s.repo.WithTx(tx)
	var previousID *int64
	if !buyChanged && !sellChanged {
		if err := repo.UpdateStock(ctx, current.ID, change.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update stock")
		}
	} else {
		if err := repo.RetirePrice(ctx, current.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: retire price version")
		}
		next := &models.PriceVersion{
			ProductID: current.ProductID,
			BuyPrice:  change.BuyPrice,
			SellPrice: change.SellPrice,
			Stock:     change.Quantity,
			StartTime: now,
			UserID:    change.ActorID,
		}
		if err := repo.CreatePrice(ctx, next); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert price version")
		}
		prev := current.ID
		previousID = &prev
		result.PriceID = next.ID
		result.PreviousPriceID = prev
		result.NewVersion = true
	}

	result.BuyPrice = change.BuyPrice
	result.SellPrice = change.SellPrice
	result.Stock = change.Quantity

	var events []models.ItemHistory
	appendEvent := func(action enums.HistoryAction) {
		events = append(events, models.ItemHistory{
			Time:            now,
			Action:          action,
			UserID:          change.ActorID,
			ProductID:       current.ProductID,
			StockAfter:      change.Quantity,
			PriceID:         result.PriceID,
			PreviousPriceID: previousID,
		})
	}
	if buyChanged {
		appendEvent(enums.HistoryActionBuyPriceChanged)
	}
	if sellChanged {
		appendEvent(enums.HistoryActionSellPriceChanged)
	}
	if quantityChanged {
		appendEvent(enums.HistoryActionQuantityChanged)
	}
	if err := s.history.WithTx(tx).CreateItemEvents(ctx, events); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert stock events")
	}
	result.Events = len(events)
	return result, nil
}

func validateStockChange(productID, actorID, buyPrice, sellPrice int64) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if actorID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if buyPrice < 0 || sellPrice < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	return nil
}

// ReportStockChange counts and logs a committed stock change. Callers joining their own
// transaction call it once that transaction has committed.
func (s *service) ReportStockChange(ctx context.Context, productID, actorID int64, result *StockChangeResult) {
	if result == nil {
		return
	}
	if result.Events == 0 {
		s.logg.Debug(s.logg.WithField(s.logg.WithUserID(ctx, actorID), "product_id", productID), "stock.unchanged")
		return
	}
	if result.NewVersion {
		s.metrics.ObserveStockChange(metrics.StockChangeNewVersion)
	} else {
		s.metrics.ObserveStockChange(metrics.StockChangeInPlace)
	}
	logCtx := s.logg.WithUserID(ctx, actorID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"product_id":  productID,
		"price_id":    result.PriceID,
		"new_version": result.NewVersion,
		"stock":       result.Stock,
		"events":      result.Events,
	})
	s.logg.Info(logCtx, "stock.changed")
}
