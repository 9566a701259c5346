package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/internal/ledger"
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"gorm.io/gorm"
)

// PurchaseInput asks to buy Count units of the product with Barcode on UserID's account.
type PurchaseInput struct {
	Barcode string
	UserID  int64
	Count   int
}

// Purchase is one sold unit.
type Purchase struct {
	PurchaseID   int64     `json:"purchaseId"`
	Time         time.Time `json:"time"`
	Price        int64     `json:"price"`
	BalanceAfter int64     `json:"balanceAfter"`
	StockAfter   int64     `json:"stockAfter"`
}

// Result is the state after a committed purchase.
type Result struct {
	AccountBalance int64      `json:"accountBalance"`
	ProductStock   int64      `json:"productStock"`
	Purchases      []Purchase `json:"purchases"`
}

// Service records purchases.
type Service interface {
	RecordPurchase(ctx context.Context, input PurchaseInput) (*Result, error)
}

// ServiceParams wires the purchase service.
type ServiceParams struct {
	DB       *db.Client
	Products *productsvc.Repository
	Ledger   ledger.Repository
	History  history.Repository
	Logger   *logger.Logger
	Metrics  *metrics.StoreMetrics
	MaxCount int
	Now      func() time.Time
}

type service struct {
	dbClient *db.Client
	products *productsvc.Repository
	ledger   ledger.Repository
	history  history.Repository
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	maxCount int
	now      func() time.Time
}

// NewService constructs the purchase service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		dbClient: params.DB,
		products: params.Products,
		ledger:   params.Ledger,
		history:  params.History,
		logg:     params.Logger,
		metrics:  params.Metrics,
		maxCount: params.MaxCount,
		now:      now,
	}, nil
}

// CreditAllows reports whether a user holding balance may buy count units at price.
// The first count-1 units must be covered by the balance; only the last one may
// take the balance below zero. Free items are always allowed.
func CreditAllows(balance, price int64, count int) bool {
	return price <= 0 || balance > price*int64(count-1)
}

// RecordPurchase sells Count units in one transaction. Each unit gets its own ledger
// entry and purchased event; rejection by the credit policy changes nothing.
func (s *service) RecordPurchase(ctx context.Context, input PurchaseInput) (*Result, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBarcode(s.logg.WithUserID(ctx, input.UserID), input.Barcode)
	started := time.Now()

	var result *Result
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.products.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		current, err := productRepo.FindCurrentByBarcode(ctx, input.Barcode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: find product")
		}

		price, err := productRepo.LockOpenPrice(ctx, current.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock price version")
		}
		user, err := ledgerRepo.LockUser(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lock user")
		}

		if !CreditAllows(user.Balance, price.SellPrice, input.Count) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
				WithDetails(map[string]any{
					"accountBalance": user.Balance,
					"price":          price.SellPrice,
					"count":          input.Count,
				})
		}

		now := s.now()
		stock := price.Stock
		balance := user.Balance
		purchases := make([]Purchase, 0, input.Count)
		historyRepo := s.history.WithTx(tx)

		for i := 0; i < input.Count; i++ {
			stock--
			balance -= price.SellPrice

			entry := &models.LedgerEntry{
				UserID:       user.ID,
				Time:         now,
				BalanceAfter: balance,
				Delta:        -price.SellPrice,
			}
			if err := ledgerRepo.CreateEntry(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert ledger entry")
			}

			event := models.ItemHistory{
				Time:          now,
				Action:        enums.HistoryActionPurchased,
				UserID:        user.ID,
				ProductID:     price.ProductID,
				StockAfter:    stock,
				PriceID:       price.ID,
				LedgerEntryID: &entry.ID,
			}
			events := []models.ItemHistory{event}
			if err := historyRepo.CreateItemEvents(ctx, events); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert purchase event")
			}

			purchases = append(purchases, Purchase{
				PurchaseID:   events[0].ID,
				Time:         now,
				Price:        price.SellPrice,
				BalanceAfter: balance,
				StockAfter:   stock,
			})
		}

		if err := productRepo.UpdateStock(ctx, price.ID, stock); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update stock")
		}
		if err := ledgerRepo.UpdateBalance(ctx, user.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: update balance")
		}

		result = &Result{
			AccountBalance: balance,
			ProductStock:   stock,
			Purchases:      purchases,
		}
		return nil
	})
	s.metrics.ObserveDuration("purchase", time.Since(started))

	if err != nil {
		s.metrics.ObservePurchase(outcomeFor(err), 0)
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
			s.logg.Info(logCtx, "purchase.rejected")
		}
		return nil, err
	}

	s.metrics.ObservePurchase(metrics.PurchaseOutcomeSuccess, input.Count)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"count":          input.Count,
		"balance_after":  result.AccountBalance,
		"stock_after":    result.ProductStock,
		"first_purchase": result.Purchases[0].PurchaseID,
	})
	s.logg.Info(logCtx, "purchase.recorded")
	return result, nil
}

func (s *service) validate(input PurchaseInput) error {
	if input.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Barcode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	if input.Count < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "count must be at least 1")
	}
	if s.maxCount > 0 && input.Count > s.maxCount {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("count cannot exceed %d", s.maxCount))
	}
	return nil
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds):
		return metrics.PurchaseOutcomeInsufficientFunds
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.PurchaseOutcomeNotFound
	default:
		return metrics.PurchaseOutcomeError
	}
}
