package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Service records balance changes that are not purchases.
type Service interface {
	RecordDeposit(ctx context.Context, input DepositInput) (*DepositResult, error)
	Reconcile(ctx context.Context, userID int64) (*Reconciliation, error)
}

// DepositInput credits Amount cents to UserID. The caller validates the sign.
type DepositInput struct {
	UserID int64
	Amount int64
}

// Deposit describes one committed deposit.
type Deposit struct {
	DepositID    int64     `json:"depositId"`
	Time         time.Time `json:"time"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balanceAfter"`
}

// DepositResult is what the deposit route returns.
type DepositResult struct {
	AccountBalance int64   `json:"accountBalance"`
	Deposit        Deposit `json:"deposit"`
}

// Reconciliation compares a stored balance with the sum of its ledger.
type Reconciliation struct {
	UserID     int64 `json:"userId"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledgerSum"`
	Entries    int   `json:"entries"`
	Consistent bool  `json:"consistent"`
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	History history.Repository
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
	Now     func() time.Time
}

type service struct {
	db      *db.Client
	repo    Repository
	history history.Repository
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
	now     func() time.Time
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
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
		db:      params.DB,
		repo:    params.Repo,
		history: params.History,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) RecordDeposit(ctx context.Context, input DepositInput) (*DepositResult, error) {
	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	started := time.Now()
	var result *DepositResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.LockUser(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
		}

		now := s.now()
		balance := user.Balance + input.Amount
		entry := &models.LedgerEntry{
			UserID:       user.ID,
			Time:         now,
			BalanceAfter: balance,
			Delta:        input.Amount,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert ledger entry")
		}

		event := &models.UserHistory{
			Time:          now,
			Action:        enums.HistoryActionDeposited,
			UserID:        user.ID,
			TargetUserID:  user.ID,
			LedgerEntryID: &entry.ID,
		}
		if err := s.history.WithTx(tx).CreateUserEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert deposit event")
		}

		if err := repo.UpdateBalance(ctx, user.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update balance")
		}

		result = &DepositResult{
			AccountBalance: balance,
			Deposit: Deposit{
				DepositID:    event.ID,
				Time:         now,
				Amount:       input.Amount,
				BalanceAfter: balance,
			},
		}
		return nil
	})
	s.metrics.ObserveDuration("deposit", time.Since(started))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDeposit(input.Amount)
	logCtx := s.logg.WithUserID(ctx, input.UserID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"deposit_id":    result.Deposit.DepositID,
		"amount":        input.Amount,
		"balance_after": result.AccountBalance,
	})
	s.logg.Info(logCtx, "deposit.recorded")
	return result, nil
}

// Reconcile checks that the user's balance equals the sum of their ledger deltas
// and that every balance-after is the running sum up to that entry.
func (s *service) Reconcile(ctx context.Context, userID int64) (*Reconciliation, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var result *Reconciliation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
		}
		entries, err := repo.ListEntries(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger entries")
		}

		var running int64
		consistent := true
		for _, entry := range entries {
			running += entry.Delta
			if entry.BalanceAfter != running {
				consistent = false
			}
		}
		sum, err := repo.SumDeltas(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum ledger deltas")
		}
		result = &Reconciliation{
			UserID:     userID,
			Balance:    user.Balance,
			LedgerSum:  sum,
			Entries:    len(entries),
			Consistent: consistent && running == sum && sum == user.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Consistent {
		s.logg.Warn(s.logg.WithUserID(ctx, userID), "ledger.reconcile_mismatch")
	}
	return result, nil
}
