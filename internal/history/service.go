package history

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/pagination"
)

// Service exposes the read side of the audit log.
type Service interface {
	ListPurchases(ctx context.Context, filter PurchaseFilter, params pagination.Params) (*PurchasePage, error)
	ListPurchasesByUser(ctx context.Context, userID int64, params pagination.Params) (*PurchasePage, error)
	ListPurchasesByProduct(ctx context.Context, barcode string, params pagination.Params) (*PurchasePage, error)
	FindPurchase(ctx context.Context, filter PurchaseFilter) (*Purchase, error)
	ListDeposits(ctx context.Context, filter DepositFilter, params pagination.Params) (*DepositPage, error)
	ListDepositsByUser(ctx context.Context, userID int64, params pagination.Params) (*DepositPage, error)
	FindDeposit(ctx context.Context, filter DepositFilter) (*Deposit, error)
}

type service struct {
	repo Repository
}

// NewService wires the history read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPurchases(ctx context.Context, filter PurchaseFilter, params pagination.Params) (*PurchasePage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListPurchases(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}

	page := &PurchasePage{Purchases: rows}
	if len(rows) > limit {
		last := rows[limit-1]
		page.Purchases = rows[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Time: last.Time, ID: last.PurchaseID})
	}
	return page, nil
}

func (s *service) ListPurchasesByUser(ctx context.Context, userID int64, params pagination.Params) (*PurchasePage, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.ListPurchases(ctx, PurchaseFilter{UserID: userID}, params)
}

func (s *service) ListPurchasesByProduct(ctx context.Context, barcode string, params pagination.Params) (*PurchasePage, error) {
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	exists, err := s.repo.ProductExists(ctx, barcode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.ListPurchases(ctx, PurchaseFilter{Barcode: barcode}, params)
}

func (s *service) FindPurchase(ctx context.Context, filter PurchaseFilter) (*Purchase, error) {
	if filter.PurchaseID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	rows, err := s.repo.ListPurchases(ctx, filter, nil, 1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find purchase")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return &rows[0], nil
}

func (s *service) ListDeposits(ctx context.Context, filter DepositFilter, params pagination.Params) (*DepositPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListDeposits(ctx, filter, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deposits")
	}

	page := &DepositPage{Deposits: rows}
	if len(rows) > limit {
		last := rows[limit-1]
		page.Deposits = rows[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Time: last.Time, ID: last.DepositID})
	}
	return page, nil
}

func (s *service) ListDepositsByUser(ctx context.Context, userID int64, params pagination.Params) (*DepositPage, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.ListDeposits(ctx, DepositFilter{UserID: userID}, params)
}

func (s *service) FindDeposit(ctx context.Context, filter DepositFilter) (*Deposit, error) {
	if filter.DepositID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id is required")
	}
	rows, err := s.repo.ListDeposits(ctx, filter, nil, 1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find deposit")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
	}
	return &rows[0], nil
}

func (s *service) requireUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}
