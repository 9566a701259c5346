package ledger

import (
	"context"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages user balances and their append-only ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockUser(ctx context.Context, userID int64) (*models.User, error)
	UpdateBalance(ctx context.Context, userID, balance int64) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
	SumDeltas(ctx context.Context, userID int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockUser reads the user row with SELECT ... FOR UPDATE.
func (r *repository) LockUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateBalance(ctx context.Context, userID, balance int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", balance).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumDeltas(ctx context.Context, userID int64) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
