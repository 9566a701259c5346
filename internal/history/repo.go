package history

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository appends audit rows and reads the purchase and deposit views built on them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItemEvents(ctx context.Context, events []models.ItemHistory) error
	CreateUserEvent(ctx context.Context, event *models.UserHistory) error
	ListPurchases(ctx context.Context, filter PurchaseFilter, cursor *pagination.Cursor, limit int) ([]Purchase, error)
	ListDeposits(ctx context.Context, filter DepositFilter, cursor *pagination.Cursor, limit int) ([]Deposit, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	ProductExists(ctx context.Context, barcode string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateItemEvents(ctx context.Context, events []models.ItemHistory) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *repository) CreateUserEvent(ctx context.Context, event *models.UserHistory) error {
	return r.db.WithContext(ctx).Create(event).Error
}

var userColumns = []string{
	"u.id AS user_id",
	"u.username",
	"u.full_name",
	"u.email",
	"u.role",
	"u.balance AS user_balance",
}

func (r *repository) ListPurchases(ctx context.Context, filter PurchaseFilter, cursor *pagination.Cursor, limit int) ([]Purchase, error) {
	columns := append([]string{
		"ih.id AS purchase_id",
		"ih.time",
		"ih.stock_after",
		"le.balance_after",
		"p.barcode",
		"p.name",
		"p.weight",
		"c.id AS category_id",
		"c.description AS category_description",
		"pv.buy_price",
		"pv.sell_price",
		"pv.stock AS version_stock",
	}, userColumns...)

	qb := r.db.WithContext(ctx).
		Table("item_history ih").
		Select(strings.Join(columns, ", ")).
		Joins("JOIN price_versions pv ON pv.id = ih.price_id").
		Joins("JOIN products p ON p.id = ih.product_id").
		Joins("JOIN categories c ON c.id = p.category_id").
		Joins("JOIN users u ON u.id = ih.user_id").
		Joins("JOIN ledger_entries le ON le.id = ih.ledger_entry_id").
		Where("ih.action = ?", enums.HistoryActionPurchased)

	if filter.PurchaseID > 0 {
		qb = qb.Where("ih.id = ?", filter.PurchaseID)
	}
	if filter.UserID > 0 {
		qb = qb.Where("ih.user_id = ?", filter.UserID)
	}
	if filter.Barcode != "" {
		qb = qb.Where("p.barcode = ? AND p.deleted = ?", filter.Barcode, false)
	}
	if cursor != nil {
		qb = qb.Where("(ih.time < ?) OR (ih.time = ? AND ih.id < ?)", cursor.Time, cursor.Time, cursor.ID)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}

	var records []purchaseRecord
	if err := qb.Order("ih.time DESC").Order("ih.id DESC").Scan(&records).Error; err != nil {
		return nil, err
	}

	purchases := make([]Purchase, 0, len(records))
	for _, record := range records {
		purchases = append(purchases, record.toPurchase())
	}
	return purchases, nil
}

func (r *repository) ListDeposits(ctx context.Context, filter DepositFilter, cursor *pagination.Cursor, limit int) ([]Deposit, error) {
	columns := append([]string{
		"uh.id AS deposit_id",
		"uh.time",
		"le.delta AS amount",
		"le.balance_after",
	}, userColumns...)

	qb := r.db.WithContext(ctx).
		Table("user_history uh").
		Select(strings.Join(columns, ", ")).
		Joins("JOIN ledger_entries le ON le.id = uh.ledger_entry_id").
		Joins("JOIN users u ON u.id = uh.target_user_id").
		Where("uh.action = ?", enums.HistoryActionDeposited)

	if filter.DepositID > 0 {
		qb = qb.Where("uh.id = ?", filter.DepositID)
	}
	if filter.UserID > 0 {
		qb = qb.Where("uh.target_user_id = ?", filter.UserID)
	}
	if cursor != nil {
		qb = qb.Where("(uh.time < ?) OR (uh.time = ? AND uh.id < ?)", cursor.Time, cursor.Time, cursor.ID)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}

	var records []depositRecord
	if err := qb.Order("uh.time DESC").Order("uh.id DESC").Scan(&records).Error; err != nil {
		return nil, err
	}

	deposits := make([]Deposit, 0, len(records))
	for _, record := range records {
		deposits = append(deposits, record.toDeposit())
	}
	return deposits, nil
}

func (r *repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ProductExists(ctx context.Context, barcode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("barcode = ? AND deleted = ?", barcode, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type userRecord struct {
	UserID      int64          `gorm:"column:user_id"`
	Username    string         `gorm:"column:username"`
	FullName    string         `gorm:"column:full_name"`
	Email       string         `gorm:"column:email"`
	Role        enums.UserRole `gorm:"column:role"`
	UserBalance int64          `gorm:"column:user_balance"`
}

func (r userRecord) toSnapshot() UserSnapshot {
	return UserSnapshot{
		UserID:       r.UserID,
		Username:     r.Username,
		FullName:     r.FullName,
		Email:        r.Email,
		Role:         r.Role,
		MoneyBalance: r.UserBalance,
	}
}

type purchaseRecord struct {
	PurchaseID          int64     `gorm:"column:purchase_id"`
	Time                time.Time `gorm:"column:time"`
	StockAfter          int64     `gorm:"column:stock_after"`
	BalanceAfter        int64     `gorm:"column:balance_after"`
	Barcode             string    `gorm:"column:barcode"`
	Name                string    `gorm:"column:name"`
	Weight              int64     `gorm:"column:weight"`
	CategoryID          int64     `gorm:"column:category_id"`
	CategoryDescription string    `gorm:"column:category_description"`
	BuyPrice            int64     `gorm:"column:buy_price"`
	SellPrice           int64     `gorm:"column:sell_price"`
	VersionStock        int64     `gorm:"column:version_stock"`
	userRecord
}

func (r purchaseRecord) toPurchase() Purchase {
	return Purchase{
		PurchaseID:   r.PurchaseID,
		Time:         r.Time,
		Price:        r.SellPrice,
		BalanceAfter: r.BalanceAfter,
		StockAfter:   r.StockAfter,
		Product: ProductSnapshot{
			Barcode: r.Barcode,
			Name:    r.Name,
			Category: CategoryRef{
				CategoryID:  r.CategoryID,
				Description: r.CategoryDescription,
			},
			Weight:    r.Weight,
			BuyPrice:  r.BuyPrice,
			SellPrice: r.SellPrice,
			Stock:     r.VersionStock,
		},
		User: r.toSnapshot(),
	}
}

type depositRecord struct {
	DepositID    int64     `gorm:"column:deposit_id"`
	Time         time.Time `gorm:"column:time"`
	Amount       int64     `gorm:"column:amount"`
	BalanceAfter int64     `gorm:"column:balance_after"`
	userRecord
}

func (r depositRecord) toDeposit() Deposit {
	return Deposit{
		DepositID:    r.DepositID,
		Time:         r.Time,
		Amount:       r.Amount,
		BalanceAfter: r.BalanceAfter,
		User:         r.toSnapshot(),
	}
}
