package history

import (
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

// CategoryRef identifies the category a product belonged to when it was read.
type CategoryRef struct {
	CategoryID  int64  `json:"categoryId"`
	Description string `json:"description"`
}

// ProductSnapshot is a product joined with the price version referenced by a history row.
type ProductSnapshot struct {
	Barcode   string      `json:"barcode"`
	Name      string      `json:"name"`
	Category  CategoryRef `json:"category"`
	Weight    int64       `json:"weight"`
	BuyPrice  int64       `json:"buyPrice"`
	SellPrice int64       `json:"sellPrice"`
	Stock     int64       `json:"stock"`
}

// UserSnapshot is the public view of the user a history row belongs to.
type UserSnapshot struct {
	UserID       int64          `json:"userId"`
	Username     string         `json:"username"`
	FullName     string         `json:"fullName"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	MoneyBalance int64          `json:"moneyBalance"`
}

// Purchase is one purchased unit.
type Purchase struct {
	PurchaseID   int64           `json:"purchaseId"`
	Time         time.Time       `json:"time"`
	Price        int64           `json:"price"`
	BalanceAfter int64           `json:"balanceAfter"`
	StockAfter   int64           `json:"stockAfter"`
	Product      ProductSnapshot `json:"product"`
	User         UserSnapshot    `json:"user"`
}

// ProductPurchase is a purchase listed under its product, so the product itself is omitted.
type ProductPurchase struct {
	PurchaseID int64        `json:"purchaseId"`
	Time       time.Time    `json:"time"`
	Price      int64        `json:"price"`
	StockAfter int64        `json:"stockAfter"`
	User       UserSnapshot `json:"user"`
}

// WithoutProduct drops the product and balance fields.
func (p Purchase) WithoutProduct() ProductPurchase {
	return ProductPurchase{
		PurchaseID: p.PurchaseID,
		Time:       p.Time,
		Price:      p.Price,
		StockAfter: p.StockAfter,
		User:       p.User,
	}
}

// Deposit is one credited deposit.
type Deposit struct {
	DepositID    int64        `json:"depositId"`
	Time         time.Time    `json:"time"`
	Amount       int64        `json:"amount"`
	BalanceAfter int64        `json:"balanceAfter"`
	User         UserSnapshot `json:"user"`
}

// PurchasePage is a cursor page of purchases, newest first.
type PurchasePage struct {
	Purchases  []Purchase `json:"purchases"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// DepositPage is a cursor page of deposits, newest first.
type DepositPage struct {
	Deposits   []Deposit `json:"deposits"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// PurchaseFilter narrows purchase reads. Zero values match everything.
type PurchaseFilter struct {
	PurchaseID int64
	UserID     int64
	Barcode    string
}

// DepositFilter narrows deposit reads. Zero values match everything.
type DepositFilter struct {
	DepositID int64
	UserID    int64
}
