package models

import (
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

// ItemHistory is an append-only audit row for product and purchase actions.
type ItemHistory struct {
	ID              int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Time            time.Time           `gorm:"column:time;not null"`
	Action          enums.HistoryAction `gorm:"column:action;type:text;not null"`
	UserID          int64               `gorm:"column:user_id;not null;index"`
	ProductID       int64               `gorm:"column:product_id;not null;index"`
	StockAfter      int64               `gorm:"column:stock_after;not null"`
	PriceID         int64               `gorm:"column:price_id;not null"`
	PreviousPriceID *int64              `gorm:"column:previous_price_id"`
	LedgerEntryID   *int64              `gorm:"column:ledger_entry_id"`
}

func (ItemHistory) TableName() string { return "item_history" }

// UserHistory is an append-only audit row for user actions such as deposits.
type UserHistory struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Time          time.Time           `gorm:"column:time;not null"`
	Action        enums.HistoryAction `gorm:"column:action;type:text;not null"`
	UserID        int64               `gorm:"column:user_id;not null;index"`
	TargetUserID  int64               `gorm:"column:target_user_id;not null"`
	LedgerEntryID *int64              `gorm:"column:ledger_entry_id"`
}

func (UserHistory) TableName() string { return "user_history" }
