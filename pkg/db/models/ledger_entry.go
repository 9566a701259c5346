package models

import "time"

// LedgerEntry is an append-only balance change of a user.
type LedgerEntry struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       int64     `gorm:"column:user_id;not null;index"`
	Time         time.Time `gorm:"column:time;not null"`
	BalanceAfter int64     `gorm:"column:balance_after;not null"`
	Delta        int64     `gorm:"column:delta;not null"`
}
