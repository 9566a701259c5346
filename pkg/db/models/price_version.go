package models

import "time"

// PriceVersion is a time bounded buy/sell price and stock record of a product.
// EndTime is nil while the version is current; at most one such row exists per product.
type PriceVersion struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64      `gorm:"column:product_id;not null;index:idx_price_versions_open,unique,where:end_time IS NULL"`
	BuyPrice  int64      `gorm:"column:buy_price;not null"`
	SellPrice int64      `gorm:"column:sell_price;not null"`
	Stock     int64      `gorm:"column:stock;not null"`
	StartTime time.Time  `gorm:"column:start_time;not null"`
	EndTime   *time.Time `gorm:"column:end_time"`
	UserID    int64      `gorm:"column:user_id;not null"`
}
