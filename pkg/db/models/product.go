package models

import "time"

// Product is a sellable item. Prices and stock live on PriceVersion.
type Product struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Barcode    string    `gorm:"column:barcode;not null;index:idx_products_barcode_active,unique,where:deleted = false"`
	Name       string    `gorm:"column:name;not null"`
	CategoryID int64     `gorm:"column:category_id;not null;index"`
	Weight     int64     `gorm:"column:weight;not null"`
	Deleted    bool      `gorm:"column:deleted;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
