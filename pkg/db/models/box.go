package models

// Box is a bulk stock unit holding ItemsPerBox units of one product.
type Box struct {
	BoxBarcode  string `gorm:"column:box_barcode;primaryKey"`
	ItemsPerBox int64  `gorm:"column:items_per_box;not null"`
	ProductID   int64  `gorm:"column:product_id;not null;index"`
}
