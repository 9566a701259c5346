package models

// Category groups products. Categories are only ever soft deleted.
type Category struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Description string `gorm:"column:description;not null"`
	Deleted     bool   `gorm:"column:deleted;not null"`
}
