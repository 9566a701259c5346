package models

// Preference is a store wide key/value setting.
type Preference struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}
