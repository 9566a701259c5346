package models

import (
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

// User is a store customer or administrator. Balance is in cents and may be negative.
type User struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string         `gorm:"column:username;not null;uniqueIndex"`
	FullName     string         `gorm:"column:full_name;not null"`
	Email        string         `gorm:"column:email;not null;uniqueIndex"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	Balance      int64          `gorm:"column:balance;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
