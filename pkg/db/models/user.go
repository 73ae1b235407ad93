package models

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. Role never changes after insert.
type User struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email          string         `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash   string         `gorm:"column:password_hash;not null"`
	Role           enums.UserRole `gorm:"column:role;type:text;not null"`
	FullName       *string        `gorm:"column:full_name"`
	Phone          *string        `gorm:"column:phone"`
	Address        *string        `gorm:"column:address"`
	EmailConfirmed bool           `gorm:"column:email_confirmed;not null;default:false"`
	LastLoginAt    *time.Time     `gorm:"column:last_login_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
