package model

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff principal (owner or admin of one or more businesses).
type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Name             string         `gorm:"not null" json:"name"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone            string         `gorm:"uniqueIndex;not null" json:"phone"`
	PasswordHash     string         `gorm:"not null" json:"-"`
	ActiveBusinessID *uint          `gorm:"index" json:"active_business_id,omitempty"` // default tenant when a request names none
	ResetOTPHash     string         `json:"-"`
	ResetOTPExpiry   *time.Time     `json:"-"`
	ResetOTPAttempts int            `gorm:"not null;default:0" json:"-"` // failed guesses against the outstanding code
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
