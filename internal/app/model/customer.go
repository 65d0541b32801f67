package model

import (
	"time"
)

// Customer belongs to exactly one business. The same email or phone may
// exist under different businesses as unrelated rows. Customers are
// hard-deleted; orders keep a denormalized copy of the contact fields.
type Customer struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	BusinessID   uint           `gorm:"not null;uniqueIndex:idx_customer_business_email;uniqueIndex:idx_customer_business_phone" json:"business_id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_customer_business_email" json:"email"`
	Phone        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_customer_business_phone" json:"phone"`
	PasswordHash string         `json:"-"`
	Address      string         `gorm:"type:text" json:"address"`
	City         string         `gorm:"type:varchar(100)" json:"city"`
	State        string         `gorm:"type:varchar(100)" json:"state"`
	Pincode      string         `gorm:"type:varchar(12)" json:"pincode"`
	OTPHash      string         `json:"-"` // transient, cleared after use
	OTPExpiry    *time.Time     `json:"-"`
	OTPAttempts  int            `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
