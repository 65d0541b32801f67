package model

import (
	"time"
)

// Cart is the single cart of one customer inside one business.
type Cart struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CustomerID uint      `gorm:"not null;uniqueIndex:idx_cart_customer_business" json:"customer_id"`
	BusinessID uint      `gorm:"not null;uniqueIndex:idx_cart_customer_business;index" json:"business_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem rows are hard-deleted when their quantity would drop below one.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_item" json:"cart_id"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_cart_item;index" json:"item_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Item Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
