package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string   // fulfilment state
type PaymentStatus string // settlement state
type PaymentMode string   // how the customer pays at checkout

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusReceived   OrderStatus = "Received"
	OrderStatusCancelled  OrderStatus = "Cancelled"

	PaymentStatusUnpaid   PaymentStatus = "Unpaid"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusRefunded PaymentStatus = "Refunded"

	PaymentModeCash     PaymentMode = "cash"      // settled at the counter, confirmed immediately
	PaymentModePayLater PaymentMode = "pay_later" // awaits staff confirmation
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusReceived, OrderStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

func (m PaymentMode) Valid() bool {
	return m == PaymentModeCash || m == PaymentModePayLater
}

// InitialStatus is the status an order is created with for this mode.
func (m PaymentMode) InitialStatus() OrderStatus {
	if m == PaymentModeCash {
		return OrderStatusConfirmed
	}
	return OrderStatusPending
}

// Order is an immutable purchase snapshot. Only Status and PaymentStatus
// change after creation.
type Order struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	BusinessID      uint            `gorm:"not null;index" json:"business_id"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentMode     PaymentMode     `gorm:"type:varchar(20);not null" json:"payment_mode"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	CustomerName    string          `json:"customer_name"`                     // copied at checkout
	CustomerEmail   string          `json:"customer_email"`                    // copied at checkout
	CustomerPhone   string          `json:"customer_phone"`                    // copied at checkout
	ShippingAddress string          `gorm:"type:text" json:"shipping_address"` // copied at checkout
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a frozen line: name and price never follow later catalog edits.
type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ItemID    uint            `gorm:"not null;index" json:"item_id"`
	ItemName  string          `gorm:"not null" json:"item_name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
