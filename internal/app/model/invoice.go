package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePaid   InvoiceStatus = "Paid"
	InvoiceUnpaid InvoiceStatus = "Unpaid"
)

func (s InvoiceStatus) Valid() bool {
	return s == InvoicePaid || s == InvoiceUnpaid
}

// Invoice is a staff-entered sale created by a staff user. Amounts are
// fixed at creation; only Status changes afterwards. GrossAmount is value
// plus GST minus discount, and NetPayable is the gross rounded to whole
// units with RoundOff holding the difference.
type Invoice struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	InvoiceNumber   string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"invoice_number"`
	BusinessID      uint            `gorm:"not null;index" json:"business_id"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	CreatedByID     uint            `gorm:"not null" json:"created_by_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	PaymentMode     string          `gorm:"type:varchar(30)" json:"payment_mode"`
	Status          InvoiceStatus   `gorm:"type:varchar(10);not null" json:"status"`
	Note            string          `gorm:"type:text" json:"note"`
	TotalValue      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_value"`
	TotalGST        decimal.Decimal `gorm:"column:total_gst;type:decimal(14,2);not null" json:"total_gst"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	GrossAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"gross_amount"`
	NetPayable      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"net_payable"`
	RoundOff        decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"round_off"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

type InvoiceItem struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	InvoiceID  uint            `gorm:"not null;index" json:"invoice_id"`
	ItemID     uint            `gorm:"not null;index" json:"item_id"`
	ItemName   string          `gorm:"not null" json:"item_name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rate"`
	GSTPercent decimal.Decimal `gorm:"column:gst_percent;type:decimal(5,2);not null" json:"gst_percent"`
	TotalValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_value"`
	GSTAmount  decimal.Decimal `gorm:"column:gst_amount;type:decimal(14,2);not null" json:"gst_amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}
