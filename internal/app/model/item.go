package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalog entry. Quantity is the authoritative stock counter and
// is only ever changed through conditional updates that keep it >= 0.
type Item struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	BusinessID  uint            `gorm:"not null;index" json:"business_id"`
	Name        string          `gorm:"type:varchar(200);not null" json:"name"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Unit        string          `gorm:"type:varchar(20)" json:"unit"`                 // pcs, kg, box ...
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`           // on hand
	MinStock    int             `gorm:"not null;default:0" json:"min_stock"`          // low-stock threshold
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`     // MRP / selling price
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost_price"`
	GSTPercent  decimal.Decimal `gorm:"column:gst_percent;type:decimal(5,2)" json:"gst_percent"`
	ImageURL    string          `gorm:"type:text" json:"image_url"`
	Description string          `gorm:"type:text" json:"description"`
	Hidden      bool            `gorm:"not null;default:false" json:"hidden"` // excluded from the public catalog
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Item) TableName() string {
	return "items"
}

// IsLowStock reports whether the item is at or under its threshold.
func (i Item) IsLowStock() bool {
	return i.Quantity <= i.MinStock
}
