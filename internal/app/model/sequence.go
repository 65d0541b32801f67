package model

type SequenceKind string

const (
	SequenceOrder   SequenceKind = "order"
	SequenceInvoice SequenceKind = "invoice"
)

// DocumentSequence is a per-business, per-year counter for document
// numbers. It is only advanced inside the transaction that uses the value.
type DocumentSequence struct {
	BusinessID uint         `gorm:"primaryKey;autoIncrement:false"`
	Kind       SequenceKind `gorm:"primaryKey;type:varchar(20)"`
	Year       int          `gorm:"primaryKey;autoIncrement:false"`
	LastValue  int64        `gorm:"not null;default:0"`
}

func (DocumentSequence) TableName() string {
	return "document_sequences"
}
