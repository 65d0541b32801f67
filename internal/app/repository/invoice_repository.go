package repository

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

type InvoiceFilter struct {
	Status     model.InvoiceStatus
	CustomerID uint
	Search     string
	Limit      int
	Offset     int
}

type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository
	Create(invoice *model.Invoice) error
	FindByNumber(number string, businessID uint) (*model.Invoice, error)
	List(businessID uint, filter InvoiceFilter) ([]model.Invoice, int64, error)
	UpdateStatus(id, businessID uint, status model.InvoiceStatus) error
	SumNetPayable(businessID uint, status model.InvoiceStatus) (decimal.Decimal, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: tx}
}

func (r *invoiceRepository) Create(invoice *model.Invoice) error {
	logger.Debug("Creating invoice in database", map[string]interface{}{
		"invoice_number": invoice.InvoiceNumber,
		"business_id":    invoice.BusinessID,
		"items":          len(invoice.Items),
	})

	if err := r.db.Create(invoice).Error; err != nil {
		logger.Error("Failed to create invoice", err, map[string]interface{}{
			"invoice_number": invoice.InvoiceNumber,
		})
		return err
	}
	return nil
}

func (r *invoiceRepository) FindByNumber(number string, businessID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.Preload("Items").
		Where("invoice_number = ? AND business_id = ?", number, businessID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(businessID uint, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	query := r.db.Model(&model.Invoice{}).Where("business_id = ?", businessID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(invoice_number LIKE ? OR customer_name LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count invoices", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var invoices []model.Invoice
	if err := query.Preload("Items").Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		logger.Error("Failed to list invoices", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *invoiceRepository) UpdateStatus(id, businessID uint, status model.InvoiceStatus) error {
	result := r.db.Model(&model.Invoice{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) SumNetPayable(businessID uint, status model.InvoiceStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&model.Invoice{}).
		Select("COALESCE(SUM(net_payable), 0)").
		Where("business_id = ? AND status = ?", businessID, status).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
