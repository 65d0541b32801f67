package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/metrics"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type InvoiceLineInput struct {
	ItemID     uint
	Quantity   int
	Rate       *decimal.Decimal // defaults to the item price
	GSTPercent *decimal.Decimal // defaults to the item GST rate
}

type InvoiceInput struct {
	CustomerID      uint
	Lines           []InvoiceLineInput
	DiscountPercent decimal.Decimal
	PaymentMode     string
	Status          model.InvoiceStatus
	Note            string
}

// InvoiceTotals are the derived amounts of an invoice.
type InvoiceTotals struct {
	TotalValue     decimal.Decimal
	TotalGST       decimal.Decimal
	DiscountAmount decimal.Decimal
	GrossAmount    decimal.Decimal
	NetPayable     decimal.Decimal
	RoundOff       decimal.Decimal
}

type InvoiceService interface {
	Create(principal model.StaffPrincipal, input InvoiceInput) (*model.Invoice, error)
	List(businessID uint, filter repository.InvoiceFilter) ([]model.Invoice, int64, error)
	Get(businessID uint, invoiceNumber string) (*model.Invoice, error)
	UpdateStatus(businessID uint, invoiceNumber string, status model.InvoiceStatus) (*model.Invoice, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	itemRepo     repository.ItemRepository
	customerRepo repository.CustomerRepository
	sequenceRepo repository.SequenceRepository
	db           *gorm.DB
	now          func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	itemRepo repository.ItemRepository,
	customerRepo repository.CustomerRepository,
	sequenceRepo repository.SequenceRepository,
	db *gorm.DB,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		itemRepo:     itemRepo,
		customerRepo: customerRepo,
		sequenceRepo: sequenceRepo,
		db:           db,
		now:          time.Now,
	}
}

// Create records a counter sale. Stock is checked and decremented in the
// same transaction that allocates the invoice number.
func (s *invoiceService) Create(principal model.StaffPrincipal, input InvoiceInput) (*model.Invoice, error) {
	businessID := principal.BusinessID
	logger.Info("Creating invoice", map[string]interface{}{
		"business_id": businessID,
		"customer_id": input.CustomerID,
		"lines":       len(input.Lines),
	})

	if err := validateInvoiceInput(&input); err != nil {
		return nil, err
	}

	var (
		invoice *model.Invoice
		err     error
	)
	for attempt := 1; attempt <= maxCheckoutAttempts; attempt++ {
		invoice, err = s.createOnce(principal, input)
		if err == nil || !repository.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	metrics.RecordInvoice()
	logger.Info("Invoice created", map[string]interface{}{
		"business_id":    businessID,
		"invoice_number": invoice.InvoiceNumber,
		"net_payable":    invoice.NetPayable.String(),
	})
	return invoice, nil
}

func (s *invoiceService) createOnce(principal model.StaffPrincipal, input InvoiceInput) (*model.Invoice, error) {
	businessID := principal.BusinessID
	var invoice *model.Invoice

	err := s.db.Transaction(func(tx *gorm.DB) error {
		itemRepo := s.itemRepo.WithTx(tx)

		customer, err := s.customerRepo.WithTx(tx).FindByIDAndBusiness(input.CustomerID, businessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		ids := make([]uint, 0, len(input.Lines))
		for _, l := range input.Lines {
			ids = append(ids, l.ItemID)
		}
		locked, err := itemRepo.LockForUpdate(ids, businessID)
		if err != nil {
			return err
		}
		byID := make(map[uint]model.Item, len(locked))
		for _, item := range locked {
			byID[item.ID] = item
		}

		lines := append([]InvoiceLineInput(nil), input.Lines...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

		invoiceItems := make([]model.InvoiceItem, 0, len(lines))
		for _, l := range lines {
			item, ok := byID[l.ItemID]
			if !ok {
				return ErrItemNotFound
			}
			if item.Quantity < l.Quantity {
				return insufficientStock(item.ID, item.Name, l.Quantity, item.Quantity)
			}

			rate := item.Price
			if l.Rate != nil {
				rate = *l.Rate
			}
			gst := item.GSTPercent
			if l.GSTPercent != nil {
				gst = *l.GSTPercent
			}
			value := rate.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)

			invoiceItems = append(invoiceItems, model.InvoiceItem{
				ItemID:     item.ID,
				ItemName:   item.Name,
				Quantity:   l.Quantity,
				Rate:       rate,
				GSTPercent: gst,
				TotalValue: value,
				GSTAmount:  value.Mul(gst).Div(hundred).Round(2),
			})
		}

		totals := ComputeInvoiceTotals(invoiceItems, input.DiscountPercent)

		now := s.now()
		seq, err := s.sequenceRepo.WithTx(tx).Next(model.SequenceInvoice, businessID, now.Year())
		if err != nil {
			return err
		}

		invoice = &model.Invoice{
			InvoiceNumber:   FormatInvoiceNumber(businessID, now.Year(), seq),
			BusinessID:      businessID,
			CustomerID:      customer.ID,
			CreatedByID:     principal.UserID(),
			CustomerName:    customer.Name,
			CustomerPhone:   customer.Phone,
			PaymentMode:     input.PaymentMode,
			Status:          input.Status,
			Note:            input.Note,
			TotalValue:      totals.TotalValue,
			TotalGST:        totals.TotalGST,
			DiscountPercent: input.DiscountPercent,
			DiscountAmount:  totals.DiscountAmount,
			GrossAmount:     totals.GrossAmount,
			NetPayable:      totals.NetPayable,
			RoundOff:        totals.RoundOff,
			Items:           invoiceItems,
		}
		if err := s.invoiceRepo.WithTx(tx).Create(invoice); err != nil {
			return err
		}

		for _, ii := range invoiceItems {
			if err := itemRepo.AdjustQuantity(ii.ItemID, businessID, -ii.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockUnderflow) {
					return insufficientStock(ii.ItemID, ii.ItemName, ii.Quantity, byID[ii.ItemID].Quantity)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) List(businessID uint, filter repository.InvoiceFilter) ([]model.Invoice, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, NewValidationError("status", "status must be Paid or Unpaid")
	}
	return s.invoiceRepo.List(businessID, filter)
}

func (s *invoiceService) Get(businessID uint, invoiceNumber string) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByNumber(invoiceNumber, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) UpdateStatus(businessID uint, invoiceNumber string, status model.InvoiceStatus) (*model.Invoice, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "status must be Paid or Unpaid")
	}

	invoice, err := s.Get(businessID, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if invoice.Status == status {
		return invoice, nil
	}

	if err := s.invoiceRepo.UpdateStatus(invoice.ID, businessID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	invoice.Status = status
	return invoice, nil
}

// ComputeInvoiceTotals derives the invoice amounts from priced lines.
// The net payable is the gross rounded to whole units, half to even.
func ComputeInvoiceTotals(items []model.InvoiceItem, discountPercent decimal.Decimal) InvoiceTotals {
	totals := InvoiceTotals{TotalValue: decimal.Zero, TotalGST: decimal.Zero}
	for _, it := range items {
		totals.TotalValue = totals.TotalValue.Add(it.TotalValue)
		totals.TotalGST = totals.TotalGST.Add(it.GSTAmount)
	}

	totals.DiscountAmount = totals.TotalValue.Mul(discountPercent).Div(hundred).Round(2)
	totals.GrossAmount = totals.TotalValue.Add(totals.TotalGST).Sub(totals.DiscountAmount)
	totals.NetPayable = totals.GrossAmount.RoundBank(0)
	totals.RoundOff = totals.NetPayable.Sub(totals.GrossAmount)
	return totals
}

// FormatInvoiceNumber renders INV-{business}-{year}-{sequence}.
func FormatInvoiceNumber(businessID uint, year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%d-%06d", businessID, year, seq)
}

func validateInvoiceInput(input *InvoiceInput) error {
	if input.CustomerID == 0 {
		return NewValidationError("customer_id", "customer_id is required")
	}
	if len(input.Lines) == 0 {
		return NewValidationError("items", "at least one item is required")
	}

	seen := make(map[uint]bool, len(input.Lines))
	for _, l := range input.Lines {
		if l.Quantity <= 0 {
			return NewValidationError("quantity", "quantity must be greater than zero")
		}
		if seen[l.ItemID] {
			return NewValidationError("items", fmt.Sprintf("item %d appears more than once", l.ItemID))
		}
		seen[l.ItemID] = true
		if l.Rate != nil && l.Rate.IsNegative() {
			return NewValidationError("rate", "rate cannot be negative")
		}
		if l.GSTPercent != nil && (l.GSTPercent.IsNegative() || l.GSTPercent.GreaterThan(hundred)) {
			return NewValidationError("gst_percent", "gst_percent must be between 0 and 100")
		}
	}

	if input.DiscountPercent.IsNegative() || input.DiscountPercent.GreaterThan(hundred) {
		return NewValidationError("discount_percent", "discount_percent must be between 0 and 100")
	}

	if input.Status == "" {
		input.Status = model.InvoiceUnpaid
	}
	if !input.Status.Valid() {
		return NewValidationError("status", "status must be Paid or Unpaid")
	}
	input.PaymentMode = strings.TrimSpace(input.PaymentMode)
	if input.PaymentMode == "" {
		input.PaymentMode = "cash"
	}
	return nil
}
