package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

type ItemInput struct {
	Name        string
	Category    string
	Unit        string
	Quantity    int
	MinStock    int
	Price       decimal.Decimal
	CostPrice   decimal.Decimal
	GSTPercent  decimal.Decimal
	ImageURL    string
	Description string
	Hidden      bool
}

// UpdateItemInput changes catalog attributes. Stock moves only through
// AdjustStock, checkout and cancellation.
type UpdateItemInput struct {
	Name        *string
	Category    *string
	Unit        *string
	MinStock    *int
	Price       *decimal.Decimal
	CostPrice   *decimal.Decimal
	GSTPercent  *decimal.Decimal
	ImageURL    *string
	Description *string
	Hidden      *bool
}

type ItemService interface {
	Create(businessID uint, input ItemInput) (*model.Item, error)
	List(businessID uint, filter repository.ItemFilter) ([]model.Item, int64, error)
	ListPublic(businessID uint, filter repository.ItemFilter) ([]model.Item, int64, error)
	Get(businessID, itemID uint) (*model.Item, error)
	GetPublic(businessID, itemID uint) (*model.Item, error)
	Update(businessID, itemID uint, input UpdateItemInput) (*model.Item, error)
	Delete(businessID, itemID uint) error
	AdjustStock(businessID, itemID uint, delta int) (*model.Item, error)
	LowStock(businessID uint) ([]model.Item, error)
	Import(businessID uint, items []model.Item) (int, error)
}

type itemService struct {
	itemRepo repository.ItemRepository
}

func NewItemService(itemRepo repository.ItemRepository) ItemService {
	return &itemService{itemRepo: itemRepo}
}

func (s *itemService) Create(businessID uint, input ItemInput) (*model.Item, error) {
	item := &model.Item{
		BusinessID:  businessID,
		Name:        strings.TrimSpace(input.Name),
		Category:    strings.TrimSpace(input.Category),
		Unit:        strings.TrimSpace(input.Unit),
		Quantity:    input.Quantity,
		MinStock:    input.MinStock,
		Price:       input.Price,
		CostPrice:   input.CostPrice,
		GSTPercent:  input.GSTPercent,
		ImageURL:    input.ImageURL,
		Description: input.Description,
		Hidden:      input.Hidden,
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}

	if err := s.itemRepo.Create(item); err != nil {
		return nil, err
	}

	logger.Info("Item created", map[string]interface{}{
		"business_id": businessID,
		"item_id":     item.ID,
		"quantity":    item.Quantity,
	})
	return item, nil
}

func (s *itemService) List(businessID uint, filter repository.ItemFilter) ([]model.Item, int64, error) {
	return s.itemRepo.List(businessID, filter)
}

func (s *itemService) ListPublic(businessID uint, filter repository.ItemFilter) ([]model.Item, int64, error) {
	filter.VisibleOnly = true
	filter.LowStock = false
	return s.itemRepo.List(businessID, filter)
}

func (s *itemService) Get(businessID, itemID uint) (*model.Item, error) {
	item, err := s.itemRepo.FindByIDAndBusiness(itemID, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *itemService) GetPublic(businessID, itemID uint) (*model.Item, error) {
	item, err := s.Get(businessID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Hidden {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *itemService) Update(businessID, itemID uint, input UpdateItemInput) (*model.Item, error) {
	item, err := s.Get(businessID, itemID)
	if err != nil {
		return nil, err
	}

	assign(&item.Name, input.Name)
	assign(&item.Category, input.Category)
	assign(&item.Unit, input.Unit)
	assign(&item.ImageURL, input.ImageURL)
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.MinStock != nil {
		item.MinStock = *input.MinStock
	}
	if input.Price != nil {
		item.Price = *input.Price
	}
	if input.CostPrice != nil {
		item.CostPrice = *input.CostPrice
	}
	if input.GSTPercent != nil {
		item.GSTPercent = *input.GSTPercent
	}
	if input.Hidden != nil {
		item.Hidden = *input.Hidden
	}

	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.itemRepo.Update(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) Delete(businessID, itemID uint) error {
	if err := s.itemRepo.Delete(itemID, businessID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	logger.Info("Item deleted", map[string]interface{}{
		"business_id": businessID,
		"item_id":     itemID,
	})
	return nil
}

// AdjustStock applies a manual stock correction. The result may not go
// below zero.
func (s *itemService) AdjustStock(businessID, itemID uint, delta int) (*model.Item, error) {
	if delta == 0 {
		return nil, NewValidationError("delta", "delta must not be zero")
	}

	item, err := s.Get(businessID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.itemRepo.AdjustQuantity(itemID, businessID, delta); err != nil {
		switch {
		case errors.Is(err, repository.ErrStockUnderflow):
			return nil, insufficientStock(item.ID, item.Name, -delta, item.Quantity)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	logger.Info("Stock adjusted", map[string]interface{}{
		"business_id": businessID,
		"item_id":     itemID,
		"delta":       delta,
	})
	return s.Get(businessID, itemID)
}

func (s *itemService) LowStock(businessID uint) ([]model.Item, error) {
	items, _, err := s.itemRepo.List(businessID, repository.ItemFilter{LowStock: true})
	return items, err
}

// importBatchSize bounds a single multi-row INSERT during catalog import.
const importBatchSize = 500

// Import inserts a parsed catalog sheet in one transaction. Any invalid
// row rejects the whole sheet.
func (s *itemService) Import(businessID uint, items []model.Item) (int, error) {
	if len(items) == 0 {
		return 0, NewValidationError("file", "sheet contains no items")
	}
	for i := range items {
		items[i].ID = 0
		items[i].BusinessID = businessID
		items[i].Name = strings.TrimSpace(items[i].Name)
		if err := validateItem(&items[i]); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return 0, NewValidationError(verr.Field, fmt.Sprintf("row %d: %s", i+2, verr.Message))
			}
			return 0, err
		}
	}

	if err := s.itemRepo.BulkCreate(items, importBatchSize); err != nil {
		return 0, err
	}

	logger.Info("Catalog imported", map[string]interface{}{
		"business_id": businessID,
		"count":       len(items),
	})
	return len(items), nil
}

func validateItem(item *model.Item) error {
	if item.Name == "" {
		return NewValidationError("name", "name is required")
	}
	if item.Quantity < 0 {
		return NewValidationError("quantity", "quantity cannot be negative")
	}
	if item.MinStock < 0 {
		return NewValidationError("min_stock", "min_stock cannot be negative")
	}
	if item.Price.IsNegative() {
		return NewValidationError("price", "price cannot be negative")
	}
	if item.CostPrice.IsNegative() {
		return NewValidationError("cost_price", "cost_price cannot be negative")
	}
	if item.GSTPercent.IsNegative() || item.GSTPercent.GreaterThan(decimal.NewFromInt(100)) {
		return NewValidationError("gst_percent", "gst_percent must be between 0 and 100")
	}
	return nil
}
