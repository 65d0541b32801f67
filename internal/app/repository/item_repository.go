package repository

import (
	"errors"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockUnderflow means a quantity adjustment would take stock below zero.
var ErrStockUnderflow = errors.New("stock adjustment would go negative")

type ItemFilter struct {
	Search      string
	Category    string
	VisibleOnly bool
	LowStock    bool
	Limit       int
	Offset      int
}

type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	Create(item *model.Item) error
	BulkCreate(items []model.Item, batchSize int) error
	FindByIDAndBusiness(id, businessID uint) (*model.Item, error)
	List(businessID uint, filter ItemFilter) ([]model.Item, int64, error)
	Update(item *model.Item) error
	Delete(id, businessID uint) error
	LockForUpdate(ids []uint, businessID uint) ([]model.Item, error)
	AdjustQuantity(id, businessID uint, delta int) error
	CountByBusiness(businessID uint) (int64, error)
	CountLowStock(businessID uint) (int64, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository {
	return &itemRepository{db: tx}
}

func (r *itemRepository) Create(item *model.Item) error {
	logger.Debug("Creating item in database", map[string]interface{}{
		"business_id": item.BusinessID,
		"name":        item.Name,
	})

	if err := r.db.Create(item).Error; err != nil {
		logger.Error("Failed to create item in database", err, map[string]interface{}{
			"business_id": item.BusinessID,
			"name":        item.Name,
		})
		return err
	}

	logger.Debug("Item created in database", map[string]interface{}{
		"item_id": item.ID,
	})
	return nil
}

func (r *itemRepository) BulkCreate(items []model.Item, batchSize int) error {
	logger.Info("Bulk creating items", map[string]interface{}{
		"count":      len(items),
		"batch_size": batchSize,
	})

	if err := r.db.CreateInBatches(items, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create items", err, map[string]interface{}{
			"count": len(items),
		})
		return err
	}
	return nil
}

func (r *itemRepository) FindByIDAndBusiness(id, businessID uint) (*model.Item, error) {
	logger.Debug("Finding item by ID in database", map[string]interface{}{
		"item_id":     id,
		"business_id": businessID,
	})

	var item model.Item
	err := r.db.Where("id = ? AND business_id = ?", id, businessID).First(&item).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find item", err, map[string]interface{}{
				"item_id":     id,
				"business_id": businessID,
			})
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(businessID uint, filter ItemFilter) ([]model.Item, int64, error) {
	logger.Debug("Listing items from database", map[string]interface{}{
		"business_id": businessID,
		"search":      filter.Search,
		"category":    filter.Category,
		"visible":     filter.VisibleOnly,
	})

	query := r.db.Model(&model.Item{}).Where("business_id = ?", businessID)
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.VisibleOnly {
		query = query.Where("hidden = ?", false)
	}
	if filter.LowStock {
		query = query.Where("quantity <= min_stock")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count items", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var items []model.Item
	if err := query.Order("name").Find(&items).Error; err != nil {
		logger.Error("Failed to list items", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}

	logger.Debug("Items listed from database", map[string]interface{}{
		"business_id": businessID,
		"count":       len(items),
		"total":       total,
	})
	return items, total, nil
}

// Update writes catalog attributes. Quantity is left to AdjustQuantity so a
// catalog edit cannot overwrite a concurrent checkout's decrement.
func (r *itemRepository) Update(item *model.Item) error {
	err := r.db.Model(&model.Item{}).
		Where("id = ? AND business_id = ?", item.ID, item.BusinessID).
		Updates(map[string]interface{}{
			"name":        item.Name,
			"category":    item.Category,
			"unit":        item.Unit,
			"min_stock":   item.MinStock,
			"price":       item.Price,
			"cost_price":  item.CostPrice,
			"gst_percent": item.GSTPercent,
			"image_url":   item.ImageURL,
			"description": item.Description,
			"hidden":      item.Hidden,
		}).Error
	if err != nil {
		logger.Error("Failed to update item", err, map[string]interface{}{
			"item_id": item.ID,
		})
	}
	return err
}

func (r *itemRepository) Delete(id, businessID uint) error {
	result := r.db.Where("id = ? AND business_id = ?", id, businessID).Delete(&model.Item{})
	if result.Error != nil {
		logger.Error("Failed to delete item", result.Error, map[string]interface{}{
			"item_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockForUpdate loads and row-locks the given items in ascending id order.
// Callers touching several items always lock in the same order, so two
// overlapping checkouts cannot deadlock.
func (r *itemRepository) LockForUpdate(ids []uint, businessID uint) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []model.Item
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND business_id = ?", ids, businessID).
		Order("id").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to lock items", err, map[string]interface{}{
			"item_ids":    ids,
			"business_id": businessID,
		})
		return nil, err
	}

	logger.Debug("Items locked for update", map[string]interface{}{
		"requested": len(ids),
		"locked":    len(items),
	})
	return items, nil
}

// AdjustQuantity applies delta in a single conditional statement. The row
// is untouched when the result would be negative.
func (r *itemRepository) AdjustQuantity(id, businessID uint, delta int) error {
	logger.Debug("Adjusting item quantity", map[string]interface{}{
		"item_id":     id,
		"business_id": businessID,
		"delta":       delta,
	})

	result := r.db.Unscoped().Model(&model.Item{}).
		Where("id = ? AND business_id = ? AND quantity + ? >= 0", id, businessID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		logger.Error("Failed to adjust item quantity", result.Error, map[string]interface{}{
			"item_id": id,
			"delta":   delta,
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Unscoped().Model(&model.Item{}).Where("id = ? AND business_id = ?", id, businessID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStockUnderflow
	}
	return nil
}

func (r *itemRepository) CountByBusiness(businessID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Item{}).Where("business_id = ?", businessID).Count(&count).Error
	return count, err
}

func (r *itemRepository) CountLowStock(businessID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Item{}).Where("business_id = ? AND quantity <= min_stock", businessID).Count(&count).Error
	return count, err
}
