package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	BusinessID uint
	CustomerID uint // zero for all customers
	Status     model.OrderStatus
	Search     string // order number or customer name
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	FindByNumber(number string, businessID uint) (*model.Order, error)
	FindByNumberForCustomer(number string, businessID, customerID uint) (*model.Order, error)
	LockByNumber(number string, businessID uint) (*model.Order, error)
	List(filter OrderFilter) ([]model.Order, int64, error)
	UpdateIfStatus(id uint, from []model.OrderStatus, updates map[string]interface{}) (bool, error)
	CountByStatus(businessID uint) (map[model.OrderStatus]int64, error)
	Revenue(businessID uint, since *time.Time) (decimal.Decimal, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

// Create inserts the order and its lines.
func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_number": order.OrderNumber,
		"business_id":  order.BusinessID,
		"customer_id":  order.CustomerID,
		"items":        len(order.OrderItems),
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_number": order.OrderNumber,
			"business_id":  order.BusinessID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) FindByNumber(number string, businessID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("OrderItems").
		Where("order_number = ? AND business_id = ?", number, businessID).
		First(&order).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find order", err, map[string]interface{}{
				"order_number": number,
				"business_id":  businessID,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByNumberForCustomer(number string, businessID, customerID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("OrderItems").
		Where("order_number = ? AND business_id = ? AND customer_id = ?", number, businessID, customerID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByNumber loads the order with its lines and row-locks the order.
func (r *orderRepository) LockByNumber(number string, businessID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number = ? AND business_id = ?", number, businessID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.Where("order_id = ?", order.ID).Order("item_id").Find(&order.OrderItems).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Listing orders from database", map[string]interface{}{
		"business_id": filter.BusinessID,
		"customer_id": filter.CustomerID,
		"status":      filter.Status,
		"search":      filter.Search,
	})

	query := r.db.Model(&model.Order{}).Where("business_id = ?", filter.BusinessID)
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(order_number LIKE ? OR customer_name LIKE ?)", like, like)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err, map[string]interface{}{
			"business_id": filter.BusinessID,
		})
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Preload("OrderItems").Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders", err, map[string]interface{}{
			"business_id": filter.BusinessID,
		})
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateIfStatus applies updates only while the order is still in one of
// the from states. It reports whether the row changed.
func (r *orderRepository) UpdateIfStatus(id uint, from []model.OrderStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&model.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update order", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) CountByStatus(businessID uint) (map[model.OrderStatus]int64, error) {
	var rows []struct {
		Status model.OrderStatus
		Count  int64
	}
	err := r.db.Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Where("business_id = ?", businessID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Revenue sums the totals of orders that were not cancelled.
func (r *orderRepository) Revenue(businessID uint, since *time.Time) (decimal.Decimal, error) {
	query := r.db.Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("business_id = ? AND status <> ?", businessID, model.OrderStatusCancelled)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var total decimal.Decimal
	if err := query.Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
