package repository

import (
	"errors"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	GetOrCreate(customerID, businessID uint) (*model.Cart, error)
	Find(customerID, businessID uint) (*model.Cart, error)
	FindForUpdate(customerID, businessID uint) (*model.Cart, error)
	ListItems(cartID uint) ([]model.CartItem, error)
	FindLine(cartID, itemID uint) (*model.CartItem, error)
	UpsertLine(cartID, itemID uint, quantity int) (*model.CartItem, error)
	SetLineQuantity(lineID uint, quantity int) error
	DeleteLine(cartID, itemID uint) error
	Clear(cartID uint) error
	DeleteForCustomer(customerID, businessID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

// GetOrCreate returns the customer's cart in the business, creating it on
// first use. The insert ignores a conflicting row so a concurrent creator
// simply re-reads.
func (r *cartRepository) GetOrCreate(customerID, businessID uint) (*model.Cart, error) {
	cart, err := r.Find(customerID, businessID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &model.Cart{CustomerID: customerID, BusinessID: businessID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart", err, map[string]interface{}{
			"customer_id": customerID,
			"business_id": businessID,
		})
		return nil, err
	}
	if cart.ID == 0 {
		return r.Find(customerID, businessID)
	}

	logger.Debug("Cart created", map[string]interface{}{
		"cart_id":     cart.ID,
		"customer_id": customerID,
		"business_id": businessID,
	})
	return cart, nil
}

func (r *cartRepository) Find(customerID, businessID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Where("customer_id = ? AND business_id = ?", customerID, businessID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindForUpdate(customerID, businessID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND business_id = ?", customerID, businessID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListItems returns the cart lines with their catalog item. Soft-deleted
// items are loaded too so callers can report them by name.
func (r *cartRepository) ListItems(cartID uint) ([]model.CartItem, error) {
	var lines []model.CartItem
	err := r.db.
		Preload("Item", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("cart_id = ?", cartID).
		Order("id").
		Find(&lines).Error
	if err != nil {
		logger.Error("Failed to list cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) FindLine(cartID, itemID uint) (*model.CartItem, error) {
	var line model.CartItem
	if err := r.db.Where("cart_id = ? AND item_id = ?", cartID, itemID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// UpsertLine adds quantity to the line for itemID, creating it if absent.
func (r *cartRepository) UpsertLine(cartID, itemID uint, quantity int) (*model.CartItem, error) {
	line, err := r.FindLine(cartID, itemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if line != nil {
		line.Quantity += quantity
		if err := r.db.Model(line).Update("quantity", line.Quantity).Error; err != nil {
			logger.Error("Failed to update cart line", err, map[string]interface{}{
				"cart_id": cartID,
				"item_id": itemID,
			})
			return nil, err
		}
		return line, nil
	}

	line = &model.CartItem{CartID: cartID, ItemID: itemID, Quantity: quantity}
	if err := r.db.Create(line).Error; err != nil {
		logger.Error("Failed to create cart line", err, map[string]interface{}{
			"cart_id": cartID,
			"item_id": itemID,
		})
		return nil, err
	}
	return line, nil
}

func (r *cartRepository) SetLineQuantity(lineID uint, quantity int) error {
	return r.db.Model(&model.CartItem{}).Where("id = ?", lineID).Update("quantity", quantity).Error
}

func (r *cartRepository) DeleteLine(cartID, itemID uint) error {
	result := r.db.Where("cart_id = ? AND item_id = ?", cartID, itemID).Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Clear removes every line. The cart row is kept.
func (r *cartRepository) Clear(cartID uint) error {
	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteForCustomer(customerID, businessID uint) error {
	var ids []uint
	if err := r.db.Model(&model.Cart{}).
		Where("customer_id = ? AND business_id = ?", customerID, businessID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("cart_id IN ?", ids).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Cart{}).Error
}
