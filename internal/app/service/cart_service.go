package service

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

// Cart line actions.
const (
	CartActionIncrease = "increase"
	CartActionDecrease = "decrease"
)

// CartLine is priced from the live catalog at read time.
type CartLine struct {
	ItemID    uint            `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available int             `json:"available"`
	InStock   bool            `json:"in_stock"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type CartView struct {
	CartID    uint            `json:"cart_id"`
	Lines     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartService is a soft reservation: nothing is held until checkout.
type CartService interface {
	View(principal model.CustomerPrincipal) (*CartView, error)
	AddItem(principal model.CustomerPrincipal, itemID uint, quantity int) (*CartView, error)
	UpdateItem(principal model.CustomerPrincipal, itemID uint, action string) (*CartView, error)
	RemoveItem(principal model.CustomerPrincipal, itemID uint) (*CartView, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	itemRepo repository.ItemRepository
	db       *gorm.DB
}

func NewCartService(cartRepo repository.CartRepository, itemRepo repository.ItemRepository, db *gorm.DB) CartService {
	return &cartService{
		cartRepo: cartRepo,
		itemRepo: itemRepo,
		db:       db,
	}
}

func (s *cartService) View(principal model.CustomerPrincipal) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreate(principal.CustomerID, principal.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.render(s.cartRepo, cart)
}

func (s *cartService) AddItem(principal model.CustomerPrincipal, itemID uint, quantity int) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"business_id": principal.BusinessID,
		"customer_id": principal.CustomerID,
		"item_id":     itemID,
		"quantity":    quantity,
	})

	if quantity <= 0 {
		return nil, NewValidationError("quantity", "quantity must be greater than zero")
	}

	var view *CartView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		item, err := s.visibleItem(s.itemRepo.WithTx(tx), itemID, principal.BusinessID)
		if err != nil {
			return err
		}

		cart, err := cartRepo.GetOrCreate(principal.CustomerID, principal.BusinessID)
		if err != nil {
			return err
		}

		existing := 0
		if line, err := cartRepo.FindLine(cart.ID, itemID); err == nil {
			existing = line.Quantity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing+quantity > item.Quantity {
			logger.Warn("Add to cart rejected: insufficient stock", map[string]interface{}{
				"item_id":   itemID,
				"requested": existing + quantity,
				"available": item.Quantity,
			})
			return insufficientStock(item.ID, item.Name, existing+quantity, item.Quantity)
		}

		if _, err := cartRepo.UpsertLine(cart.ID, itemID, quantity); err != nil {
			return err
		}

		view, err = s.render(cartRepo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateItem increases (re-checking live stock) or decreases a line by
// one. Decreasing the last unit removes the line.
func (s *cartService) UpdateItem(principal model.CustomerPrincipal, itemID uint, action string) (*CartView, error) {
	if action != CartActionIncrease && action != CartActionDecrease {
		return nil, NewValidationError("action", "action must be increase or decrease")
	}

	var view *CartView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		cart, err := cartRepo.GetOrCreate(principal.CustomerID, principal.BusinessID)
		if err != nil {
			return err
		}

		line, err := cartRepo.FindLine(cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartItemNotFound
			}
			return err
		}

		switch action {
		case CartActionIncrease:
			item, err := s.visibleItem(s.itemRepo.WithTx(tx), itemID, principal.BusinessID)
			if err != nil {
				return err
			}
			if line.Quantity+1 > item.Quantity {
				return insufficientStock(item.ID, item.Name, line.Quantity+1, item.Quantity)
			}
			if err := cartRepo.SetLineQuantity(line.ID, line.Quantity+1); err != nil {
				return err
			}
		case CartActionDecrease:
			if line.Quantity <= 1 {
				if err := cartRepo.DeleteLine(cart.ID, itemID); err != nil {
					return err
				}
			} else if err := cartRepo.SetLineQuantity(line.ID, line.Quantity-1); err != nil {
				return err
			}
		}

		view, err = s.render(cartRepo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *cartService) RemoveItem(principal model.CustomerPrincipal, itemID uint) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreate(principal.CustomerID, principal.BusinessID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteLine(cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return s.render(s.cartRepo, cart)
}

func (s *cartService) visibleItem(itemRepo repository.ItemRepository, itemID, businessID uint) (*model.Item, error) {
	item, err := itemRepo.FindByIDAndBusiness(itemID, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.Hidden {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *cartService) render(cartRepo repository.CartRepository, cart *model.Cart) (*CartView, error) {
	lines, err := cartRepo.ListItems(cart.ID)
	if err != nil {
		return nil, err
	}

	view := &CartView{CartID: cart.ID, Lines: make([]CartLine, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		available := line.Item.Quantity
		if line.Item.DeletedAt.Valid || line.Item.Hidden {
			available = 0
		}
		lineTotal := line.Item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))

		view.Lines = append(view.Lines, CartLine{
			ItemID:    line.ItemID,
			Name:      line.Item.Name,
			UnitPrice: line.Item.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
			Available: available,
			InStock:   available >= line.Quantity,
			ImageURL:  line.Item.ImageURL,
		})
		view.ItemCount += line.Quantity
		view.Total = view.Total.Add(lineTotal)
	}
	return view, nil
}
