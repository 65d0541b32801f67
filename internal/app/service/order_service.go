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
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/internal/websocket"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

// maxCheckoutAttempts bounds retries of the whole checkout unit after a
// unique violation on the order number.
const maxCheckoutAttempts = 3

type CheckoutInput struct {
	PaymentMode     model.PaymentMode
	ShippingAddress string // defaults to the customer's saved address
	Notes           string
}

type PreviewLine struct {
	ItemID     uint            `json:"item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Available  int             `json:"available"`
	Sufficient bool            `json:"sufficient"`
}

type CheckoutPreview struct {
	Lines       []PreviewLine   `json:"items"`
	Total       decimal.Decimal `json:"total"`
	CanCheckout bool            `json:"can_checkout"`
}

// StatusUpdate is a staff change to an order; at least one field is set.
type StatusUpdate struct {
	Status        *model.OrderStatus
	PaymentStatus *model.PaymentStatus
}

type OrderService interface {
	Preview(principal model.CustomerPrincipal) (*CheckoutPreview, error)
	Checkout(principal model.CustomerPrincipal, input CheckoutInput) (*model.Order, error)
	ListForCustomer(principal model.CustomerPrincipal, filter repository.OrderFilter) ([]model.Order, int64, error)
	GetForCustomer(principal model.CustomerPrincipal, orderNumber string) (*model.Order, error)
	Cancel(principal model.CustomerPrincipal, orderNumber string) (*model.Order, error)
	ListForBusiness(businessID uint, filter repository.OrderFilter) ([]model.Order, int64, error)
	GetForBusiness(businessID uint, orderNumber string) (*model.Order, error)
	UpdateStatus(businessID uint, orderNumber string, update StatusUpdate) (*model.Order, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	itemRepo     repository.ItemRepository
	customerRepo repository.CustomerRepository
	sequenceRepo repository.SequenceRepository
	db           *gorm.DB
	notifier     notify.Notifier
	publisher    OrderEventPublisher
	now          func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	itemRepo repository.ItemRepository,
	customerRepo repository.CustomerRepository,
	sequenceRepo repository.SequenceRepository,
	db *gorm.DB,
	deps Dependencies,
) OrderService {
	deps = deps.withDefaults()
	return &orderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		itemRepo:     itemRepo,
		customerRepo: customerRepo,
		sequenceRepo: sequenceRepo,
		db:           db,
		notifier:     deps.Notifier,
		publisher:    deps.Publisher,
		now:          time.Now,
	}
}

// Preview prices the cart exactly like checkout would, without writing.
func (s *orderService) Preview(principal model.CustomerPrincipal) (*CheckoutPreview, error) {
	cart, err := s.cartRepo.GetOrCreate(principal.CustomerID, principal.BusinessID)
	if err != nil {
		return nil, err
	}
	lines, err := s.cartRepo.ListItems(cart.ID)
	if err != nil {
		return nil, err
	}

	preview := &CheckoutPreview{Lines: make([]PreviewLine, 0, len(lines)), Total: decimal.Zero, CanCheckout: len(lines) > 0}
	for _, line := range lines {
		available := line.Item.Quantity
		if line.Item.DeletedAt.Valid || line.Item.Hidden || line.Item.BusinessID != principal.BusinessID {
			available = 0
		}
		lineTotal := line.Item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sufficient := available >= line.Quantity

		preview.Lines = append(preview.Lines, PreviewLine{
			ItemID:     line.ItemID,
			Name:       line.Item.Name,
			UnitPrice:  line.Item.Price,
			Quantity:   line.Quantity,
			LineTotal:  lineTotal,
			Available:  available,
			Sufficient: sufficient,
		})
		preview.Total = preview.Total.Add(lineTotal)
		if !sufficient {
			preview.CanCheckout = false
		}
	}
	return preview, nil
}

// Checkout converts the cart into an order in one transaction. Either the
// order exists, stock is decremented and the cart is empty, or none of it.
func (s *orderService) Checkout(principal model.CustomerPrincipal, input CheckoutInput) (*model.Order, error) {
	logger.Info("Checkout started", map[string]interface{}{
		"business_id":  principal.BusinessID,
		"customer_id":  principal.CustomerID,
		"payment_mode": input.PaymentMode,
	})

	if !input.PaymentMode.Valid() {
		return nil, NewValidationError("payment_mode", "payment_mode must be cash or pay_later")
	}

	var (
		order *model.Order
		err   error
	)
	for attempt := 1; attempt <= maxCheckoutAttempts; attempt++ {
		order, err = s.checkoutOnce(principal, input)
		if err == nil || !repository.IsUniqueViolation(err) {
			break
		}
		metrics.RecordCheckoutRetry()
		logger.Warn("Checkout hit a unique violation, retrying", map[string]interface{}{
			"business_id": principal.BusinessID,
			"attempt":     attempt,
		})
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			metrics.RecordCheckout(metrics.CheckoutEmptyCart)
		case errors.Is(err, ErrInsufficientStock):
			metrics.RecordCheckout(metrics.CheckoutInsufficient)
		case repository.IsUniqueViolation(err):
			metrics.RecordCheckout(metrics.CheckoutConflict)
			logger.Error("Checkout failed after retries", err, map[string]interface{}{
				"business_id": principal.BusinessID,
			})
			return nil, ErrConflict
		default:
			metrics.RecordCheckout(metrics.CheckoutError)
		}
		return nil, err
	}

	metrics.RecordCheckout(metrics.CheckoutSuccess)
	s.publisher.PublishOrder(websocket.EventOrderCreated, order)
	notify.Dispatch(s.notifier, orderMessage(notify.KindOrderConfirmation, order))

	logger.Info("Checkout completed", map[string]interface{}{
		"business_id":  order.BusinessID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
	})
	return order, nil
}

func (s *orderService) checkoutOnce(principal model.CustomerPrincipal, input CheckoutInput) (*model.Order, error) {
	var order *model.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		itemRepo := s.itemRepo.WithTx(tx)

		customer, err := s.customerRepo.WithTx(tx).FindByIDAndBusiness(principal.CustomerID, principal.BusinessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		cart, err := cartRepo.FindForUpdate(principal.CustomerID, principal.BusinessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		lines, err := cartRepo.ListItems(cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uint, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ItemID)
		}

		locked, err := itemRepo.LockForUpdate(ids, principal.BusinessID)
		if err != nil {
			return err
		}
		byID := make(map[uint]model.Item, len(locked))
		for _, item := range locked {
			byID[item.ID] = item
		}

		// walk lines in item id order so the first shortage reported is stable
		sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(lines))
		for _, line := range lines {
			item, ok := byID[line.ItemID]
			if !ok {
				return insufficientStock(line.ItemID, line.Item.Name, line.Quantity, 0)
			}
			// hidden items stay in carts but cannot be bought from the storefront
			available := item.Quantity
			if item.Hidden {
				available = 0
			}
			if available < line.Quantity {
				logger.Warn("Checkout rejected: insufficient stock", map[string]interface{}{
					"item_id":   item.ID,
					"requested": line.Quantity,
					"available": available,
					"hidden":    item.Hidden,
				})
				return insufficientStock(item.ID, item.Name, line.Quantity, available)
			}

			lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			orderItems = append(orderItems, model.OrderItem{
				ItemID:    item.ID,
				ItemName:  item.Name,
				UnitPrice: item.Price,
				Quantity:  line.Quantity,
				LineTotal: lineTotal,
			})
		}

		now := s.now()
		seq, err := s.sequenceRepo.WithTx(tx).Next(model.SequenceOrder, principal.BusinessID, now.Year())
		if err != nil {
			return err
		}

		shipping := strings.TrimSpace(input.ShippingAddress)
		if shipping == "" {
			shipping = formatAddress(customer)
		}

		order = &model.Order{
			OrderNumber:     FormatOrderNumber(principal.BusinessID, now.Year(), seq),
			BusinessID:      principal.BusinessID,
			CustomerID:      customer.ID,
			Status:          input.PaymentMode.InitialStatus(),
			PaymentStatus:   model.PaymentStatusUnpaid,
			PaymentMode:     input.PaymentMode,
			TotalAmount:     total,
			CustomerName:    customer.Name,
			CustomerEmail:   customer.Email,
			CustomerPhone:   customer.Phone,
			ShippingAddress: shipping,
			Notes:           input.Notes,
			OrderItems:      orderItems,
		}
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}

		for _, oi := range orderItems {
			if err := itemRepo.AdjustQuantity(oi.ItemID, principal.BusinessID, -oi.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockUnderflow) {
					return insufficientStock(oi.ItemID, oi.ItemName, oi.Quantity, byID[oi.ItemID].Quantity)
				}
				return err
			}
		}

		return cartRepo.Clear(cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListForCustomer(principal model.CustomerPrincipal, filter repository.OrderFilter) ([]model.Order, int64, error) {
	filter.BusinessID = principal.BusinessID
	filter.CustomerID = principal.CustomerID
	return s.orderRepo.List(filter)
}

func (s *orderService) GetForCustomer(principal model.CustomerPrincipal, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByNumberForCustomer(orderNumber, principal.BusinessID, principal.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// Cancel is allowed only while the order is Pending. Stock is restored
// exactly once: the status flip is conditional on Pending.
func (s *orderService) Cancel(principal model.CustomerPrincipal, orderNumber string) (*model.Order, error) {
	logger.Info("Customer cancelling order", map[string]interface{}{
		"business_id":  principal.BusinessID,
		"customer_id":  principal.CustomerID,
		"order_number": orderNumber,
	})

	var order *model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.WithTx(tx).LockByNumber(orderNumber, principal.BusinessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.CustomerID != principal.CustomerID {
			return ErrOrderNotFound
		}
		if order.Status != model.OrderStatusPending {
			return ErrInvalidTransition
		}
		return s.cancelLocked(tx, order, []model.OrderStatus{model.OrderStatusPending})
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Warn("Cancel rejected", map[string]interface{}{
				"order_number": orderNumber,
			})
		}
		return nil, err
	}

	s.afterCancel(order)
	return order, nil
}

func (s *orderService) ListForBusiness(businessID uint, filter repository.OrderFilter) ([]model.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, NewValidationError("status", "unknown order status")
	}
	filter.BusinessID = businessID
	return s.orderRepo.List(filter)
}

func (s *orderService) GetForBusiness(businessID uint, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByNumber(orderNumber, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// UpdateStatus is the staff transition. Moving to Cancelled restores
// stock like a customer cancel; a cancelled order cannot be revived.
func (s *orderService) UpdateStatus(businessID uint, orderNumber string, update StatusUpdate) (*model.Order, error) {
	if update.Status == nil && update.PaymentStatus == nil {
		return nil, NewValidationError("status", "status or payment_status is required")
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, NewValidationError("status", "unknown order status")
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return nil, NewValidationError("payment_status", "unknown payment status")
	}

	var (
		order     *model.Order
		cancelled bool
		changed   bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		var err error
		order, err = orderRepo.LockByNumber(orderNumber, businessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		current := order.Status

		if update.Status != nil && *update.Status != current {
			target := *update.Status
			if current == model.OrderStatusCancelled {
				return ErrInvalidTransition
			}
			if target == model.OrderStatusCancelled {
				if err := s.cancelLocked(tx, order, []model.OrderStatus{current}); err != nil {
					return err
				}
				cancelled = true
			} else {
				ok, err := orderRepo.UpdateIfStatus(order.ID, []model.OrderStatus{current}, map[string]interface{}{"status": target})
				if err != nil {
					return err
				}
				if !ok {
					return ErrConflict
				}
				order.Status = target
			}
			changed = true
		}

		if update.PaymentStatus != nil && *update.PaymentStatus != order.PaymentStatus {
			ok, err := orderRepo.UpdateIfStatus(order.ID, []model.OrderStatus{order.Status}, map[string]interface{}{"payment_status": *update.PaymentStatus})
			if err != nil {
				return err
			}
			if !ok {
				return ErrConflict
			}
			order.PaymentStatus = *update.PaymentStatus
			changed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.afterCancel(order)
	} else if changed {
		metrics.RecordOrderTransition(string(order.Status))
		s.publisher.PublishOrder(websocket.EventOrderStatusChanged, order)
	}

	logger.Info("Order updated by staff", map[string]interface{}{
		"business_id":    businessID,
		"order_number":   orderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
	return order, nil
}

// cancelLocked restores stock for a locked order and flips it to
// Cancelled while it is still in one of from.
func (s *orderService) cancelLocked(tx *gorm.DB, order *model.Order, from []model.OrderStatus) error {
	itemRepo := s.itemRepo.WithTx(tx)

	ids := make([]uint, 0, len(order.OrderItems))
	for _, oi := range order.OrderItems {
		ids = append(ids, oi.ItemID)
	}
	if _, err := itemRepo.LockForUpdate(ids, order.BusinessID); err != nil {
		return err
	}

	items := append([]model.OrderItem(nil), order.OrderItems...)
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	for _, oi := range items {
		if err := itemRepo.AdjustQuantity(oi.ItemID, order.BusinessID, oi.Quantity); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Cancelled order references a missing item", map[string]interface{}{
					"order_number": order.OrderNumber,
					"item_id":      oi.ItemID,
				})
				continue
			}
			return err
		}
	}

	ok, err := s.orderRepo.WithTx(tx).UpdateIfStatus(order.ID, from, map[string]interface{}{"status": model.OrderStatusCancelled})
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	order.Status = model.OrderStatusCancelled
	return nil
}

func (s *orderService) afterCancel(order *model.Order) {
	metrics.RecordOrderTransition(string(model.OrderStatusCancelled))
	s.publisher.PublishOrder(websocket.EventOrderCancelled, order)
	notify.Dispatch(s.notifier, orderMessage(notify.KindOrderCancelled, order))

	logger.Info("Order cancelled", map[string]interface{}{
		"business_id":  order.BusinessID,
		"order_number": order.OrderNumber,
	})
}

// FormatOrderNumber renders ORD-{business}-{year}-{sequence}.
func FormatOrderNumber(businessID uint, year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%d-%06d", businessID, year, seq)
}

func formatAddress(c *model.Customer) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Address, c.City, c.State, c.Pincode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func orderMessage(kind notify.Kind, order *model.Order) notify.Message {
	subject := "Order " + order.OrderNumber + " received"
	if kind == notify.KindOrderCancelled {
		subject = "Order " + order.OrderNumber + " cancelled"
	}
	return notify.Message{
		Kind:       kind,
		BusinessID: order.BusinessID,
		To:         order.CustomerEmail,
		Subject:    subject,
		Body:       fmt.Sprintf("Order %s, total %s, status %s.", order.OrderNumber, order.TotalAmount.StringFixed(2), order.Status),
		Data: map[string]string{
			"order_number": order.OrderNumber,
			"status":       string(order.Status),
			"total":        order.TotalAmount.StringFixed(2),
		},
	}
}
