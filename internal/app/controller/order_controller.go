package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/export"
	"github.com/storefront/commerce-backend/internal/middleware"
)

// maxExportRows bounds one order-list export.
const maxExportRows = 5000

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

type CheckoutRequest struct {
	PaymentMode     string `json:"payment_mode" binding:"required,oneof=cash pay_later"`
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

func orderFilter(c *gin.Context) (repository.OrderFilter, int, int, bool) {
	page, pageSize, offset := pagination(c)
	filter := repository.OrderFilter{
		Status: model.OrderStatus(strings.TrimSpace(c.Query("status"))),
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  pageSize,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidStatus, "unknown order status")
		return filter, 0, 0, false
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, param+" must be YYYY-MM-DD")
			return filter, 0, 0, false
		}
		if param == "to" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		*dst = &t
	}
	return filter, page, pageSize, true
}

// Preview prices the cart without writing anything
// GET /api/v1/store/:slug/checkout/preview
func (ctrl *OrderController) Preview(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	preview, err := ctrl.orderService.Preview(principal)
	if err != nil {
		respondServiceError(c, err, "checkout preview")
		return
	}

	c.JSON(http.StatusOK, gin.H{"preview": preview})
}

// Checkout converts the cart into an order
// POST /api/v1/store/:slug/checkout
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.orderService.Checkout(principal, service.CheckoutInput{
		PaymentMode:     model.PaymentMode(req.PaymentMode),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		log.Warn("Checkout failed", map[string]interface{}{
			"customer_id": principal.CustomerID,
			"error":       err.Error(),
		})
		respondServiceError(c, err, "create order")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
	})

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListMyOrders is the customer's order history on this store
// GET /api/v1/store/:slug/orders
func (ctrl *OrderController) ListMyOrders(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}
	filter, page, pageSize, ok := orderFilter(c)
	if !ok {
		return
	}

	orders, total, err := ctrl.orderService.ListForCustomer(principal, filter)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetMyOrder returns one of the customer's orders
// GET /api/v1/store/:slug/orders/:number
func (ctrl *OrderController) GetMyOrder(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetForCustomer(principal, c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelMyOrder cancels a pending order and returns its stock
// POST /api/v1/store/:slug/orders/:number/cancel
func (ctrl *OrderController) CancelMyOrder(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.Cancel(principal, c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrders is the staff order book
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	filter, page, pageSize, ok := orderFilter(c)
	if !ok {
		return
	}

	orders, total, err := ctrl.orderService.ListForBusiness(businessID, filter)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrder returns one order of the business with its items
// GET /api/v1/orders/:number
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetForBusiness(businessID, c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus changes fulfilment and/or payment status
// PUT /api/v1/orders/:number/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	var update service.StatusUpdate
	if req.Status != nil {
		status := model.OrderStatus(*req.Status)
		update.Status = &status
	}
	if req.PaymentStatus != nil {
		payment := model.PaymentStatus(*req.PaymentStatus)
		update.PaymentStatus = &payment
	}

	order, err := ctrl.orderService.UpdateStatus(businessID, c.Param("number"), update)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ExportOrders downloads the filtered order book as xlsx
// GET /api/v1/orders/export
func (ctrl *OrderController) ExportOrders(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	filter, _, _, ok := orderFilter(c)
	if !ok {
		return
	}
	filter.Limit = maxExportRows
	filter.Offset = 0

	orders, _, err := ctrl.orderService.ListForBusiness(businessID, filter)
	if err != nil {
		respondServiceError(c, err, "export orders")
		return
	}

	f, err := export.OrdersWorkbook(orders)
	if err != nil {
		respondServiceError(c, err, "export orders")
		return
	}
	defer f.Close()

	writeWorkbook(c, f, fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102")))
}
