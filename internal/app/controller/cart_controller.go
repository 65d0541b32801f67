package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/service"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{cartService: cartService}
}

type AddToCartRequest struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Action string `json:"action" binding:"required,oneof=increase decrease"`
}

// GetCart returns the customer's cart priced from the live catalog
// GET /api/v1/store/:slug/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.View(principal)
	if err != nil {
		respondServiceError(c, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": view})
}

// AddToCart adds quantity of an item
// POST /api/v1/store/:slug/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := ctrl.cartService.AddItem(principal, req.ItemID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "add to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": view})
}

// UpdateCartItem steps a line up or down by one
// PUT /api/v1/store/:slug/cart/:item_id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := ctrl.cartService.UpdateItem(principal, itemID, req.Action)
	if err != nil {
		respondServiceError(c, err, "update cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": view})
}

// RemoveFromCart deletes a line
// DELETE /api/v1/store/:slug/cart/:item_id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}

	view, err := ctrl.cartService.RemoveItem(principal, itemID)
	if err != nil {
		respondServiceError(c, err, "remove from cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": view})
}
