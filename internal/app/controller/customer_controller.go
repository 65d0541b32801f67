package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
)

// CustomerController is the staff-side customer book of one business
type CustomerController struct {
	customerService service.CustomerService
}

func NewCustomerController(customerService service.CustomerService) *CustomerController {
	return &CustomerController{customerService: customerService}
}

type CreateCustomerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"omitempty,min=8"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Pincode *string `json:"pincode"`
}

// List returns customers, optionally filtered by ?search=
// GET /api/v1/customers
func (ctrl *CustomerController) List(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	page, pageSize, offset := pagination(c)
	customers, total, err := ctrl.customerService.List(businessID, repository.CustomerFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  pageSize,
		Offset: offset,
	})
	if err != nil {
		respondServiceError(c, err, "list customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Create adds a customer
// POST /api/v1/customers
func (ctrl *CustomerController) Create(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := ctrl.customerService.Create(businessID, service.CustomerInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		Pincode:  req.Pincode,
	})
	if err != nil {
		respondServiceError(c, err, "create customer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// Get returns one customer
// GET /api/v1/customers/:id
func (ctrl *CustomerController) Get(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	customer, err := ctrl.customerService.Get(businessID, id)
	if err != nil {
		respondServiceError(c, err, "get customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// Update changes customer details
// PUT /api/v1/customers/:id
func (ctrl *CustomerController) Update(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := ctrl.customerService.Update(businessID, id, service.UpdateCustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
	})
	if err != nil {
		respondServiceError(c, err, "update customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// Delete removes a customer
// DELETE /api/v1/customers/:id
func (ctrl *CustomerController) Delete(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.customerService.Delete(businessID, id); err != nil {
		respondServiceError(c, err, "delete customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}
