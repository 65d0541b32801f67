package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/service"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/middleware"
)

// CustomerAuthController serves storefront accounts. Every handler runs
// under /store/:slug, so the business comes from the path.
type CustomerAuthController struct {
	customerAuth    service.CustomerAuthService
	customerService service.CustomerService
}

func NewCustomerAuthController(customerAuth service.CustomerAuthService, customerService service.CustomerService) *CustomerAuthController {
	return &CustomerAuthController{
		customerAuth:    customerAuth,
		customerService: customerService,
	}
}

type CustomerSignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// CustomerLoginRequest accepts an email or a phone number as identifier
type CustomerLoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type IdentifierRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type VerifyCodeRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required,len=6"`
}

type CustomerResetPasswordRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type AddressRequest struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func storefrontID(c *gin.Context) (uint, bool) {
	business, ok := middleware.GetStorefront(c)
	if !ok {
		apperrors.NotFound(c, apperrors.BusinessNotFound, "Store not found")
		return 0, false
	}
	return business.ID, true
}

// Signup creates a customer account on this store
// POST /api/v1/store/:slug/auth/signup
func (ctrl *CustomerAuthController) Signup(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req CustomerSignupRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, tokens, err := ctrl.customerAuth.Signup(businessID, service.CustomerSignupInput{
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
		respondServiceError(c, err, "customer signup")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Customer signed up", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"customer": customer,
		"tokens":   tokens,
	})
}

// Login authenticates with password
// POST /api/v1/store/:slug/auth/login
func (ctrl *CustomerAuthController) Login(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req CustomerLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, tokens, err := ctrl.customerAuth.Login(businessID, req.Identifier, req.Password)
	if err != nil {
		respondServiceError(c, err, "customer login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"tokens":   tokens,
	})
}

// RequestLoginCode sends a one-time login code
// POST /api/v1/store/:slug/auth/otp/request
func (ctrl *CustomerAuthController) RequestLoginCode(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req IdentifierRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.customerAuth.RequestLoginOTP(c.Request.Context(), businessID, req.Identifier); err != nil {
		respondServiceError(c, err, "request login code")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a code has been sent"})
}

// VerifyLoginCode exchanges a login code for tokens
// POST /api/v1/store/:slug/auth/otp/verify
func (ctrl *CustomerAuthController) VerifyLoginCode(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, tokens, err := ctrl.customerAuth.VerifyLoginOTP(businessID, req.Identifier, req.Code)
	if err != nil {
		respondServiceError(c, err, "verify login code")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"tokens":   tokens,
	})
}

// ForgotPassword sends a reset code
// POST /api/v1/store/:slug/auth/forgot-password
func (ctrl *CustomerAuthController) ForgotPassword(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req IdentifierRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.customerAuth.RequestPasswordReset(c.Request.Context(), businessID, req.Identifier); err != nil {
		respondServiceError(c, err, "request password reset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset code has been sent"})
}

// ResetPassword consumes a reset code
// POST /api/v1/store/:slug/auth/reset-password
func (ctrl *CustomerAuthController) ResetPassword(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req CustomerResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.customerAuth.ResetPassword(businessID, req.Identifier, req.Code, req.NewPassword); err != nil {
		respondServiceError(c, err, "reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// Refresh rotates the customer token pair
// POST /api/v1/store/:slug/auth/refresh
func (ctrl *CustomerAuthController) Refresh(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := ctrl.customerAuth.Refresh(c.Request.Context(), businessID, req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout revokes the refresh token
// POST /api/v1/store/:slug/auth/logout
func (ctrl *CustomerAuthController) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.customerAuth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondServiceError(c, err, "logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetMe returns the authenticated customer
// GET /api/v1/store/:slug/me
func (ctrl *CustomerAuthController) GetMe(c *gin.Context) {
	customer, ok := middleware.GetCustomerModel(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// UpdateAddress replaces the saved delivery address
// PUT /api/v1/store/:slug/me/address
func (ctrl *CustomerAuthController) UpdateAddress(c *gin.Context) {
	principal, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := ctrl.customerService.UpdateAddress(principal, service.AddressInput{
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
	})
	if err != nil {
		respondServiceError(c, err, "update address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}
