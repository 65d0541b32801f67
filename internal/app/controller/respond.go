package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/service"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/storefront/commerce-backend/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// respondServiceError maps the service error taxonomy onto HTTP. Anything
// unrecognised goes through the DB error parser as a 500.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		field := verr.Field
		if field == "" {
			field = "body"
		}
		apperrors.RespondWithValidationError(c, map[string]string{field: verr.Message})
		return
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		apperrors.InsufficientStock(c, stockErr.ItemName)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid credentials")
	case errors.Is(err, util.ErrExpiredToken):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired")
	case errors.Is(err, util.ErrInvalidToken):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid authentication token")
	case errors.Is(err, service.ErrTokenRevoked):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Token has been revoked")
	case errors.Is(err, service.ErrInvalidCode):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthCodeInvalid, "Invalid verification code")
	case errors.Is(err, service.ErrCodeExpired):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthCodeExpired, "Verification code has expired")
	case errors.Is(err, service.ErrTooManyRequests):
		apperrors.TooManyRequests(c, "Too many requests, please try again later")

	case errors.Is(err, service.ErrNotMember):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzNotMember, "You are not a member of this business")
	case errors.Is(err, service.ErrNoActiveBusiness):
		apperrors.BadRequest(c, apperrors.AuthzTenantMissing, "Select a business first")

	case errors.Is(err, service.ErrEmailAlreadyExists):
		apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "Email is already registered")
	case errors.Is(err, service.ErrPhoneAlreadyExists):
		apperrors.Conflict(c, apperrors.AuthPhoneAlreadyExists, "Phone number is already registered")
	case errors.Is(err, service.ErrAlreadyMember):
		apperrors.Conflict(c, apperrors.ResourceAlreadyExists, "User is already a member of this business")
	case errors.Is(err, service.ErrConflict):
		apperrors.Conflict(c, apperrors.ResourceConflict, "The request conflicted with a concurrent update, please retry")

	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Cart is empty")
	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.UnprocessableEntity(c, apperrors.OrderInvalidTransition, "Order cannot move to the requested status")

	case errors.Is(err, service.ErrUserNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
	case errors.Is(err, service.ErrBusinessNotFound):
		apperrors.NotFound(c, apperrors.BusinessNotFound, "Business not found")
	case errors.Is(err, service.ErrCustomerNotFound):
		apperrors.NotFound(c, apperrors.CustomerNotFound, "Customer not found")
	case errors.Is(err, service.ErrItemNotFound):
		apperrors.NotFound(c, apperrors.ItemNotFound, "Item not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Item is not in the cart")
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrInvoiceNotFound):
		apperrors.NotFound(c, apperrors.InvoiceNotFound, "Invoice not found")

	default:
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
	}
}

// bindJSON binds the body and writes a field-level 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.ValidationFields(err))
		return false
	}
	return true
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// pagination reads page/page_size, clamping page_size.
func pagination(c *gin.Context) (page, pageSize, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// tenantID reads the business bound by RequireTenant.
func tenantID(c *gin.Context) (uint, bool) {
	id, ok := middleware.GetTenantID(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.AuthzTenantMissing, "Select a business first")
	}
	return id, ok
}

func currentStaff(c *gin.Context) (model.StaffPrincipal, bool) {
	staff, ok := middleware.GetStaff(c)
	if !ok {
		apperrors.Unauthorized(c, "")
	}
	return staff, ok
}

func currentCustomer(c *gin.Context) (model.CustomerPrincipal, bool) {
	principal, ok := middleware.GetCustomer(c)
	if !ok {
		apperrors.Unauthorized(c, "")
	}
	return principal, ok
}
