package middleware

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/pkg/util"
)

// Context keys set by the auth middlewares
const (
	StaffUserKey  = "staff_user"
	TenantIDKey   = "business_id"
	StorefrontKey = "storefront"
	CustomerKey   = "customer"
)

// BusinessHeader selects the tenant for one staff request, overriding the
// persisted default. WebSocket clients, which cannot set headers, send
// BusinessQuery instead.
const (
	BusinessHeader = "X-Business-ID"
	BusinessQuery  = "business_id"
)

type AuthMiddleware struct {
	authService     service.AuthService
	customerAuth    service.CustomerAuthService
	businessService service.BusinessService
}

func NewAuthMiddleware(authService service.AuthService, customerAuth service.CustomerAuthService, businessService service.BusinessService) *AuthMiddleware {
	return &AuthMiddleware{
		authService:     authService,
		customerAuth:    customerAuth,
		businessService: businessService,
	}
}

// StaffAuth validates a staff access token (required)
func (m *AuthMiddleware) StaffAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := extractToken(c)
		if !ok {
			c.Abort()
			return
		}

		user, claims, err := m.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Warn("Staff token rejected", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			respondTokenError(c, err)
			c.Abort()
			return
		}

		c.Set(StaffUserKey, user)

		log.Debug("Staff user authenticated", map[string]interface{}{
			"user_id": user.ID,
			"jti":     claims.ID,
		})

		c.Next()
	}
}

// RequireTenant binds the request to one business. Must run after StaffAuth.
func (m *AuthMiddleware) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		user, ok := GetUser(c)
		if !ok {
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var requested uint
		raw := strings.TrimSpace(c.GetHeader(BusinessHeader))
		if raw == "" {
			raw = strings.TrimSpace(c.Query(BusinessQuery))
		}
		if raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				errors.BadRequest(c, errors.ValidationInvalidID, BusinessHeader+" must be a positive integer")
				c.Abort()
				return
			}
			requested = uint(id)
		}

		businessID, err := m.businessService.ResolveTenant(user, requested)
		if err != nil {
			switch {
			case stderrors.Is(err, service.ErrNoActiveBusiness):
				errors.BadRequest(c, errors.AuthzTenantMissing, "Select a business or send "+BusinessHeader)
			case stderrors.Is(err, service.ErrNotMember):
				errors.RespondWithError(c, http.StatusForbidden, errors.AuthzNotMember, "You are not a member of this business")
			default:
				log.Error("Tenant resolution failed", err, map[string]interface{}{
					"user_id": user.ID,
				})
				errors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(TenantIDKey, businessID)
		c.Next()
	}
}

// Storefront resolves the :slug path parameter to an active business.
func (m *AuthMiddleware) Storefront() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		business, err := m.businessService.ResolveSlug(c.Param("slug"))
		if err != nil {
			if stderrors.Is(err, service.ErrBusinessNotFound) {
				errors.NotFound(c, errors.BusinessNotFound, "Store not found")
			} else {
				log.Error("Storefront lookup failed", err, map[string]interface{}{
					"slug": c.Param("slug"),
				})
				errors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(StorefrontKey, business)
		c.Next()
	}
}

// CustomerAuth validates a customer access token. Must run after
// Storefront; a token minted for another business is rejected.
func (m *AuthMiddleware) CustomerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		business, ok := GetStorefront(c)
		if !ok {
			errors.NotFound(c, errors.BusinessNotFound, "Store not found")
			c.Abort()
			return
		}

		token, ok := extractToken(c)
		if !ok {
			c.Abort()
			return
		}

		customer, err := m.customerAuth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Warn("Customer token rejected", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			respondTokenError(c, err)
			c.Abort()
			return
		}

		if customer.BusinessID != business.ID {
			log.Warn("Customer token used on another storefront", map[string]interface{}{
				"customer_id":    customer.ID,
				"token_business": customer.BusinessID,
				"path_business":  business.ID,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Token is not valid for this store")
			c.Abort()
			return
		}

		c.Set(CustomerKey, customer)
		c.Next()
	}
}

// extractToken reads "Bearer <token>", falling back to the token query
// parameter for WebSocket upgrades. It writes the 401 itself.
func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Authorization header must be Bearer <token>")
			return "", false
		}
		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}

	errors.Unauthorized(c, "Authorization header is required")
	return "", false
}

func respondTokenError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, util.ErrExpiredToken):
		errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Token has expired")
	case stderrors.Is(err, service.ErrTokenRevoked):
		errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "Token has been revoked")
	case stderrors.Is(err, service.ErrUserNotFound), stderrors.Is(err, service.ErrCustomerNotFound):
		errors.Unauthorized(c, "Account no longer exists")
	default:
		errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
	}
}

// GetUser extracts the staff user from context
func GetUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(StaffUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

// GetTenantID extracts the resolved business id from context
func GetTenantID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(TenantIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// GetStaff builds the staff principal. BusinessID is zero on routes
// without RequireTenant.
func GetStaff(c *gin.Context) (model.StaffPrincipal, bool) {
	user, ok := GetUser(c)
	if !ok {
		return model.StaffPrincipal{}, false
	}
	businessID, _ := GetTenantID(c)
	return model.StaffPrincipal{User: user, BusinessID: businessID}, true
}

// GetStorefront extracts the business resolved from :slug
func GetStorefront(c *gin.Context) (*model.BusinessEntity, bool) {
	value, exists := c.Get(StorefrontKey)
	if !exists {
		return nil, false
	}
	business, ok := value.(*model.BusinessEntity)
	return business, ok
}

// GetCustomerModel extracts the authenticated customer row
func GetCustomerModel(c *gin.Context) (*model.Customer, bool) {
	value, exists := c.Get(CustomerKey)
	if !exists {
		return nil, false
	}
	customer, ok := value.(*model.Customer)
	return customer, ok
}

// GetCustomer builds the customer principal
func GetCustomer(c *gin.Context) (model.CustomerPrincipal, bool) {
	customer, ok := GetCustomerModel(c)
	if !ok {
		return model.CustomerPrincipal{}, false
	}
	return model.CustomerPrincipal{CustomerID: customer.ID, BusinessID: customer.BusinessID}, true
}
