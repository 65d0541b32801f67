package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/db"
	"github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testTokens = service.TokenSettings{
	Secret:        "test-jwt-secret-for-middleware",
	AccessExpiry:  15 * time.Minute,
	RefreshExpiry: 24 * time.Hour,
}

var testCustomerTokens = service.TokenSettings{
	Secret:        "test-customer-secret-for-middleware",
	AccessExpiry:  15 * time.Minute,
	RefreshExpiry: 24 * time.Hour,
}

type middlewareEnv struct {
	db           *gorm.DB
	auth         service.AuthService
	customerAuth service.CustomerAuthService
	businesses   service.BusinessService
	middleware   *AuthMiddleware
	staffCount   int
}

func setupMiddlewareTest(t *testing.T) (*gin.Engine, *middlewareEnv) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	userRepo := repository.NewUserRepository(testDB)
	env := &middlewareEnv{
		db:           testDB,
		auth:         service.NewAuthService(userRepo, testTokens, service.Dependencies{}),
		customerAuth: service.NewCustomerAuthService(repository.NewCustomerRepository(testDB), testCustomerTokens, service.DefaultOTPPolicy, service.Dependencies{}),
		businesses:   service.NewBusinessService(repository.NewBusinessRepository(testDB), userRepo, testDB),
	}
	env.middleware = NewAuthMiddleware(env.auth, env.customerAuth, env.businesses)

	router := gin.New()
	router.Use(LoggingMiddleware())
	return router, env
}

func (e *middlewareEnv) registerStaff(t *testing.T, email string) (*model.User, string) {
	e.staffCount++
	user, tokens, err := e.auth.Register(service.RegisterInput{
		Name:     "Staff " + email,
		Email:    email,
		Phone:    fmt.Sprintf("98%08d", e.staffCount),
		Password: "password123",
	})
	require.NoError(t, err)
	return user, tokens.AccessToken
}

func (e *middlewareEnv) setupBusiness(t *testing.T, userID uint, name string) *model.BusinessEntity {
	business, err := e.businesses.Setup(userID, service.BusinessSetupInput{Name: name})
	require.NoError(t, err)
	return business
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorResponse {
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStaffAuth_Success(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	user, token := env.registerStaff(t, "owner@example.com")

	router.GET("/test", env.middleware.StaffAuth(), func(c *gin.Context) {
		staff, ok := GetStaff(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": staff.UserID(), "business_id": staff.BusinessID})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"user_id":%d,"business_id":0}`, user.ID), w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestStaffAuth_Rejections(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	_, token := env.registerStaff(t, "owner@example.com")

	expired, err := util.GenerateTokenPair(1, "owner@example.com", testTokens.Secret, -time.Minute, time.Hour)
	require.NoError(t, err)

	router.GET("/test", env.middleware.StaffAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", errors.AuthUnauthorized},
		{"wrong scheme", "Token " + token, errors.AuthTokenInvalid},
		{"garbage token", "Bearer not-a-jwt", errors.AuthTokenInvalid},
		{"expired token", "Bearer " + expired.AccessToken, errors.AuthTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestStaffAuth_QueryTokenForWebSocket(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	_, token := env.registerStaff(t, "owner@example.com")

	router.GET("/ws", env.middleware.StaffAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireTenant(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	owner, ownerToken := env.registerStaff(t, "owner@example.com")
	first := env.setupBusiness(t, owner.ID, "First Store")
	second := env.setupBusiness(t, owner.ID, "Second Store")

	other, _ := env.registerStaff(t, "other@example.com")
	foreign := env.setupBusiness(t, other.ID, "Foreign Store")

	_, newcomerToken := env.registerStaff(t, "newcomer@example.com")

	router.GET("/tenant", env.middleware.StaffAuth(), env.middleware.RequireTenant(), func(c *gin.Context) {
		id, ok := GetTenantID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"business_id": id})
	})

	call := func(token, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if header != "" {
			req.Header.Set(BusinessHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("default business", func(t *testing.T) {
		w := call(ownerToken, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"business_id":%d}`, first.ID), w.Body.String())
	})

	t.Run("header override", func(t *testing.T) {
		w := call(ownerToken, strconv.Itoa(int(second.ID)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"business_id":%d}`, second.ID), w.Body.String())
	})

	t.Run("not a member", func(t *testing.T) {
		w := call(ownerToken, strconv.Itoa(int(foreign.ID)))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, errors.AuthzNotMember, decodeError(t, w).Error)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := call(ownerToken, "abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.ValidationInvalidID, decodeError(t, w).Error)
	})

	t.Run("no business yet", func(t *testing.T) {
		w := call(newcomerToken, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.AuthzTenantMissing, decodeError(t, w).Error)
	})
}

func TestStorefrontAndCustomerAuth(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	owner, _ := env.registerStaff(t, "owner@example.com")
	shop := env.setupBusiness(t, owner.ID, "Corner Shop")
	other := env.setupBusiness(t, owner.ID, "Other Shop")

	customer, tokens, err := env.customerAuth.Signup(shop.ID, service.CustomerSignupInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Phone:    "9876543210",
		Password: "password123",
	})
	require.NoError(t, err)

	store := router.Group("/store/:slug", env.middleware.Storefront())
	store.GET("/catalog", func(c *gin.Context) {
		business, ok := GetStorefront(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"business_id": business.ID})
	})
	store.GET("/me", env.middleware.CustomerAuth(), func(c *gin.Context) {
		principal, ok := GetCustomer(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"customer_id": principal.CustomerID, "business_id": principal.BusinessID})
	})

	call := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("public catalog resolves slug", func(t *testing.T) {
		w := call("/store/corner-shop/catalog", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"business_id":%d}`, shop.ID), w.Body.String())
	})

	t.Run("unknown slug", func(t *testing.T) {
		w := call("/store/nowhere/catalog", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errors.BusinessNotFound, decodeError(t, w).Error)
	})

	t.Run("customer on own store", func(t *testing.T) {
		w := call("/store/corner-shop/me", tokens.AccessToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"customer_id":%d,"business_id":%d}`, customer.ID, shop.ID), w.Body.String())
	})

	t.Run("customer token on another store", func(t *testing.T) {
		w := call("/store/"+other.Slug+"/me", tokens.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errors.AuthTokenInvalid, decodeError(t, w).Error)
	})

	t.Run("staff token is not a customer token", func(t *testing.T) {
		_, staffToken := env.registerStaff(t, "staff@example.com")
		w := call("/store/corner-shop/me", staffToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deleted customer", func(t *testing.T) {
		require.NoError(t, env.db.Delete(&model.Customer{}, customer.ID).Error)
		w := call("/store/corner-shop/me", tokens.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errors.AuthUnauthorized, decodeError(t, w).Error)
	})
}

func TestRequireTenant_QueryParameter(t *testing.T) {
	router, env := setupMiddlewareTest(t)
	owner, token := env.registerStaff(t, "owner@example.com")
	env.setupBusiness(t, owner.ID, "First Store")
	second := env.setupBusiness(t, owner.ID, "Second Store")

	router.GET("/ws", env.middleware.StaffAuth(), env.middleware.RequireTenant(), func(c *gin.Context) {
		id, _ := GetTenantID(c)
		c.JSON(http.StatusOK, gin.H{"business_id": id})
	})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/ws?token=%s&business_id=%d", token, second.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"business_id":%d}`, second.ID), w.Body.String())
}
