package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/internal/app/controller"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/db"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/export"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/internal/router"
	"github.com/storefront/commerce-backend/internal/storage"
	"github.com/storefront/commerce-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type TestServer struct {
	Handler  http.Handler
	DB       *gorm.DB
	Recorder *notify.Recorder
	staff    int
}

func setupIntegrationTest(t *testing.T) *TestServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{
			Driver:    "local",
			BaseURL:   "http://localhost:8080",
			MediaPath: "/media/",
			MediaRoot: t.TempDir(),
			MaxFileMB: 1,
		},
	}

	recorder := notify.NewRecorder()
	hub := websocket.NewHub()
	deps := service.Dependencies{Notifier: recorder, Publisher: hub}
	staffTokens := service.TokenSettings{Secret: "staff-test-secret", AccessExpiry: 15 * time.Minute, RefreshExpiry: time.Hour}
	customerTokens := service.TokenSettings{Secret: "customer-test-secret", AccessExpiry: 15 * time.Minute, RefreshExpiry: time.Hour}

	userRepo := repository.NewUserRepository(testDB)
	businessRepo := repository.NewBusinessRepository(testDB)
	customerRepo := repository.NewCustomerRepository(testDB)
	itemRepo := repository.NewItemRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	invoiceRepo := repository.NewInvoiceRepository(testDB)
	sequenceRepo := repository.NewSequenceRepository(testDB)

	authService := service.NewAuthService(userRepo, staffTokens, deps)
	customerAuthService := service.NewCustomerAuthService(customerRepo, customerTokens, service.DefaultOTPPolicy, deps)
	businessService := service.NewBusinessService(businessRepo, userRepo, testDB)
	customerService := service.NewCustomerService(customerRepo, cartRepo, testDB)
	itemService := service.NewItemService(itemRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, itemRepo, customerRepo, sequenceRepo, testDB, deps)

	blobStore, err := storage.New(cfg)
	require.NoError(t, err)

	r := router.NewRouter(router.Controllers{
		Auth:         controller.NewAuthController(authService, service.NewPasswordResetService(userRepo, service.DefaultOTPPolicy, deps)),
		CustomerAuth: controller.NewCustomerAuthController(customerAuthService, customerService),
		Business:     controller.NewBusinessController(businessService),
		Customer:     controller.NewCustomerController(customerService),
		Item:         controller.NewItemController(itemService),
		Cart:         controller.NewCartController(service.NewCartService(cartRepo, itemRepo, testDB)),
		Order:        controller.NewOrderController(orderService),
		Invoice:      controller.NewInvoiceController(service.NewInvoiceService(invoiceRepo, itemRepo, customerRepo, sequenceRepo, testDB)),
		Dashboard:    controller.NewDashboardController(service.NewDashboardService(customerRepo, itemRepo, orderRepo, invoiceRepo)),
		Upload:       controller.NewUploadController(blobStore, cfg.Storage.MaxFileMB<<20),
		Feed:         controller.NewFeedController(hub),
	}, middleware.NewAuthMiddleware(authService, customerAuthService, businessService), cfg)

	return &TestServer{Handler: r.Setup(), DB: testDB, Recorder: recorder}
}

type request struct {
	method   string
	path     string
	token    string
	business uint
	body     interface{}
}

func (s *TestServer) do(t *testing.T, r request) (*httptest.ResponseRecorder, map[string]interface{}) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.business != 0 {
		req.Header.Set(middleware.BusinessHeader, strconv.Itoa(int(r.business)))
	}

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

// registerOwner creates a staff user with one business and returns the
// access token, business id and slug.
func (s *TestServer) registerOwner(t *testing.T, businessName string) (string, uint, string) {
	s.staff++
	w, resp := s.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: payload{
		"name":     "Owner " + businessName,
		"email":    fmt.Sprintf("owner%d@example.com", s.staff),
		"phone":    fmt.Sprintf("90000000%02d", s.staff),
		"password": "password123",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := resp["tokens"].(map[string]interface{})["access_token"].(string)

	w, resp = s.do(t, request{method: http.MethodPost, path: "/api/v1/business/setup", token: token, body: payload{
		"business_name": businessName,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	business := resp["business"].(map[string]interface{})
	return token, uint(business["id"].(float64)), business["slug"].(string)
}

func (s *TestServer) createItem(t *testing.T, token string, name string, qty int, price string) uint {
	w, resp := s.do(t, request{method: http.MethodPost, path: "/api/v1/items", token: token, body: payload{
		"name":        name,
		"quantity":    qty,
		"min_stock":   1,
		"price":       price,
		"gst_percent": "18",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(resp["item"].(map[string]interface{})["id"].(float64))
}

func (s *TestServer) signupCustomer(t *testing.T, slug, email, phone string) (string, uint) {
	w, resp := s.do(t, request{method: http.MethodPost, path: "/api/v1/store/" + slug + "/auth/signup", body: payload{
		"name":     "Customer " + phone,
		"email":    email,
		"phone":    phone,
		"password": "password123",
		"address":  "4 Lake View",
		"city":     "Indore",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customer := resp["customer"].(map[string]interface{})
	return resp["tokens"].(map[string]interface{})["access_token"].(string), uint(customer["id"].(float64))
}

func (s *TestServer) stock(t *testing.T, itemID uint) int {
	var item model.Item
	require.NoError(t, s.DB.Unscoped().First(&item, itemID).Error)
	return item.Quantity
}

type payload = map[string]interface{}

func TestIntegration_Health(t *testing.T) {
	server := setupIntegrationTest(t)

	w, resp := server.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w, _ = server.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestIntegration_CORSPreflight(t *testing.T) {
	server := setupIntegrationTest(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.BusinessHeader)
}

func TestIntegration_StorefrontCheckoutFlow(t *testing.T) {
	server := setupIntegrationTest(t)
	staffToken, businessID, slug := server.registerOwner(t, "Corner Grocer")
	riceID := server.createItem(t, staffToken, "Rice 5kg", 5, "49.50")
	oilID := server.createItem(t, staffToken, "Sunflower Oil", 3, "50")

	w, resp := server.do(t, request{method: http.MethodGet, path: "/api/v1/store/" + slug + "/items"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp["total"])

	customerToken, _ := server.signupCustomer(t, slug, "asha@example.com", "9800000001")
	storePath := "/api/v1/store/" + slug

	w, _ = server.do(t, request{method: http.MethodPost, path: storePath + "/cart", token: customerToken, body: payload{"item_id": riceID, "quantity": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, resp = server.do(t, request{method: http.MethodPost, path: storePath + "/cart", token: customerToken, body: payload{"item_id": oilID, "quantity": 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := resp["cart"].(map[string]interface{})
	assert.True(t, decimal.RequireFromString(cart["total"].(string)).Equal(decimal.RequireFromString("149")))

	w, resp = server.do(t, request{method: http.MethodPost, path: storePath + "/cart", token: customerToken, body: payload{"item_id": oilID, "quantity": 3}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.StockInsufficient, resp["error"])
	assert.Equal(t, "Sunflower Oil", resp["item"])

	w, resp = server.do(t, request{method: http.MethodGet, path: storePath + "/checkout/preview", token: customerToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["preview"].(map[string]interface{})["can_checkout"])

	w, resp = server.do(t, request{method: http.MethodPost, path: storePath + "/checkout", token: customerToken, body: payload{"payment_mode": "cash"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := resp["order"].(map[string]interface{})
	number := order["order_number"].(string)
	assert.Equal(t, service.FormatOrderNumber(businessID, time.Now().Year(), 1), number)
	assert.Equal(t, string(model.OrderStatusConfirmed), order["status"])
	assert.Equal(t, "4 Lake View, Indore", order["shipping_address"])
	assert.Equal(t, 3, server.stock(t, riceID))
	assert.Equal(t, 2, server.stock(t, oilID))

	w, resp = server.do(t, request{method: http.MethodGet, path: storePath + "/cart", token: customerToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["cart"].(map[string]interface{})["item_count"])

	w, resp = server.do(t, request{method: http.MethodPost, path: storePath + "/checkout", token: customerToken, body: payload{"payment_mode": "cash"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CartEmpty, resp["error"])

	w, resp = server.do(t, request{method: http.MethodPost, path: storePath + "/orders/" + number + "/cancel", token: customerToken})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperrors.OrderInvalidTransition, resp["error"])

	w, resp = server.do(t, request{method: http.MethodGet, path: "/api/v1/orders", token: staffToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["total"])

	w, resp = server.do(t, request{method: http.MethodPut, path: "/api/v1/orders/" + number + "/status", token: staffToken, body: payload{"status": "Shipped", "payment_status": "Paid"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Shipped", resp["order"].(map[string]interface{})["status"])

	w, _ = server.do(t, request{method: http.MethodPut, path: "/api/v1/orders/" + number + "/status", token: staffToken, body: payload{"status": "Lost"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = server.do(t, request{method: http.MethodGet, path: "/api/v1/orders/export", token: staffToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))

	msgs := server.Recorder.WaitFor(1, 2*time.Second)
	require.NotEmpty(t, msgs)
	assert.Equal(t, notify.KindOrderConfirmation, msgs[0].Kind)
}

func TestIntegration_PayLaterCancelRestoresStockOnce(t *testing.T) {
	server := setupIntegrationTest(t)
	_, _, slug := server.registerOwner(t, "Lamp House")
	ownerToken, _, widgetSlug := server.registerOwner(t, "Widget Works")
	itemID := server.createItem(t, ownerToken, "Widget", 4, "25")
	customerToken, _ := server.signupCustomer(t, widgetSlug, "ravi@example.com", "9800000002")
	storePath := "/api/v1/store/" + widgetSlug

	w, _ := server.do(t, request{method: http.MethodPost, path: storePath + "/cart", token: customerToken, body: payload{"item_id": itemID, "quantity": 3}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, resp := server.do(t, request{method: http.MethodPost, path: storePath + "/checkout", token: customerToken, body: payload{"payment_mode": "pay_later"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := resp["order"].(map[string]interface{})
	assert.Equal(t, string(model.OrderStatusPending), order["status"])
	assert.Equal(t, 1, server.stock(t, itemID))

	number := order["order_number"].(string)
	w, _ = server.do(t, request{method: http.MethodPost, path: storePath + "/orders/" + number + "/cancel", token: customerToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4, server.stock(t, itemID))

	w, _ = server.do(t, request{method: http.MethodPost, path: storePath + "/orders/" + number + "/cancel", token: customerToken})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 4, server.stock(t, itemID))

	// the order is not visible from another storefront
	otherToken, _ := server.signupCustomer(t, slug, "ravi@example.com", "9800000002")
	w, _ = server.do(t, request{method: http.MethodGet, path: "/api/v1/store/" + slug + "/orders/" + number, token: otherToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_TenantIsolation(t *testing.T) {
	server := setupIntegrationTest(t)
	tokenA, _, slugA := server.registerOwner(t, "Shop Alpha")
	tokenB, businessB, slugB := server.registerOwner(t, "Shop Beta")
	itemA := server.createItem(t, tokenA, "Alpha Item", 5, "10")

	t.Run("staff cannot act on a business they do not belong to", func(t *testing.T) {
		w, resp := server.do(t, request{method: http.MethodGet, path: "/api/v1/items", token: tokenA, business: businessB})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperrors.AuthzNotMember, resp["error"])
	})

	t.Run("staff lookups are scoped", func(t *testing.T) {
		w, resp := server.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/api/v1/items/%d", itemA), token: tokenB})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.ItemNotFound, resp["error"])
	})

	t.Run("customer token is bound to its storefront", func(t *testing.T) {
		customerToken, _ := server.signupCustomer(t, slugA, "meena@example.com", "9800000003")
		w, _ := server.do(t, request{method: http.MethodGet, path: "/api/v1/store/" + slugB + "/cart", token: customerToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w, _ = server.do(t, request{method: http.MethodGet, path: "/api/v1/store/" + slugA + "/cart", token: customerToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a storefront only sells its own items", func(t *testing.T) {
		customerToken, _ := server.signupCustomer(t, slugB, "john@example.com", "9800000004")
		w, resp := server.do(t, request{method: http.MethodPost, path: "/api/v1/store/" + slugB + "/cart", token: customerToken, body: payload{"item_id": itemA, "quantity": 1}})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.ItemNotFound, resp["error"])
	})

	t.Run("staff token is rejected on customer routes", func(t *testing.T) {
		w, _ := server.do(t, request{method: http.MethodGet, path: "/api/v1/store/" + slugA + "/cart", token: tokenA})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown storefront", func(t *testing.T) {
		w, resp := server.do(t, request{method: http.MethodGet, path: "/api/v1/store/no-such-shop/items"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.BusinessNotFound, resp["error"])
	})
}

func TestIntegration_InvoiceAndDashboard(t *testing.T) {
	server := setupIntegrationTest(t)
	token, businessID, _ := server.registerOwner(t, "Hardware Mart")
	itemID := server.createItem(t, token, "Hammer", 10, "100")

	w, resp := server.do(t, request{method: http.MethodPost, path: "/api/v1/customers", token: token, body: payload{
		"name":  "Walk In",
		"email": "walkin@example.com",
		"phone": "9800000005",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := resp["customer"].(map[string]interface{})["id"]

	w, resp = server.do(t, request{method: http.MethodPost, path: "/api/v1/invoices", token: token, body: payload{
		"customer_id":      customerID,
		"items":            []payload{{"item_id": itemID, "quantity": 2, "rate": "125"}},
		"discount_percent": "10",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := resp["invoice"].(map[string]interface{})
	number := invoice["invoice_number"].(string)
	assert.Equal(t, service.FormatInvoiceNumber(businessID, time.Now().Year(), 1), number)
	assert.True(t, decimal.RequireFromString(invoice["net_payable"].(string)).Equal(decimal.NewFromInt(270)))
	assert.Equal(t, 8, server.stock(t, itemID))

	w, resp = server.do(t, request{method: http.MethodPost, path: "/api/v1/invoices", token: token, body: payload{
		"customer_id": customerID,
		"items":       []payload{{"item_id": itemID, "quantity": 50}},
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Hammer", resp["item"])

	w, _ = server.do(t, request{method: http.MethodPut, path: "/api/v1/invoices/" + number + "/status", token: token, body: payload{"status": "Paid"}})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = server.do(t, request{method: http.MethodGet, path: "/api/v1/invoices/" + number + "/export", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), number+".xlsx")

	w, resp = server.do(t, request{method: http.MethodGet, path: "/api/v1/dashboard", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	stats := resp["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["customers"])
	assert.Equal(t, float64(1), stats["invoices"])
	assert.True(t, decimal.RequireFromString(stats["invoice_revenue"].(string)).Equal(decimal.NewFromInt(270)))
}

func TestIntegration_LocalUpload(t *testing.T) {
	server := setupIntegrationTest(t)
	token, _, _ := server.registerOwner(t, "Photo Shop")

	upload := func(filename, contentType string, size int) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("folder", "items"))
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{0xff}, size))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		server.Handler.ServeHTTP(w, req)
		return w
	}

	w := upload("Front Shelf.PNG", "image/png", 128)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^http://localhost:8080/media/items/front-shelf-[0-9a-f]{8}\.png$`, resp["url"])

	w = upload("notes.txt", "text/plain", 16)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("huge.png", "image/png", 2<<20)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
