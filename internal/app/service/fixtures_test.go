package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/db"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testTokens = TokenSettings{
	Secret:        "test-secret",
	AccessExpiry:  15 * time.Minute,
	RefreshExpiry: 24 * time.Hour,
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemoryRevoker() *memoryRevoker {
	return &memoryRevoker{revoked: make(map[string]bool)}
}

func (r *memoryRevoker) Revoke(_ context.Context, jti string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = true
	return nil
}

func (r *memoryRevoker) RevokeOnce(_ context.Context, jti string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked[jti] {
		return false, nil
	}
	r.revoked[jti] = true
	return true, nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

type countingThrottle struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingThrottle() *countingThrottle {
	return &countingThrottle{counts: make(map[string]int)}
}

func (t *countingThrottle) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
	return t.counts[key] <= limit, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishOrder(eventType string, _ *model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	DB        *gorm.DB
	Recorder  *notify.Recorder
	Revoker   *memoryRevoker
	Throttle  *countingThrottle
	Publisher *recordingPublisher

	Auth         AuthService
	Reset        PasswordResetService
	CustomerAuth CustomerAuthService
	Businesses   BusinessService
	Customers    CustomerService
	Items        ItemService
	Carts        CartService
	Orders       OrderService
	Invoices     InvoiceService
	Dashboard    DashboardService
}

func setupEnv(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	env := &testEnv{
		DB:        testDB,
		Recorder:  notify.NewRecorder(),
		Revoker:   newMemoryRevoker(),
		Throttle:  newCountingThrottle(),
		Publisher: &recordingPublisher{},
	}
	deps := Dependencies{
		Revoker:   env.Revoker,
		Throttle:  env.Throttle,
		Notifier:  env.Recorder,
		Publisher: env.Publisher,
	}

	userRepo := repository.NewUserRepository(testDB)
	businessRepo := repository.NewBusinessRepository(testDB)
	customerRepo := repository.NewCustomerRepository(testDB)
	itemRepo := repository.NewItemRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	invoiceRepo := repository.NewInvoiceRepository(testDB)
	sequenceRepo := repository.NewSequenceRepository(testDB)

	env.Auth = NewAuthService(userRepo, testTokens, deps)
	env.Reset = NewPasswordResetService(userRepo, DefaultOTPPolicy, deps)
	env.CustomerAuth = NewCustomerAuthService(customerRepo, testTokens, DefaultOTPPolicy, deps)
	env.Businesses = NewBusinessService(businessRepo, userRepo, testDB)
	env.Customers = NewCustomerService(customerRepo, cartRepo, testDB)
	env.Items = NewItemService(itemRepo)
	env.Carts = NewCartService(cartRepo, itemRepo, testDB)
	env.Orders = NewOrderService(orderRepo, cartRepo, itemRepo, customerRepo, sequenceRepo, testDB, deps)
	env.Invoices = NewInvoiceService(invoiceRepo, itemRepo, customerRepo, sequenceRepo, testDB)
	env.Dashboard = NewDashboardService(customerRepo, itemRepo, orderRepo, invoiceRepo)
	return env
}

// createTenant inserts an owner and an active business directly.
func (e *testEnv) createTenant(t *testing.T, name string) (*model.User, *model.BusinessEntity) {
	owner := &model.User{
		Name:         name + " Owner",
		Email:        util.Slugify(name) + "@owner.test",
		Phone:        "90-" + util.Slugify(name),
		PasswordHash: "hash",
	}
	require.NoError(t, e.DB.Create(owner).Error)

	business := &model.BusinessEntity{OwnerID: owner.ID, Name: name, Status: model.BusinessActive}
	require.NoError(t, e.DB.Create(business).Error)
	require.NoError(t, e.DB.Create(&model.BusinessMember{UserID: owner.ID, BusinessID: business.ID, Role: model.MemberOwner}).Error)
	require.NoError(t, e.DB.Model(owner).Update("active_business_id", business.ID).Error)
	owner.ActiveBusinessID = &business.ID
	return owner, business
}

func (e *testEnv) createItem(t *testing.T, businessID uint, name string, qty int, price string) *model.Item {
	item := &model.Item{
		BusinessID: businessID,
		Name:       name,
		Quantity:   qty,
		MinStock:   2,
		Price:      decimal.RequireFromString(price),
		GSTPercent: decimal.NewFromInt(18),
	}
	require.NoError(t, e.DB.Create(item).Error)
	return item
}

func (e *testEnv) createCustomer(t *testing.T, businessID uint, email, phone string) model.CustomerPrincipal {
	customer := &model.Customer{
		BusinessID: businessID,
		Name:       "Customer " + phone,
		Email:      email,
		Phone:      phone,
		Address:    "12 Market Road",
		City:       "Pune",
	}
	require.NoError(t, e.DB.Create(customer).Error)
	return model.CustomerPrincipal{CustomerID: customer.ID, BusinessID: businessID}
}

func (e *testEnv) stock(t *testing.T, itemID uint) int {
	var item model.Item
	require.NoError(t, e.DB.Unscoped().First(&item, itemID).Error)
	return item.Quantity
}

// codeFor waits for the n-th notification and returns its code.
func (e *testEnv) codeFor(t *testing.T, n int) string {
	msgs := e.Recorder.WaitFor(n, 2*time.Second)
	require.GreaterOrEqual(t, len(msgs), n, "notification not delivered")
	code := msgs[n-1].Data["code"]
	require.Len(t, code, 6)
	return code
}
