package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func staffOf(user *model.User, businessID uint) model.StaffPrincipal {
	return model.StaffPrincipal{User: user, BusinessID: businessID}
}

func TestComputeInvoiceTotals(t *testing.T) {
	items := []model.InvoiceItem{
		{TotalValue: decimal.NewFromInt(200), GSTAmount: decimal.NewFromInt(36)},
		{TotalValue: decimal.NewFromInt(50), GSTAmount: decimal.NewFromInt(9)},
	}

	totals := ComputeInvoiceTotals(items, decimal.NewFromInt(10))
	assert.Equal(t, "250.00", totals.TotalValue.StringFixed(2))
	assert.Equal(t, "45.00", totals.TotalGST.StringFixed(2))
	assert.Equal(t, "25.00", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "270.00", totals.GrossAmount.StringFixed(2))
	assert.Equal(t, "270.00", totals.NetPayable.StringFixed(2))
	assert.True(t, totals.RoundOff.IsZero())
}

func TestComputeInvoiceTotals_RoundsHalfToEven(t *testing.T) {
	tests := []struct {
		value    string
		net      string
		roundOff string
	}{
		{"100.40", "100", "-0.40"},
		{"100.50", "100", "-0.50"},
		{"101.50", "102", "0.50"},
		{"100.51", "101", "0.49"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			totals := ComputeInvoiceTotals([]model.InvoiceItem{{
				TotalValue: decimal.RequireFromString(tt.value),
				GSTAmount:  decimal.Zero,
			}}, decimal.Zero)
			assert.Equal(t, tt.net, totals.NetPayable.String())
			assert.Equal(t, tt.roundOff, totals.RoundOff.StringFixed(2))
		})
	}
}

func TestInvoiceService_CreateDecrementsStock(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Invoice Shop")
	principal := env.createCustomer(t, shop.ID, "inv@mail.test", "1000000001")
	hammer := env.createItem(t, shop.ID, "Hammer", 10, "100")
	nails := env.createItem(t, shop.ID, "Nails", 10, "50")

	invoice, err := env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: principal.CustomerID,
		Lines: []InvoiceLineInput{
			{ItemID: hammer.ID, Quantity: 2},
			{ItemID: nails.ID, Quantity: 1},
		},
		DiscountPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.Equal(t, FormatInvoiceNumber(shop.ID, time.Now().Year(), 1), invoice.InvoiceNumber)
	assert.Equal(t, model.InvoiceUnpaid, invoice.Status)
	assert.Equal(t, owner.ID, invoice.CreatedByID)
	assert.Equal(t, "250.00", invoice.TotalValue.StringFixed(2))
	assert.Equal(t, "45.00", invoice.TotalGST.StringFixed(2))
	assert.Equal(t, "25.00", invoice.DiscountAmount.StringFixed(2))
	assert.Equal(t, "270.00", invoice.GrossAmount.StringFixed(2))
	assert.Equal(t, "270.00", invoice.NetPayable.StringFixed(2))
	assert.True(t, invoice.RoundOff.IsZero())

	assert.Equal(t, 8, env.stock(t, hammer.ID))
	assert.Equal(t, 9, env.stock(t, nails.ID))

	stored, err := env.Invoices.Get(shop.ID, invoice.InvoiceNumber)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestInvoiceService_LineOverrides(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Override Shop")
	principal := env.createCustomer(t, shop.ID, "over@mail.test", "1000000002")
	item := env.createItem(t, shop.ID, "Cement", 10, "400")

	invoice, err := env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: principal.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: item.ID, Quantity: 3, Rate: dec("333.33"), GSTPercent: dec("5")}},
		Status:     model.InvoicePaid,
	})
	require.NoError(t, err)
	// 999.99 + 50.00 gst = 1049.99, rounds to 1050
	assert.Equal(t, "999.99", invoice.TotalValue.StringFixed(2))
	assert.Equal(t, "50.00", invoice.TotalGST.StringFixed(2))
	assert.Equal(t, "1050.00", invoice.NetPayable.StringFixed(2))
	assert.Equal(t, "0.01", invoice.RoundOff.StringFixed(2))
	assert.Equal(t, model.InvoicePaid, invoice.Status)
}

func TestInvoiceService_Validation(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Valid Shop")
	principal := env.createCustomer(t, shop.ID, "valid@mail.test", "1000000003")
	item := env.createItem(t, shop.ID, "Brick", 10, "8")
	staff := staffOf(owner, shop.ID)

	cases := map[string]InvoiceInput{
		"items":            {CustomerID: principal.CustomerID},
		"quantity":         {CustomerID: principal.CustomerID, Lines: []InvoiceLineInput{{ItemID: item.ID}}},
		"discount_percent": {CustomerID: principal.CustomerID, Lines: []InvoiceLineInput{{ItemID: item.ID, Quantity: 1}}, DiscountPercent: decimal.NewFromInt(120)},
		"status":           {CustomerID: principal.CustomerID, Lines: []InvoiceLineInput{{ItemID: item.ID, Quantity: 1}}, Status: "Maybe"},
		"customer_id":      {Lines: []InvoiceLineInput{{ItemID: item.ID, Quantity: 1}}},
	}
	for field, input := range cases {
		_, err := env.Invoices.Create(staff, input)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}

	_, err := env.Invoices.Create(staff, InvoiceInput{
		CustomerID: principal.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: item.ID, Quantity: 1}, {ItemID: item.ID, Quantity: 2}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)
	assert.Equal(t, 10, env.stock(t, item.ID))
}

func TestInvoiceService_InsufficientStockRollsBack(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Short Shop")
	principal := env.createCustomer(t, shop.ID, "short@mail.test", "1000000004")
	plenty := env.createItem(t, shop.ID, "Plenty", 10, "5")
	scarce := env.createItem(t, shop.ID, "Scarce", 1, "5")

	_, err := env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: principal.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: plenty.ID, Quantity: 3}, {ItemID: scarce.ID, Quantity: 2}},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ItemID)

	assert.Equal(t, 10, env.stock(t, plenty.ID))
	assert.Equal(t, 1, env.stock(t, scarce.ID))
	_, total, err := env.Invoices.List(shop.ID, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInvoiceService_TenantScoping(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Scope Shop")
	_, other := env.createTenant(t, "Scope Other")
	foreignCustomer := env.createCustomer(t, other.ID, "foreign@mail.test", "1000000005")
	foreignItem := env.createItem(t, other.ID, "Foreign", 5, "5")
	localCustomer := env.createCustomer(t, shop.ID, "local@mail.test", "1000000006")

	_, err := env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: foreignCustomer.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: foreignItem.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, err = env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: localCustomer.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: foreignItem.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 5, env.stock(t, foreignItem.ID))
}

func TestInvoiceService_UpdateStatus(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Status Shop")
	_, other := env.createTenant(t, "Status Other")
	principal := env.createCustomer(t, shop.ID, "status@mail.test", "1000000007")
	item := env.createItem(t, shop.ID, "Paint", 5, "300")

	invoice, err := env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: principal.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := env.Invoices.UpdateStatus(shop.ID, invoice.InvoiceNumber, model.InvoicePaid)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, updated.Status)

	_, err = env.Invoices.UpdateStatus(other.ID, invoice.InvoiceNumber, model.InvoiceUnpaid)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = env.Invoices.UpdateStatus(shop.ID, invoice.InvoiceNumber, "Void")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	paid, total, err := env.Invoices.List(shop.ID, repository.InvoiceFilter{Status: model.InvoicePaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, paid, 1)
}

func TestDashboardService_Stats(t *testing.T) {
	env := setupEnv(t)
	owner, shop := env.createTenant(t, "Dash Shop")
	_, other := env.createTenant(t, "Dash Other")
	buyer := env.createCustomer(t, shop.ID, "dash@mail.test", "1000000008")
	env.createCustomer(t, other.ID, "noise@mail.test", "1000000009")
	item := env.createItem(t, shop.ID, "Bulb", 10, "40")
	env.createItem(t, shop.ID, "Fuse", 1, "10")
	env.createItem(t, other.ID, "Noise", 1, "10")

	_, err := env.Carts.AddItem(buyer, item.ID, 2)
	require.NoError(t, err)
	_, err = env.Orders.Checkout(buyer, CheckoutInput{PaymentMode: model.PaymentModeCash})
	require.NoError(t, err)

	_, err = env.Carts.AddItem(buyer, item.ID, 1)
	require.NoError(t, err)
	pending, err := env.Orders.Checkout(buyer, CheckoutInput{PaymentMode: model.PaymentModePayLater})
	require.NoError(t, err)
	_, err = env.Orders.Cancel(buyer, pending.OrderNumber)
	require.NoError(t, err)

	_, err = env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: buyer.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: item.ID, Quantity: 1, GSTPercent: dec("0")}},
		Status:     model.InvoicePaid,
	})
	require.NoError(t, err)
	_, err = env.Invoices.Create(staffOf(owner, shop.ID), InvoiceInput{
		CustomerID: buyer.CustomerID,
		Lines:      []InvoiceLineInput{{ItemID: item.ID, Quantity: 2, GSTPercent: dec("0")}},
	})
	require.NoError(t, err)

	stats, err := env.Dashboard.Stats(shop.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Customers)
	assert.Equal(t, int64(2), stats.Items)
	assert.Equal(t, int64(1), stats.LowStockItems)
	assert.Equal(t, int64(2), stats.Orders)
	assert.Equal(t, int64(1), stats.OrdersByStatus[model.OrderStatusConfirmed])
	assert.Equal(t, int64(1), stats.OrdersByStatus[model.OrderStatusCancelled])
	assert.Equal(t, int64(2), stats.Invoices)
	assert.Equal(t, "80.00", stats.OrderRevenue.StringFixed(2))
	assert.Equal(t, "40.00", stats.InvoiceRevenue.StringFixed(2))
	assert.Equal(t, "80.00", stats.OutstandingInvoice.StringFixed(2))
	assert.Equal(t, "120.00", stats.TotalRevenue.StringFixed(2))
	assert.Equal(t, "80.00", stats.RevenueLast30Days.StringFixed(2))
}
