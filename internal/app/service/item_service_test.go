package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_CreateValidates(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Catalog Shop")

	item, err := env.Items.Create(shop.ID, ItemInput{
		Name:       "  Basmati Rice  ",
		Quantity:   40,
		MinStock:   5,
		Price:      decimal.RequireFromString("120.50"),
		GSTPercent: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", item.Name)

	cases := map[string]ItemInput{
		"name":        {Price: decimal.NewFromInt(1)},
		"quantity":    {Name: "x", Quantity: -1},
		"price":       {Name: "x", Price: decimal.NewFromInt(-1)},
		"gst_percent": {Name: "x", GSTPercent: decimal.NewFromInt(101)},
	}
	for field, input := range cases {
		_, err := env.Items.Create(shop.ID, input)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}
}

func TestItemService_TenantIsolation(t *testing.T) {
	env := setupEnv(t)
	_, shopA := env.createTenant(t, "Iso A")
	_, shopB := env.createTenant(t, "Iso B")
	item := env.createItem(t, shopA.ID, "Soap", 10, "30")

	_, err := env.Items.Get(shopB.ID, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	name := "Stolen"
	_, err = env.Items.Update(shopB.ID, item.ID, UpdateItemInput{Name: &name})
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.ErrorIs(t, env.Items.Delete(shopB.ID, item.ID), ErrItemNotFound)

	_, err = env.Items.AdjustStock(shopB.ID, item.ID, 5)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 10, env.stock(t, item.ID))
}

func TestItemService_AdjustStock(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Stock Shop")
	item := env.createItem(t, shop.ID, "Oil", 3, "150")

	adjusted, err := env.Items.AdjustStock(shop.ID, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 10, adjusted.Quantity)

	_, err = env.Items.AdjustStock(shop.ID, item.ID, -11)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, stockErr.Available)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.Items.AdjustStock(shop.ID, item.ID, 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	adjusted, err = env.Items.AdjustStock(shop.ID, item.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, adjusted.Quantity)
}

func TestItemService_PublicCatalogHidesHiddenItems(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Public Shop")
	visible := env.createItem(t, shop.ID, "Visible", 5, "10")
	hidden := env.createItem(t, shop.ID, "Hidden", 5, "10")

	hide := true
	_, err := env.Items.Update(shop.ID, hidden.ID, UpdateItemInput{Hidden: &hide})
	require.NoError(t, err)

	items, total, err := env.Items.ListPublic(shop.ID, repository.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, visible.ID, items[0].ID)

	_, err = env.Items.GetPublic(shop.ID, hidden.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	all, total, err := env.Items.List(shop.ID, repository.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestItemService_LowStock(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Low Shop")
	env.createItem(t, shop.ID, "Plenty", 50, "10")
	low := env.createItem(t, shop.ID, "Scarce", 2, "10")

	items, err := env.Items.LowStock(shop.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ID)
}

func TestCustomerService_CRUD(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Book Shop")
	_, other := env.createTenant(t, "Other Book Shop")

	customer, err := env.Customers.Create(shop.ID, CustomerInput{Name: "Dev", Email: "Dev@Mail.test", Phone: "6000000001"})
	require.NoError(t, err)
	assert.Equal(t, "dev@mail.test", customer.Email)

	_, err = env.Customers.Create(shop.ID, CustomerInput{Name: "Dup", Email: "dev@mail.test", Phone: "6000000002"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	_, err = env.Customers.Create(shop.ID, CustomerInput{Name: "Dup", Email: "dup@mail.test", Phone: "6000000001"})
	assert.ErrorIs(t, err, ErrPhoneAlreadyExists)

	_, err = env.Customers.Get(other.ID, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	city := "Nagpur"
	updated, err := env.Customers.Update(shop.ID, customer.ID, UpdateCustomerInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Nagpur", updated.City)

	list, total, err := env.Customers.List(shop.ID, repository.CustomerFilter{Search: "dev"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, env.Customers.Delete(other.ID, customer.ID), ErrCustomerNotFound)
	require.NoError(t, env.Customers.Delete(shop.ID, customer.ID))
	_, err = env.Customers.Get(shop.ID, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestItemService_Import(t *testing.T) {
	env := setupEnv(t)
	_, shop := env.createTenant(t, "Import Shop")

	count, err := env.Items.Import(shop.ID, []model.Item{
		{Name: "Rice", Quantity: 40, Price: decimal.NewFromInt(60)},
		{Name: "Dal", Quantity: 25, Price: decimal.NewFromInt(110), BusinessID: 999},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items, total, err := env.Items.List(shop.ID, repository.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, item := range items {
		assert.Equal(t, shop.ID, item.BusinessID)
	}

	_, err = env.Items.Import(shop.ID, []model.Item{
		{Name: "Oil", Quantity: 5, Price: decimal.NewFromInt(150)},
		{Name: "", Quantity: 1, Price: decimal.NewFromInt(1)},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "row 3")

	_, total, err = env.Items.List(shop.ID, repository.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "a rejected sheet inserts nothing")

	_, err = env.Items.Import(shop.ID, nil)
	assert.ErrorAs(t, err, &verr)
}
