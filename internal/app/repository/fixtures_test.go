package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/db"
	"github.com/storefront/commerce-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createBusiness(t *testing.T, testDB *gorm.DB, name string) *model.BusinessEntity {
	owner := &model.User{
		Name:         name + " Owner",
		Email:        util.Slugify(name) + "@owner.test",
		Phone:        "90-" + util.Slugify(name),
		PasswordHash: "hash",
	}
	require.NoError(t, testDB.Create(owner).Error)

	business := &model.BusinessEntity{OwnerID: owner.ID, Name: name, Status: model.BusinessActive}
	require.NoError(t, testDB.Create(business).Error)
	return business
}

func createItem(t *testing.T, testDB *gorm.DB, businessID uint, name string, qty int, price int64) *model.Item {
	item := &model.Item{
		BusinessID: businessID,
		Name:       name,
		Quantity:   qty,
		MinStock:   2,
		Price:      decimal.NewFromInt(price),
		GSTPercent: decimal.NewFromInt(18),
	}
	require.NoError(t, testDB.Create(item).Error)
	return item
}

func createCustomer(t *testing.T, testDB *gorm.DB, businessID uint, email, phone string) *model.Customer {
	customer := &model.Customer{BusinessID: businessID, Name: "Customer " + phone, Email: email, Phone: phone}
	require.NoError(t, testDB.Create(customer).Error)
	return customer
}
