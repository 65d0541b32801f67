package db

import (
	"testing"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemoTenant_Idempotent(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, seedDemoTenant(testDB))
	require.NoError(t, seedDemoTenant(testDB))

	var users, items int64
	testDB.Model(&model.User{}).Count(&users)
	testDB.Model(&model.Item{}).Count(&items)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(2), items)

	var business model.BusinessEntity
	require.NoError(t, testDB.First(&business).Error)
	assert.Equal(t, "demo-store", business.Slug)
}

func TestTruncateAllTables(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, seedDemoTenant(testDB))
	require.NoError(t, TruncateAllTables(testDB))

	var users int64
	testDB.Model(&model.User{}).Count(&users)
	assert.Zero(t, users)
}
