package db

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.BusinessEntity{},
		&model.BusinessMember{},
		&model.Customer{},
		&model.Item{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.DocumentSequence{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed creates a demo owner, business and a few items on an empty database.
func Seed() error {
	return seedDemoTenant(DB)
}

func seedDemoTenant(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Users already present, skipping demo seed", map[string]interface{}{
			"existing_users": count,
		})
		return nil
	}

	logger.Info("Seeding demo tenant...")

	hash, err := util.HashPassword("demo-password")
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		owner := &model.User{
			Name:         "Demo Owner",
			Email:        "owner@demo.local",
			Phone:        "9000000000",
			PasswordHash: hash,
		}
		if err := tx.Create(owner).Error; err != nil {
			return err
		}

		business := &model.BusinessEntity{
			OwnerID:      owner.ID,
			Name:         "Demo Store",
			BusinessType: "retail",
			Status:       model.BusinessActive,
		}
		if err := tx.Create(business).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.BusinessMember{UserID: owner.ID, BusinessID: business.ID, Role: model.MemberOwner}).Error; err != nil {
			return err
		}
		if err := tx.Model(owner).Update("active_business_id", business.ID).Error; err != nil {
			return err
		}

		items := []model.Item{
			{BusinessID: business.ID, Name: "Widget", Category: "general", Unit: "pcs", Quantity: 50, MinStock: 5, Price: decimal.NewFromInt(100), CostPrice: decimal.NewFromInt(70), GSTPercent: decimal.NewFromInt(18)},
			{BusinessID: business.ID, Name: "Gadget", Category: "general", Unit: "pcs", Quantity: 20, MinStock: 5, Price: decimal.NewFromInt(50), CostPrice: decimal.NewFromInt(30), GSTPercent: decimal.NewFromInt(18)},
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		logger.Info("Demo tenant seeded", map[string]interface{}{
			"business_slug": business.Slug,
			"items":         len(items),
		})
		return nil
	})
}
