package repository

import (
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

type BusinessRepository interface {
	WithTx(tx *gorm.DB) BusinessRepository
	Create(business *model.BusinessEntity) error
	FindByID(id uint) (*model.BusinessEntity, error)
	FindBySlug(slug string) (*model.BusinessEntity, error)
	Update(business *model.BusinessEntity) error
	ListAll() ([]model.BusinessEntity, error)
	AddMember(member *model.BusinessMember) error
	FindMember(userID, businessID uint) (*model.BusinessMember, error)
	ListForUser(userID uint) ([]model.BusinessEntity, error)
	ListMembers(businessID uint) ([]model.BusinessMember, error)
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) WithTx(tx *gorm.DB) BusinessRepository {
	return &businessRepository{db: tx}
}

func (r *businessRepository) Create(business *model.BusinessEntity) error {
	logger.Debug("Creating business in database", map[string]interface{}{
		"owner_id": business.OwnerID,
		"name":     business.Name,
	})

	if err := r.db.Create(business).Error; err != nil {
		logger.Error("Failed to create business in database", err, map[string]interface{}{
			"owner_id": business.OwnerID,
			"name":     business.Name,
		})
		return err
	}

	logger.Debug("Business created in database", map[string]interface{}{
		"business_id": business.ID,
		"slug":        business.Slug,
	})
	return nil
}

func (r *businessRepository) FindByID(id uint) (*model.BusinessEntity, error) {
	var business model.BusinessEntity
	if err := r.db.First(&business, id).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) FindBySlug(slug string) (*model.BusinessEntity, error) {
	logger.Debug("Finding business by slug", map[string]interface{}{
		"slug": slug,
	})

	var business model.BusinessEntity
	if err := r.db.Where("slug = ?", slug).First(&business).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find business by slug", err, map[string]interface{}{
				"slug": slug,
			})
		}
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) Update(business *model.BusinessEntity) error {
	if err := r.db.Save(business).Error; err != nil {
		logger.Error("Failed to update business in database", err, map[string]interface{}{
			"business_id": business.ID,
		})
		return err
	}
	return nil
}

func (r *businessRepository) ListAll() ([]model.BusinessEntity, error) {
	var businesses []model.BusinessEntity
	if err := r.db.Where("status = ?", model.BusinessActive).Order("id").Find(&businesses).Error; err != nil {
		logger.Error("Failed to list businesses", err)
		return nil, err
	}
	return businesses, nil
}

func (r *businessRepository) AddMember(member *model.BusinessMember) error {
	if err := r.db.Create(member).Error; err != nil {
		logger.Error("Failed to add business member", err, map[string]interface{}{
			"user_id":     member.UserID,
			"business_id": member.BusinessID,
		})
		return err
	}
	return nil
}

func (r *businessRepository) FindMember(userID, businessID uint) (*model.BusinessMember, error) {
	var member model.BusinessMember
	err := r.db.Where("user_id = ? AND business_id = ?", userID, businessID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *businessRepository) ListForUser(userID uint) ([]model.BusinessEntity, error) {
	var businesses []model.BusinessEntity
	err := r.db.
		Joins("JOIN business_members ON business_members.business_id = business_entities.id").
		Where("business_members.user_id = ?", userID).
		Order("business_entities.id").
		Find(&businesses).Error
	if err != nil {
		logger.Error("Failed to list businesses for user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return businesses, nil
}

func (r *businessRepository) ListMembers(businessID uint) ([]model.BusinessMember, error) {
	var members []model.BusinessMember
	if err := r.db.Where("business_id = ?", businessID).Order("id").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
