package repository

import (
	"time"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

// CustomerFilter narrows staff customer listings.
type CustomerFilter struct {
	Search string
	Limit  int
	Offset int
}

// CustomerRepository never looks a customer up by id alone: every read is
// constrained by the owning business.
type CustomerRepository interface {
	WithTx(tx *gorm.DB) CustomerRepository
	Create(customer *model.Customer) error
	FindByIDAndBusiness(id, businessID uint) (*model.Customer, error)
	FindByEmail(businessID uint, email string) (*model.Customer, error)
	FindByPhone(businessID uint, phone string) (*model.Customer, error)
	List(businessID uint, filter CustomerFilter) ([]model.Customer, int64, error)
	Update(customer *model.Customer) error
	Delete(id, businessID uint) error
	SetOTP(id, businessID uint, otpHash string, expiry *time.Time) error
	ConsumeOTP(id, businessID uint, otpHash string) (bool, error)
	RecordOTPFailure(id, businessID uint, otpHash string, maxAttempts int) (bool, error)
	UpdatePassword(id, businessID uint, passwordHash string) error
	CountByBusiness(businessID uint) (int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) WithTx(tx *gorm.DB) CustomerRepository {
	return &customerRepository{db: tx}
}

func (r *customerRepository) Create(customer *model.Customer) error {
	logger.Debug("Creating customer in database", map[string]interface{}{
		"business_id": customer.BusinessID,
		"email":       customer.Email,
	})

	if err := r.db.Create(customer).Error; err != nil {
		logger.Error("Failed to create customer in database", err, map[string]interface{}{
			"business_id": customer.BusinessID,
			"email":       customer.Email,
		})
		return err
	}

	logger.Debug("Customer created in database", map[string]interface{}{
		"customer_id": customer.ID,
		"business_id": customer.BusinessID,
	})
	return nil
}

func (r *customerRepository) FindByIDAndBusiness(id, businessID uint) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.Where("id = ? AND business_id = ?", id, businessID).First(&customer).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find customer", err, map[string]interface{}{
				"customer_id": id,
				"business_id": businessID,
			})
		}
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByEmail(businessID uint, email string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("business_id = ? AND email = ?", businessID, email).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByPhone(businessID uint, phone string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("business_id = ? AND phone = ?", businessID, phone).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(businessID uint, filter CustomerFilter) ([]model.Customer, int64, error) {
	logger.Debug("Listing customers", map[string]interface{}{
		"business_id": businessID,
		"search":      filter.Search,
	})

	query := r.db.Model(&model.Customer{}).Where("business_id = ?", businessID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR email LIKE ? OR phone LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count customers", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var customers []model.Customer
	if err := query.Order("name").Find(&customers).Error; err != nil {
		logger.Error("Failed to list customers", err, map[string]interface{}{
			"business_id": businessID,
		})
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *customerRepository) Update(customer *model.Customer) error {
	err := r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ?", customer.ID, customer.BusinessID).
		Updates(map[string]interface{}{
			"name":    customer.Name,
			"email":   customer.Email,
			"phone":   customer.Phone,
			"address": customer.Address,
			"city":    customer.City,
			"state":   customer.State,
			"pincode": customer.Pincode,
		}).Error
	if err != nil {
		logger.Error("Failed to update customer", err, map[string]interface{}{
			"customer_id": customer.ID,
			"business_id": customer.BusinessID,
		})
	}
	return err
}

func (r *customerRepository) Delete(id, businessID uint) error {
	result := r.db.Where("id = ? AND business_id = ?", id, businessID).Delete(&model.Customer{})
	if result.Error != nil {
		logger.Error("Failed to delete customer", result.Error, map[string]interface{}{
			"customer_id": id,
			"business_id": businessID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *customerRepository) SetOTP(id, businessID uint, otpHash string, expiry *time.Time) error {
	return r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(map[string]interface{}{"otp_hash": otpHash, "otp_expiry": expiry, "otp_attempts": 0}).Error
}

// ConsumeOTP clears the code only while otpHash is still outstanding. Of two
// concurrent verifications with the same code only one gets true.
func (r *customerRepository) ConsumeOTP(id, businessID uint, otpHash string) (bool, error) {
	result := r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ? AND otp_hash = ?", id, businessID, otpHash).
		Updates(map[string]interface{}{"otp_hash": "", "otp_expiry": nil, "otp_attempts": 0})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RecordOTPFailure counts a wrong guess and discards the code once
// maxAttempts is reached. It reports whether the code was discarded.
func (r *customerRepository) RecordOTPFailure(id, businessID uint, otpHash string, maxAttempts int) (bool, error) {
	err := r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ? AND otp_hash = ?", id, businessID, otpHash).
		Update("otp_attempts", gorm.Expr("otp_attempts + 1")).Error
	if err != nil {
		return false, err
	}

	result := r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ? AND otp_hash = ? AND otp_attempts >= ?", id, businessID, otpHash, maxAttempts).
		Updates(map[string]interface{}{"otp_hash": "", "otp_expiry": nil, "otp_attempts": 0})
	return result.RowsAffected > 0, result.Error
}

func (r *customerRepository) UpdatePassword(id, businessID uint, passwordHash string) error {
	return r.db.Model(&model.Customer{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"otp_hash":      "",
			"otp_expiry":    nil,
			"otp_attempts":  0,
		}).Error
}

func (r *customerRepository) CountByBusiness(businessID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Customer{}).Where("business_id = ?", businessID).Count(&count).Error
	return count, err
}
