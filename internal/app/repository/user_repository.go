package repository

import (
	"time"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByPhone(phone string) (*model.User, error)
	Update(user *model.User) error
	SetActiveBusiness(userID, businessID uint) error
	SetResetOTP(userID uint, otpHash string, expiry *time.Time) error
	ResetPasswordWithOTP(userID uint, otpHash, passwordHash string) (bool, error)
	RecordResetOTPFailure(userID uint, otpHash string, maxAttempts int) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find user by ID", err, map[string]interface{}{
				"user_id": id,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find user by email", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByPhone(phone string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *model.User) error {
	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) SetActiveBusiness(userID, businessID uint) error {
	logger.Debug("Setting default business for user", map[string]interface{}{
		"user_id":     userID,
		"business_id": businessID,
	})

	err := r.db.Model(&model.User{}).Where("id = ?", userID).Update("active_business_id", businessID).Error
	if err != nil {
		logger.Error("Failed to set default business", err, map[string]interface{}{
			"user_id":     userID,
			"business_id": businessID,
		})
	}
	return err
}

func (r *userRepository) SetResetOTP(userID uint, otpHash string, expiry *time.Time) error {
	err := r.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_otp_hash":     otpHash,
		"reset_otp_expiry":   expiry,
		"reset_otp_attempts": 0,
	}).Error
	if err != nil {
		logger.Error("Failed to store password reset code", err, map[string]interface{}{
			"user_id": userID,
		})
	}
	return err
}

// ResetPasswordWithOTP sets the password only while otpHash is still the
// outstanding code, so one code resets at most once.
func (r *userRepository) ResetPasswordWithOTP(userID uint, otpHash, passwordHash string) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND reset_otp_hash = ?", userID, otpHash).
		Updates(map[string]interface{}{
			"password_hash":      passwordHash,
			"reset_otp_hash":     "",
			"reset_otp_expiry":   nil,
			"reset_otp_attempts": 0,
		})
	if result.Error != nil {
		logger.Error("Failed to reset user password", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RecordResetOTPFailure counts a wrong guess and discards the code once
// maxAttempts is reached. It reports whether the code was discarded.
func (r *userRepository) RecordResetOTPFailure(userID uint, otpHash string, maxAttempts int) (bool, error) {
	err := r.db.Model(&model.User{}).
		Where("id = ? AND reset_otp_hash = ?", userID, otpHash).
		Update("reset_otp_attempts", gorm.Expr("reset_otp_attempts + 1")).Error
	if err != nil {
		return false, err
	}

	result := r.db.Model(&model.User{}).
		Where("id = ? AND reset_otp_hash = ? AND reset_otp_attempts >= ?", userID, otpHash, maxAttempts).
		Updates(map[string]interface{}{
			"reset_otp_hash":     "",
			"reset_otp_expiry":   nil,
			"reset_otp_attempts": 0,
		})
	return result.RowsAffected > 0, result.Error
}
