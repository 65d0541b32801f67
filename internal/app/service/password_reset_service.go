package service

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

// PasswordResetService resets staff passwords with an emailed code.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(email, code, newPassword string) error
}

type passwordResetService struct {
	userRepo repository.UserRepository
	policy   OTPPolicy
	throttle RequestThrottle
	notifier notify.Notifier
	now      func() time.Time
}

func NewPasswordResetService(userRepo repository.UserRepository, policy OTPPolicy, deps Dependencies) PasswordResetService {
	deps = deps.withDefaults()
	return &passwordResetService{
		userRepo: userRepo,
		policy:   policy.withDefaults(),
		throttle: deps.Throttle,
		notifier: deps.Notifier,
		now:      time.Now,
	}
}

// RequestReset always succeeds for unknown emails so the endpoint cannot
// be used to probe which addresses have accounts.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := throttleOTP(ctx, s.throttle, s.policy, "staff:"+email); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Password reset requested for unknown email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		return err
	}

	otp, err := issueOTP(otpPurposeReset, s.policy.TTL, s.now())
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetOTP(user.ID, otp.Stored, &otp.ExpireAt); err != nil {
		return err
	}

	notify.Dispatch(s.notifier, notify.Message{
		Kind:    notify.KindPasswordReset,
		To:      user.Email,
		Subject: "Your password reset code",
		Body:    "Use code " + otp.Code + " to reset your password. It expires in " + s.policy.TTL.String() + ".",
		Data:    map[string]string{"code": otp.Code},
	})

	logger.Info("Password reset code issued", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

func (s *passwordResetService) ResetPassword(email, code, newPassword string) error {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return err
	}

	if err := checkOTP(user.ResetOTPHash, user.ResetOTPExpiry, otpPurposeReset, code, s.now()); err != nil {
		logger.Warn("Password reset rejected", map[string]interface{}{
			"user_id": user.ID,
			"reason":  err.Error(),
		})
		if errors.Is(err, ErrInvalidCode) && user.ResetOTPHash != "" {
			if _, ferr := s.userRepo.RecordResetOTPFailure(user.ID, user.ResetOTPHash, s.policy.MaxVerifyAttempts); ferr != nil {
				return ferr
			}
		}
		return err
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, util.ErrPasswordTooShort) {
			return NewValidationError("new_password", err.Error())
		}
		return err
	}

	reset, err := s.userRepo.ResetPasswordWithOTP(user.ID, user.ResetOTPHash, hash)
	if err != nil {
		return err
	}
	if !reset {
		return ErrInvalidCode
	}

	logger.Info("Password reset completed", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}
