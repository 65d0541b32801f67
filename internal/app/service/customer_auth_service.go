package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

type CustomerSignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Address  string
	City     string
	State    string
	Pincode  string
}

// CustomerAuthService authenticates customers of one business. Every
// lookup is by (business, identifier); the same email under another
// business is a different account.
type CustomerAuthService interface {
	Signup(businessID uint, input CustomerSignupInput) (*model.Customer, *util.TokenPair, error)
	Login(businessID uint, identifier, password string) (*model.Customer, *util.TokenPair, error)
	RequestLoginOTP(ctx context.Context, businessID uint, identifier string) error
	VerifyLoginOTP(businessID uint, identifier, code string) (*model.Customer, *util.TokenPair, error)
	RequestPasswordReset(ctx context.Context, businessID uint, identifier string) error
	ResetPassword(businessID uint, identifier, code, newPassword string) error
	Refresh(ctx context.Context, businessID uint, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*model.Customer, error)
}

type customerAuthService struct {
	customerRepo repository.CustomerRepository
	tokens       TokenSettings
	policy       OTPPolicy
	revoker      TokenRevoker
	throttle     RequestThrottle
	notifier     notify.Notifier
	now          func() time.Time
}

func NewCustomerAuthService(customerRepo repository.CustomerRepository, tokens TokenSettings, policy OTPPolicy, deps Dependencies) CustomerAuthService {
	deps = deps.withDefaults()
	return &customerAuthService{
		customerRepo: customerRepo,
		tokens:       tokens,
		policy:       policy.withDefaults(),
		revoker:      deps.Revoker,
		throttle:     deps.Throttle,
		notifier:     deps.Notifier,
		now:          time.Now,
	}
}

func (s *customerAuthService) Signup(businessID uint, input CustomerSignupInput) (*model.Customer, *util.TokenPair, error) {
	customer := &model.Customer{
		BusinessID: businessID,
		Name:       strings.TrimSpace(input.Name),
		Email:      normalizeEmail(input.Email),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    input.Address,
		City:       input.City,
		State:      input.State,
		Pincode:    input.Pincode,
	}

	logger.Info("Customer signup attempt", map[string]interface{}{
		"business_id": businessID,
		"email":       customer.Email,
	})

	if err := validateCustomerContact(customer); err != nil {
		return nil, nil, err
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, util.ErrPasswordTooShort) {
			return nil, nil, NewValidationError("password", err.Error())
		}
		return nil, nil, err
	}
	customer.PasswordHash = hash

	if err := ensureContactFree(s.customerRepo, customer, 0); err != nil {
		return nil, nil, err
	}

	if err := s.customerRepo.Create(customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, ErrEmailAlreadyExists
		}
		return nil, nil, err
	}

	tokens, err := s.issue(customer)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Customer signed up", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
	})
	return customer, tokens, nil
}

// Login accepts either the email or the phone number as identifier.
func (s *customerAuthService) Login(businessID uint, identifier, password string) (*model.Customer, *util.TokenPair, error) {
	customer, err := s.findByIdentifier(businessID, identifier)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			logger.Warn("Customer login failed: unknown identifier", map[string]interface{}{
				"business_id": businessID,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(customer.PasswordHash, password) {
		logger.Warn("Customer login failed: wrong password", map[string]interface{}{
			"business_id": businessID,
			"customer_id": customer.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(customer)
	if err != nil {
		return nil, nil, err
	}
	return customer, tokens, nil
}

func (s *customerAuthService) RequestLoginOTP(ctx context.Context, businessID uint, identifier string) error {
	return s.sendCode(ctx, businessID, identifier, otpPurposeLogin)
}

func (s *customerAuthService) VerifyLoginOTP(businessID uint, identifier, code string) (*model.Customer, *util.TokenPair, error) {
	customer, err := s.consumeCode(businessID, identifier, otpPurposeLogin, code)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issue(customer)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Customer logged in with code", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
	})
	return customer, tokens, nil
}

func (s *customerAuthService) RequestPasswordReset(ctx context.Context, businessID uint, identifier string) error {
	return s.sendCode(ctx, businessID, identifier, otpPurposeReset)
}

func (s *customerAuthService) ResetPassword(businessID uint, identifier, code, newPassword string) error {
	hash, err := util.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, util.ErrPasswordTooShort) {
			return NewValidationError("new_password", err.Error())
		}
		return err
	}

	customer, err := s.consumeCode(businessID, identifier, otpPurposeReset, code)
	if err != nil {
		return err
	}

	if err := s.customerRepo.UpdatePassword(customer.ID, businessID, hash); err != nil {
		return err
	}

	logger.Info("Customer password reset", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
	})
	return nil
}

// Refresh rotates a customer pair presented on businessID's storefront. A
// token bound to another business fails before anything is revoked.
func (s *customerAuthService) Refresh(ctx context.Context, businessID uint, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateCustomerToken(refreshToken, s.tokens.Secret, util.TokenUseRefresh)
	if err != nil {
		return nil, err
	}
	if claims.BusinessID != businessID {
		logger.Warn("Customer refresh rejected: business mismatch", map[string]interface{}{
			"customer_id":    claims.CustomerID,
			"token_business": claims.BusinessID,
			"path_business":  businessID,
		})
		return nil, util.ErrInvalidToken
	}

	customer, err := s.customerRepo.FindByIDAndBusiness(claims.CustomerID, claims.BusinessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	first, err := s.revoker.RevokeOnce(ctx, claims.ID, util.RemainingLifetime(claims.ExpiresAt))
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrTokenRevoked
	}
	return s.issue(customer)
}

func (s *customerAuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := util.ValidateCustomerToken(refreshToken, s.tokens.Secret, util.TokenUseRefresh)
	if err != nil {
		return err
	}
	return s.revoker.Revoke(ctx, claims.ID, util.RemainingLifetime(claims.ExpiresAt))
}

// Authenticate re-fetches the customer by the token's (customer, business)
// pair. A token whose customer moved or was deleted stops working.
func (s *customerAuthService) Authenticate(ctx context.Context, accessToken string) (*model.Customer, error) {
	claims, err := util.ValidateCustomerToken(accessToken, s.tokens.Secret, util.TokenUseAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	customer, err := s.customerRepo.FindByIDAndBusiness(claims.CustomerID, claims.BusinessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// sendCode issues a code for purpose. Unknown identifiers succeed silently.
func (s *customerAuthService) sendCode(ctx context.Context, businessID uint, identifier, purpose string) error {
	key := fmt.Sprintf("customer:%d:%s", businessID, strings.ToLower(strings.TrimSpace(identifier)))
	if err := throttleOTP(ctx, s.throttle, s.policy, key); err != nil {
		logger.Warn("Code request throttled", map[string]interface{}{
			"business_id": businessID,
			"purpose":     purpose,
		})
		return err
	}

	customer, err := s.findByIdentifier(businessID, identifier)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			logger.Warn("Code requested for unknown customer", map[string]interface{}{
				"business_id": businessID,
				"purpose":     purpose,
			})
			return nil
		}
		return err
	}

	otp, err := issueOTP(purpose, s.policy.TTL, s.now())
	if err != nil {
		return err
	}
	if err := s.customerRepo.SetOTP(customer.ID, businessID, otp.Stored, &otp.ExpireAt); err != nil {
		return err
	}

	kind, subject := notify.KindOTP, "Your login code"
	if purpose == otpPurposeReset {
		kind, subject = notify.KindPasswordReset, "Your password reset code"
	}
	notify.Dispatch(s.notifier, notify.Message{
		Kind:       kind,
		BusinessID: businessID,
		To:         customer.Email,
		Subject:    subject,
		Body:       "Your code is " + otp.Code + ". It expires in " + s.policy.TTL.String() + ".",
		Data:       map[string]string{"code": otp.Code, "phone": customer.Phone},
	})

	logger.Info("Customer code issued", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
		"purpose":     purpose,
	})
	return nil
}

// consumeCode verifies and clears the outstanding code. A wrong guess is
// counted against the code, which is discarded after MaxVerifyAttempts.
func (s *customerAuthService) consumeCode(businessID uint, identifier, purpose, code string) (*model.Customer, error) {
	customer, err := s.findByIdentifier(businessID, identifier)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	if err := checkOTP(customer.OTPHash, customer.OTPExpiry, purpose, code, s.now()); err != nil {
		logger.Warn("Customer code rejected", map[string]interface{}{
			"business_id": businessID,
			"customer_id": customer.ID,
			"reason":      err.Error(),
		})
		if errors.Is(err, ErrInvalidCode) && customer.OTPHash != "" {
			discarded, ferr := s.customerRepo.RecordOTPFailure(customer.ID, businessID, customer.OTPHash, s.policy.MaxVerifyAttempts)
			if ferr != nil {
				return nil, ferr
			}
			if discarded {
				logger.Warn("Customer code discarded after too many attempts", map[string]interface{}{
					"business_id": businessID,
					"customer_id": customer.ID,
				})
			}
		}
		return nil, err
	}

	consumed, err := s.customerRepo.ConsumeOTP(customer.ID, businessID, customer.OTPHash)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidCode
	}
	return customer, nil
}

func (s *customerAuthService) findByIdentifier(businessID uint, identifier string) (*model.Customer, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrCustomerNotFound
	}

	var (
		customer *model.Customer
		err      error
	)
	if strings.Contains(identifier, "@") {
		customer, err = s.customerRepo.FindByEmail(businessID, normalizeEmail(identifier))
	} else {
		customer, err = s.customerRepo.FindByPhone(businessID, identifier)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerAuthService) issue(customer *model.Customer) (*util.TokenPair, error) {
	return util.GenerateCustomerTokenPair(customer.ID, customer.BusinessID, s.tokens.Secret, s.tokens.AccessExpiry, s.tokens.RefreshExpiry)
}

func validateCustomerContact(c *model.Customer) error {
	if c.Name == "" {
		return NewValidationError("name", "name is required")
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return NewValidationError("email", "a valid email is required")
	}
	if c.Phone == "" {
		return NewValidationError("phone", "phone is required")
	}
	return nil
}

// ensureContactFree rejects an email or phone already used by another
// customer of the same business. selfID excludes the customer being edited.
func ensureContactFree(repo repository.CustomerRepository, c *model.Customer, selfID uint) error {
	if existing, err := repo.FindByEmail(c.BusinessID, c.Email); err == nil && existing.ID != selfID {
		return ErrEmailAlreadyExists
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if existing, err := repo.FindByPhone(c.BusinessID, c.Phone); err == nil && existing.ID != selfID {
		return ErrPhoneAlreadyExists
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
