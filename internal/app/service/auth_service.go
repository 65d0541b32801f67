package service

import (
	"context"
	"errors"
	"strings"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthService authenticates staff users.
type AuthService interface {
	Register(input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(email, password string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*model.User, *util.Claims, error)
	GetUserByID(id uint) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	tokens   TokenSettings
	revoker  TokenRevoker
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenSettings, deps Dependencies) AuthService {
	deps = deps.withDefaults()
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		revoker:  deps.Revoker,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, *util.TokenPair, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)

	logger.Info("Attempting staff registration", map[string]interface{}{
		"email": email,
	})

	if name == "" {
		return nil, nil, NewValidationError("name", "name is required")
	}
	if email == "" {
		return nil, nil, NewValidationError("email", "email is required")
	}
	if phone == "" {
		return nil, nil, NewValidationError("phone", "phone is required")
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if _, err := s.userRepo.FindByPhone(phone); err == nil {
		return nil, nil, ErrPhoneAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, util.ErrPasswordTooShort) {
			return nil, nil, NewValidationError("password", err.Error())
		}
		logger.Error("Failed to hash password", err)
		return nil, nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, ErrEmailAlreadyExists
		}
		return nil, nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Staff user registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, tokens, nil
}

func (s *authService) Login(email, password string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Staff login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: unknown email", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: wrong password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Staff login successful", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

// Refresh rotates the pair: the presented refresh token is revoked and a
// new pair is issued.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.tokens.Secret, util.TokenUseRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// revoking is the check: a token already rotated or logged out loses here
	first, err := s.revoker.RevokeOnce(ctx, claims.ID, util.RemainingLifetime(claims.ExpiresAt))
	if err != nil {
		return nil, err
	}
	if !first {
		logger.Warn("Refresh with revoked token", map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil, ErrTokenRevoked
	}
	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := util.ValidateToken(refreshToken, s.tokens.Secret, util.TokenUseRefresh)
	if err != nil {
		return err
	}

	if err := s.revoker.Revoke(ctx, claims.ID, util.RemainingLifetime(claims.ExpiresAt)); err != nil {
		return err
	}

	logger.Info("Staff user logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

// Authenticate validates a staff access token and loads the user row.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*model.User, *util.Claims, error) {
	claims, err := util.ValidateToken(accessToken, s.tokens.Secret, util.TokenUseAccess)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) issue(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, s.tokens.Secret, s.tokens.AccessExpiry, s.tokens.RefreshExpiry)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
