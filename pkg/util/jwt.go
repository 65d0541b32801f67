package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Token kinds. A token of one kind never validates as the other.
const (
	TokenTypeStaff    = "staff"
	TokenTypeCustomer = "customer"
)

// Token uses. Refresh tokens are not accepted where an access token is expected.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are carried by staff tokens; the subject is the User id.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

// CustomerClaims are carried by customer tokens and pin the tenant.
type CustomerClaims struct {
	Type       string `json:"type"`
	CustomerID uint   `json:"customer_id"`
	BusinessID uint   `json:"business_id"`
	Use        string `json:"use"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// GenerateTokenPair issues a staff access/refresh pair.
func GenerateTokenPair(userID uint, email, secret string, accessExpiry, refreshExpiry time.Duration) (*TokenPair, error) {
	if userID == 0 {
		return nil, fmt.Errorf("generate staff token: %w", ErrInvalidToken)
	}

	access, err := signStaff(userID, email, TokenUseAccess, secret, accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := signStaff(userID, email, TokenUseRefresh, secret, refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessExpiry.Seconds()),
	}, nil
}

// GenerateStaffAccessToken issues only an access token, used by refresh.
func GenerateStaffAccessToken(userID uint, email, secret string, expiry time.Duration) (string, error) {
	return signStaff(userID, email, TokenUseAccess, secret, expiry)
}

func signStaff(userID uint, email, use, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeStaff,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken verifies a staff token of the given use.
func ValidateToken(tokenString, secret, use string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}

	if claims.Type != TokenTypeStaff || claims.Use != use || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateCustomerTokenPair issues a customer access/refresh pair bound to one business.
func GenerateCustomerTokenPair(customerID, businessID uint, secret string, accessExpiry, refreshExpiry time.Duration) (*TokenPair, error) {
	access, err := GenerateCustomerAccessToken(customerID, businessID, secret, accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := signCustomer(customerID, businessID, TokenUseRefresh, secret, refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessExpiry.Seconds()),
	}, nil
}

func GenerateCustomerAccessToken(customerID, businessID uint, secret string, expiry time.Duration) (string, error) {
	return signCustomer(customerID, businessID, TokenUseAccess, secret, expiry)
}

func signCustomer(customerID, businessID uint, use, secret string, expiry time.Duration) (string, error) {
	if customerID == 0 || businessID == 0 {
		return "", fmt.Errorf("generate customer token: %w", ErrInvalidToken)
	}

	now := time.Now()
	claims := CustomerClaims{
		Type:       TokenTypeCustomer,
		CustomerID: customerID,
		BusinessID: businessID,
		Use:        use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateCustomerToken verifies a customer token of the given use. Both
// customer_id and business_id must be present and type must be "customer".
func ValidateCustomerToken(tokenString, secret, use string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}

	if claims.Type != TokenTypeCustomer || claims.Use != use {
		return nil, ErrInvalidToken
	}
	if claims.CustomerID == 0 || claims.BusinessID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parse(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// RemainingLifetime reports how long a token's claims stay valid.
func RemainingLifetime(expiresAt *jwt.NumericDate) time.Duration {
	if expiresAt == nil {
		return 0
	}
	d := time.Until(expiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}
