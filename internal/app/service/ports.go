package service

import (
	"context"
	"time"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/notify"
)

// TokenRevoker records refresh-token ids that were logged out or rotated.
// RevokeOnce is check-and-set: it reports false when jti was already
// revoked, so a refresh token can be rotated only once.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	RevokeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RequestThrottle counts requests per key inside a sliding window.
type RequestThrottle interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// OrderEventPublisher pushes order changes to live staff sessions.
type OrderEventPublisher interface {
	PublishOrder(eventType string, order *model.Order)
}

// OTPPolicy controls one-time code lifetime, request throttling and how
// many wrong guesses an outstanding code survives.
type OTPPolicy struct {
	TTL               time.Duration
	MaxRequests       int
	RequestWindow     time.Duration
	MaxVerifyAttempts int
}

// DefaultOTPPolicy is used when a service is built without one.
var DefaultOTPPolicy = OTPPolicy{
	TTL:               5 * time.Minute,
	MaxRequests:       5,
	RequestWindow:     15 * time.Minute,
	MaxVerifyAttempts: 5,
}

func (p OTPPolicy) withDefaults() OTPPolicy {
	if p.TTL <= 0 {
		p.TTL = DefaultOTPPolicy.TTL
	}
	if p.RequestWindow <= 0 {
		p.RequestWindow = DefaultOTPPolicy.RequestWindow
	}
	if p.MaxVerifyAttempts <= 0 {
		p.MaxVerifyAttempts = DefaultOTPPolicy.MaxVerifyAttempts
	}
	return p
}

// TokenSettings are the signing parameters of one token kind.
type TokenSettings struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type noopRevoker struct{}

func (noopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (noopRevoker) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

func (noopRevoker) RevokeOnce(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

type noopThrottle struct{}

func (noopThrottle) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }

type noopPublisher struct{}

func (noopPublisher) PublishOrder(string, *model.Order) {}

// Dependencies are the optional collaborators shared by the services.
// Nil fields fall back to no-op implementations.
type Dependencies struct {
	Revoker   TokenRevoker
	Throttle  RequestThrottle
	Notifier  notify.Notifier
	Publisher OrderEventPublisher
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Revoker == nil {
		d.Revoker = noopRevoker{}
	}
	if d.Throttle == nil {
		d.Throttle = noopThrottle{}
	}
	if d.Publisher == nil {
		d.Publisher = noopPublisher{}
	}
	return d
}
