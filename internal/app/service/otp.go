package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/commerce-backend/pkg/util"
)

// otp purposes. A code issued for one purpose never verifies for another.
const (
	otpPurposeLogin = "login"
	otpPurposeReset = "reset"
)

// issuedOTP is a fresh code plus the value persisted for it.
type issuedOTP struct {
	Code     string
	Stored   string
	ExpireAt time.Time
}

func issueOTP(purpose string, ttl time.Duration, now time.Time) (*issuedOTP, error) {
	code, err := util.GenerateOTP()
	if err != nil {
		return nil, err
	}
	return &issuedOTP{
		Code:     code,
		Stored:   purpose + ":" + util.HashOTP(code),
		ExpireAt: now.Add(ttl),
	}, nil
}

// checkOTP verifies code against the stored value for purpose.
func checkOTP(stored string, expiry *time.Time, purpose, code string, now time.Time) error {
	hash, ok := strings.CutPrefix(stored, purpose+":")
	if !ok || hash == "" {
		return ErrInvalidCode
	}
	if expiry == nil || !now.Before(*expiry) {
		return ErrCodeExpired
	}
	if !util.VerifyOTP(hash, code) {
		return ErrInvalidCode
	}
	return nil
}

// throttleOTP counts a code request for key against the policy.
func throttleOTP(ctx context.Context, throttle RequestThrottle, policy OTPPolicy, key string) error {
	allowed, err := throttle.Allow(ctx, fmt.Sprintf("otp:%s", key), policy.MaxRequests, policy.RequestWindow)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTooManyRequests
	}
	return nil
}
