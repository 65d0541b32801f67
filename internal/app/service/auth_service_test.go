package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := setupEnv(t)

	user, tokens, err := env.Auth.Register(RegisterInput{
		Name:     "Asha",
		Email:    " Asha@Shop.Test ",
		Phone:    "9000000001",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@shop.test", user.Email)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, _, err = env.Auth.Register(RegisterInput{Name: "Other", Email: "asha@shop.test", Phone: "9000000002", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, _, err = env.Auth.Register(RegisterInput{Name: "Other", Email: "other@shop.test", Phone: "9000000001", Password: "password123"})
	assert.ErrorIs(t, err, ErrPhoneAlreadyExists)

	loggedIn, _, err := env.Auth.Login("ASHA@shop.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, _, err = env.Auth.Login("asha@shop.test", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = env.Auth.Login("nobody@shop.test", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := setupEnv(t)

	_, _, err := env.Auth.Register(RegisterInput{Name: "A", Email: "a@shop.test", Phone: "1", Password: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	_, _, err = env.Auth.Register(RegisterInput{Email: "a@shop.test", Phone: "1", Password: "password123"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestAuthService_RefreshRotatesAndLogoutRevokes(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, tokens, err := env.Auth.Register(RegisterInput{Name: "Ravi", Email: "ravi@shop.test", Phone: "9000000003", Password: "password123"})
	require.NoError(t, err)

	rotated, err := env.Auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = env.Auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// access tokens are not refresh tokens
	_, err = env.Auth.Refresh(ctx, rotated.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidToken)

	require.NoError(t, env.Auth.Logout(ctx, rotated.RefreshToken))
	_, err = env.Auth.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	user, claims, err := env.Auth.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthService_AuthenticateRejectsCustomerToken(t *testing.T) {
	env := setupEnv(t)
	_, business := env.createTenant(t, "Token Shop")
	principal := env.createCustomer(t, business.ID, "c@shop.test", "1111")

	pair, err := util.GenerateCustomerTokenPair(principal.CustomerID, business.ID, testTokens.Secret, testTokens.AccessExpiry, testTokens.RefreshExpiry)
	require.NoError(t, err)

	_, _, err = env.Auth.Authenticate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidToken)
}

func TestPasswordResetService_Flow(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, _, err := env.Auth.Register(RegisterInput{Name: "Meera", Email: "meera@shop.test", Phone: "9000000004", Password: "password123"})
	require.NoError(t, err)

	// unknown accounts look identical to the caller
	require.NoError(t, env.Reset.RequestReset(ctx, "ghost@shop.test"))

	require.NoError(t, env.Reset.RequestReset(ctx, "meera@shop.test"))
	code := env.codeFor(t, 1)
	assert.Equal(t, notify.KindPasswordReset, env.Recorder.Messages()[0].Kind)

	assert.ErrorIs(t, env.Reset.ResetPassword("meera@shop.test", wrongCode(code), "newpassword1"), ErrInvalidCode)
	require.NoError(t, env.Reset.ResetPassword("meera@shop.test", code, "newpassword1"))

	// codes are single use
	assert.ErrorIs(t, env.Reset.ResetPassword("meera@shop.test", code, "anotherpass1"), ErrInvalidCode)

	_, _, err = env.Auth.Login("meera@shop.test", "newpassword1")
	require.NoError(t, err)
	_, _, err = env.Auth.Login("meera@shop.test", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestPasswordResetService_CodeDiscardedAfterFailedGuesses(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, _, err := env.Auth.Register(RegisterInput{Name: "Tara", Email: "tara@shop.test", Phone: "9000000005", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, env.Reset.RequestReset(ctx, "tara@shop.test"))
	code := env.codeFor(t, 1)

	for i := 0; i < DefaultOTPPolicy.MaxVerifyAttempts; i++ {
		assert.ErrorIs(t, env.Reset.ResetPassword("tara@shop.test", wrongCode(code), "newpassword1"), ErrInvalidCode)
	}

	// the right code no longer works once the guesses are used up
	assert.ErrorIs(t, env.Reset.ResetPassword("tara@shop.test", code, "newpassword1"), ErrInvalidCode)
	_, _, err = env.Auth.Login("tara@shop.test", "password123")
	require.NoError(t, err)

	// a fresh code starts a fresh count
	require.NoError(t, env.Reset.RequestReset(ctx, "tara@shop.test"))
	fresh := env.codeFor(t, 2)
	assert.ErrorIs(t, env.Reset.ResetPassword("tara@shop.test", wrongCode(fresh), "newpassword1"), ErrInvalidCode)
	require.NoError(t, env.Reset.ResetPassword("tara@shop.test", fresh, "newpassword1"))
}

func TestAuthService_ConcurrentRefreshRotatesOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, tokens, err := env.Auth.Register(RegisterInput{Name: "Arun", Email: "arun@shop.test", Phone: "9000000006", Password: "password123"})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	var ok, revoked atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Auth.Refresh(ctx, tokens.RefreshToken)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrTokenRevoked):
				revoked.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(attempts-1), revoked.Load())
}
