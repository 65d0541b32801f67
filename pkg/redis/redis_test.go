package redis

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/commerce-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStore(t *testing.T) {
	store, err := NewStore(&config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, store.Enabled())

	ctx := context.Background()

	t.Run("Revoke is a no-op", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "abc", time.Minute))
		revoked, err := store.IsRevoked(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("RevokeOnce always reports first use", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			first, err := store.RevokeOnce(ctx, "abc", time.Minute)
			require.NoError(t, err)
			assert.True(t, first)
		}
	})

	t.Run("Allow always passes", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			ok, err := store.Allow(ctx, "otp:1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})

	assert.NoError(t, store.Close())
}

func TestNilStoreIsDisabled(t *testing.T) {
	var store *Store
	assert.False(t, store.Enabled())
	ok, err := store.Allow(context.Background(), "k", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "revoked:jti:123", revokedKey("123"))
	assert.Equal(t, "throttle:otp:customer:7:a@b.c", throttleKey("otp:customer:7:a@b.c"))
}
