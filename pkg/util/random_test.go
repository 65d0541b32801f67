package util

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP_Format(t *testing.T) {
	sixDigits := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestVerifyOTP(t *testing.T) {
	stored := HashOTP("123456")

	assert.True(t, VerifyOTP(stored, "123456"))
	assert.False(t, VerifyOTP(stored, "654321"))
	assert.False(t, VerifyOTP(stored, "12345"))
	assert.False(t, VerifyOTP("", "123456"))
	assert.NotEqual(t, "123456", stored)
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(4)
	require.NoError(t, err)
	b, err := RandomHex(4)
	require.NoError(t, err)

	assert.Len(t, a, 8)
	assert.Regexp(t, `^[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}
