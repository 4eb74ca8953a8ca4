package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT(t *testing.T) {
	t.Run("should round trip the claims", func(t *testing.T) {
		tok, err := SignJWT("secret", "user-1", "client", 5)
		require.NoError(t, err)

		claims, err := ParseJWT("secret", tok)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "client", claims.Role)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		tok, err := SignJWT("secret", "user-1", "client", 5)
		require.NoError(t, err)
		_, err = ParseJWT("other", tok)
		assert.Error(t, err)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		tok, err := SignJWT("secret", "user-1", "client", -1)
		require.NoError(t, err)
		_, err = ParseJWT("secret", tok)
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))

	code, err := VerifyCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
}
