package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 1)

	tokenString, err := m.GenerateToken("owner")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := m.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Owner)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", 1)
	other := NewJWTManager("another-secret", 1)

	tokenString, err := m.GenerateToken("owner")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	// 过期时间为 -1 小时，签出的 token 立刻过期
	m := NewJWTManager("test-secret", -1)

	tokenString, err := m.GenerateToken("owner")
	require.NoError(t, err)

	_, err = m.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestJWTManager_GarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", 1)
	_, err := m.VerifyToken("not.a.jwt")
	assert.Error(t, err)
}
