package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := GetHash("password123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	assert.NoError(t, CompareHash(hash, "password123"))
	assert.Error(t, CompareHash(hash, "wrongpassword"))
}

func TestGetHash_Unique(t *testing.T) {
	first, err := GetHash("password123")
	require.NoError(t, err)
	second, err := GetHash("password123")
	require.NoError(t, err)

	// Соль делает хэши различными при одинаковом входе.
	assert.NotEqual(t, first, second)
}

func TestCompareHash_InvalidHash(t *testing.T) {
	assert.Error(t, CompareHash("not-a-bcrypt-hash", "password123"))
}
