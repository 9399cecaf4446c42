package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("supplier123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "supplier123", hash)

	assert.True(t, VerifyPassword(hash, "supplier123"))
	assert.False(t, VerifyPassword(hash, "Supplier123"))
	assert.False(t, VerifyPassword("", "supplier123"))
}

func TestHashPasswordSalts(t *testing.T) {
	a, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPasswordCostFloor(t *testing.T) {
	// An out-of-range cost falls back to the bcrypt default rather than
	// producing a weak hash.
	hash, err := HashPassword("admin123", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
