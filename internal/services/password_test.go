package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("pw1")
	require.NoError(t, err)
	second, err := h.Hash("pw1")
	require.NoError(t, err)

	assert.NotEqual(t, "pw1", first)
	assert.NotEqual(t, first, second, "hashes are salted")
	assert.True(t, h.Verify(first, "pw1"))
	assert.True(t, h.Verify(second, "pw1"))
	assert.False(t, h.Verify(first, "pw2"))
	assert.False(t, h.Verify("not-a-hash", "pw1"))
}

func TestBcryptHasherCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestBcryptHasherRejectsLongPasswords(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", maxPasswordBytes))
	assert.NoError(t, err)
	_, err = h.Hash(strings.Repeat("a", maxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
