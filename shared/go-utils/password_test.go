package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	PasswordHashCost = bcrypt.MinCost
	t.Cleanup(func() { PasswordHashCost = 12 })

	hash, err := HashPassword("Str0ngPass!")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("Str0ngPass!", hash))
	assert.False(t, CheckPasswordHash("Str0ngPass?", hash))
	assert.False(t, CheckPasswordHash("Str0ngPass!", ""))

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrWeakPassword)
}
