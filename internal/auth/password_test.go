package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
)

func TestNewBcryptHasher_RejectsBadCost(t *testing.T) {
	_, err := auth.NewBcryptHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = auth.NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := hasher.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.Equal(t, bcrypt.MinCost, hasher.Cost())

	ok, err := hasher.Verify("pw1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("pw2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_HashIsSalted(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_Errors(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = hasher.Hash("")
	assert.ErrorIs(t, err, auth.ErrEmptyPassword)

	_, err = hasher.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)

	ok, err := hasher.Verify("pw", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_VerifyDummyNeverPanics(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		hasher.VerifyDummy("anything")
		hasher.VerifyDummy("")
	})
}
