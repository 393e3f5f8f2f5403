package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

func TestUser_JSONHidesCredentials(t *testing.T) {
	hash := "digest"
	exp := time.Now().Add(time.Hour)
	user := &models.User{ID: 1, Email: "a@b.c", PasswordHash: "secret-hash", ResetTokenHash: &hash, ResetTokenExpiresAt: &exp}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "digest")
	assert.Contains(t, string(data), `"email":"a@b.c"`)
}

func TestUser_HasPendingReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	hash := "digest"
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	assert.False(t, (&models.User{}).HasPendingReset(now))
	assert.True(t, (&models.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &future}).HasPendingReset(now))
	assert.False(t, (&models.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &past}).HasPendingReset(now))
	assert.False(t, (&models.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &now}).HasPendingReset(now))
}

func TestUser_CloneIsDeep(t *testing.T) {
	hash := "digest"
	exp := time.Now()
	user := &models.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &exp}

	clone := user.Clone()
	*clone.ResetTokenHash = "changed"
	*clone.ResetTokenExpiresAt = exp.Add(time.Hour)

	assert.Equal(t, "digest", *user.ResetTokenHash)
	assert.Equal(t, exp, *user.ResetTokenExpiresAt)
}
