package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textgen-backend/internal/config"
)

func setTestConfig(t *testing.T, ttlHours int) {
	t.Helper()
	old := config.AppConfig
	config.AppConfig = config.Config{
		JWTSecret:     "test-secret",
		TokenTTLHours: ttlHours,
	}
	t.Cleanup(func() { config.AppConfig = old })
}

func TestGenerateAndValidateJWT(t *testing.T) {
	setTestConfig(t, 24)

	token, err := GenerateJWT(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateExpiredJWT(t *testing.T) {
	setTestConfig(t, -1) // already expired at issue time

	token, err := GenerateJWT(42)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateTamperedJWT(t *testing.T) {
	setTestConfig(t, 24)

	token, err := GenerateJWT(42)
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = ValidateJWT(tampered)
	assert.Error(t, err)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	setTestConfig(t, 24)

	token, err := GenerateJWT(42)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "other-secret"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	setTestConfig(t, 24)

	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}
