package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateServiceToken("bot-frontend", "service", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "bot-frontend", claims.ClientID)
	assert.Equal(t, "service", claims.Role)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateServiceToken("bot-frontend", "service", "secret")
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateServiceToken_EmptySecret(t *testing.T) {
	_, err := GenerateServiceToken("bot-frontend", "service", "")
	assert.ErrorIs(t, err, ErrEmptyJWTSecret)
}
