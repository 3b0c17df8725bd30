package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, "SOSFU", "Maria da Silva")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "SOSFU", claims.Department)
	assert.Equal(t, "Maria da Silva", claims.Name)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).GenerateToken(uuid.New(), "SEFIN", "x")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).ValidateToken("not.a.token")
	assert.Error(t, err)
}
