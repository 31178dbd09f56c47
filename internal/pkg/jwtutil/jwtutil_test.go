package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", "docchat", time.Hour, 7, "alice", "docchat|7")
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "docchat|7", claims.TokenIdentifier)
	assert.Equal(t, "docchat", claims.Issuer)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "docchat", time.Hour, 7, "alice", "docchat|7")
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	token, err := GenerateToken("secret", "docchat", -time.Minute, 7, "alice", "docchat|7")
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_MissingTokenIdentifier(t *testing.T) {
	token, err := GenerateToken("secret", "docchat", time.Hour, 7, "alice", "")
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
