package server

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func Test_TokenService_WhenTokenIsValid_ShouldReturnSubject(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.GenerateToken("user-42")
	require.NoError(t, err)

	userID, err := tokens.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func Test_TokenService_WhenTokenExpired_ShouldFail(t *testing.T) {
	tokens := NewTokenService("secret", -time.Minute)
	token, err := tokens.GenerateToken("user-42")
	require.NoError(t, err)

	_, err = tokens.ValidateToken(token)

	assert.Error(t, err)
}

func Test_TokenService_WhenSignedWithOtherSecret_ShouldFail(t *testing.T) {
	token, err := NewTokenService("other", time.Hour).GenerateToken("user-42")
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).ValidateToken(token)

	assert.Error(t, err)
}

func Test_TokenService_WhenSubjectMissing_ShouldFail(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).ValidateToken(token)

	assert.Error(t, err)
}
