package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPasswordHash("correct horse battery", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID().Hex()

	token, err := GenerateJWT(userID, "donor@example.com", RoleDonor, TokenValidity)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "donor@example.com", claims.Email)
	assert.Equal(t, string(RoleDonor), claims.Role)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	token, err := GenerateJWT(primitive.NewObjectID().Hex(), "donor@example.com", RoleDonor, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}
