package utils_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelafacility/backend/internal/utils"
)

const testSecret = "test-secret-key-long-enough-for-hs256"

func TestSignAndParseRoundTrip(t *testing.T) {
	uid := uuid.NewString()

	token, err := utils.SignJWT(testSecret, uid, 30)
	require.NoError(t, err)

	claims, err := utils.ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.Subject)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := utils.SignJWT(testSecret, uuid.NewString(), 30)
	require.NoError(t, err)

	_, err = utils.ParseJWT("some-other-secret", token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := utils.ParseJWT(testSecret, "not-a-token")
	assert.Error(t, err)
}

// A token is unusable from the expiry instant onward: exp equal to "now"
// already fails, there is no leeway.
func TestTokenExpiresAtExactInstant(t *testing.T) {
	token, err := utils.SignJWT(testSecret, uuid.NewString(), 0)
	require.NoError(t, err)

	_, err = utils.ParseJWT(testSecret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = utils.ParseJWT(testSecret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: uuid.NewString()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = utils.ParseJWT(testSecret, token)
	assert.Error(t, err)
}

func TestParseRejectsUnsignedAlg(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = utils.ParseJWT(testSecret, token)
	assert.Error(t, err)
}
