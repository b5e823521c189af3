package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload: subject (user id) and expiry.
// Role is deliberately not embedded; every request reloads the user so a
// role change takes effect immediately.
type Claims struct {
	jwt.RegisteredClaims
}

// SignJWT issues an HS256 token expiring expiresMin minutes from now.
// All instants are UTC so issue and verify share one clock.
func SignJWT(secret string, userID string, expiresMin int) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiresMin) * time.Minute)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseJWT verifies signature and expiry. A token is rejected from the
// exact expiry instant onward (zero leeway).
func ParseJWT(secret string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
