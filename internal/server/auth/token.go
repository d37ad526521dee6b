// Package auth implements the session token service: stateless, signed,
// time-limited tokens binding a user identity. Validity is a pure function
// of the token bytes, the process-wide secret and the clock; there is no
// server-side revocation, expiry is the only invalidation mechanism.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akruglov/chatline/internal/common"
)

// Claims carries the standard registered claims plus the user id the token
// is bound to.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Service mints and verifies HS256 session tokens. The signing secret is
// drawn from the system CSPRNG at construction and never leaves the process;
// restarting the server invalidates every outstanding token.
type Service struct {
	secret   []byte
	validity time.Duration
}

// NewService builds a token service with a fresh 32-byte secret.
func NewService(validity time.Duration) *Service {
	return &Service{
		secret:   common.GenerateRandByteArray(32),
		validity: validity,
	}
}

// NewServiceWithSecret builds a token service around a caller-provided
// secret. Meant for tests that need to forge or cross-check tokens.
func NewServiceWithSecret(secret []byte, validity time.Duration) *Service {
	return &Service{secret: secret, validity: validity}
}

// Issue mints a token binding userID, expiring after the configured validity.
func (s *Service) Issue(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.validity)),
		},
		UserID: userID,
	})

	return token.SignedString(s.secret)
}

// Verify checks the token and returns the embedded user id. A bad signature,
// a passed expiry and a malformed structure all collapse to
// common.ErrInvalidToken; callers do not distinguish tampering from expiry.
func (s *Service) Verify(tokenString string) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, common.ErrInvalidToken
	}

	return claims.UserID, nil
}
