package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the absolute lifetime of an issued identity token.
const TokenTTL = 24 * time.Hour

var (
	// ErrInvalidToken covers bad signature, malformed payload and expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnknownSubject means the token verified but its embedded user id
	// no longer resolves to a user.
	ErrUnknownSubject = errors.New("unknown subject")
)

// tokenClaims is the signed payload of an identity token.
type tokenClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, time-bound identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service signing with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
	}
}

// Issue produces an HS256-signed token embedding the user id with an
// absolute expiry 24 hours from now.
func (s *TokenService) Issue(userID uint) (string, error) {
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the embedded user id.
// Whether that id still resolves to a user is the caller's concern.
func (s *TokenService) Validate(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || claims.UserID == 0 {
		return 0, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}

	return claims.UserID, nil
}
