// Package token issues and verifies stateless password-reset tokens. A token
// binds a user id and an issue time under an HMAC-SHA256 signature; there is
// no server-side record, so a token stays valid for its whole window.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, tampered or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid reset token")
	// ErrExpiredToken is returned when the token's age exceeds the allowed window.
	ErrExpiredToken = errors.New("expired reset token")
)

// Issue encodes {user id, issued-at} and signs it with secret. The expiry
// window is chosen by the verifier, not baked into the token.
func Issue(userID int64, secret []byte) (string, error) {
	return issueAt(userID, secret, time.Now())
}

func issueAt(userID int64, secret []byte, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and age and returns the embedded user id.
// A token is still valid at exactly issuedAt+maxAge and expired strictly
// after it.
func Verify(tokenString string, secret []byte, maxAge time.Duration) (int64, error) {
	return verifyAt(tokenString, secret, maxAge, time.Now())
}

func verifyAt(tokenString string, secret []byte, maxAge time.Duration, now time.Time) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	if claims.IssuedAt == nil {
		return 0, ErrInvalidToken
	}
	if now.Unix()-claims.IssuedAt.Unix() > int64(maxAge/time.Second) {
		return 0, ErrExpiredToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
