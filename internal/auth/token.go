package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Codec-level sentinel errors. Signature, structure and expiry failures all
// collapse into ErrTokenInvalid so callers cannot enumerate failure modes.
var (
	ErrEmptySubject     = errors.New("token subject is empty")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrWrongCredentials = errors.New("credentials do not match")
)

// TokenManager handles issuing and validating JWT session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// IssueToken builds and signs a JWT whose subject is the caller's user id.
func (tm *TokenManager) IssueToken(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken validates the signature, structure and time bounds of a token
// and returns its subject. Any failure surfaces as ErrTokenInvalid.
func (tm *TokenManager) VerifyToken(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// DecodeBasic validates an HTTP Basic Authorization header value against the
// configured service credentials. The comparison is constant time.
func DecodeBasic(headerValue, expectedUser, expectedPass string) error {
	parts := strings.Fields(headerValue)
	if len(parts) != 2 || parts[0] != "Basic" {
		return ErrTokenInvalid
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrTokenInvalid
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return ErrTokenInvalid
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(expectedUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(expectedPass)) == 1
	if !userOK || !passOK {
		return ErrWrongCredentials
	}
	return nil
}
