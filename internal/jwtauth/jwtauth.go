// Package jwtauth validates bearer tokens for admin and constituent routes.
package jwtauth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "vouchsafe/pkg/domain-errors"
	id "vouchsafe/pkg/domain"
)

// Claims carries the authenticated identity extracted from a token.
type Claims struct {
	ActorID id.UserID
	Role    string
}

// Validator checks bearer tokens and returns the identity they assert.
type Validator interface {
	ValidateToken(token string) (Claims, error)
}

// HMACValidator validates HS256-signed tokens with a shared secret.
type HMACValidator struct {
	secret []byte
}

func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret)}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a signed token. The subject claim must be
// a user UUID.
func (v *HMACValidator) ValidateToken(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "missing token")
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return Claims{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if !token.Valid {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	actorID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return Claims{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid subject claim")
	}
	return Claims{ActorID: actorID, Role: claims.Role}, nil
}

// Issue mints a signed token for the given actor. Used by tests and local
// tooling, not by the server itself.
func (v *HMACValidator) Issue(actorID id.UserID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "signing token")
	}
	return signed, nil
}
