// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package auth implements bearer-token authentication for the admin
// routes. Two modes exist: "none" leaves everything open, "token" issues
// HS256 JWTs in exchange for a bcrypt-verified shared admin secret.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/cubescope/internal/config"
)

var (
	// ErrInvalidToken is returned for malformed, expired, or mis-signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidSecret is returned when the admin secret does not match.
	ErrInvalidSecret = errors.New("invalid admin secret")
)

// Claims are the JWT claims carried by issued tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates admin bearer tokens.
type TokenManager struct {
	secret          []byte
	adminSecretHash []byte
	ttl             time.Duration
}

// NewTokenManager builds a manager from the security configuration.
// Returns an error when token mode is configured without usable secrets.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if cfg.AdminSecretHash == "" {
		return nil, fmt.Errorf("admin secret hash is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret:          []byte(cfg.JWTSecret),
		adminSecretHash: []byte(cfg.AdminSecretHash),
		ttl:             ttl,
	}, nil
}

// VerifyAdminSecret compares the presented secret against the stored
// bcrypt hash.
func (m *TokenManager) VerifyAdminSecret(secret string) error {
	if err := bcrypt.CompareHashAndPassword(m.adminSecretHash, []byte(secret)); err != nil {
		return ErrInvalidSecret
	}
	return nil
}

// IssueToken returns a signed admin token and its expiry time.
func (m *TokenManager) IssueToken() (string, time.Time, error) {
	now := time.Now()
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "cubescope",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, now.Add(m.ttl), nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
func ExtractBearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// HashAdminSecret bcrypt-hashes a plaintext admin secret, for operators
// generating the config value.
func HashAdminSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing admin secret: %w", err)
	}
	return string(hash), nil
}
