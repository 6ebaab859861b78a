package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	UserID    uint   `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func issueSessionToken(secret string, ttl time.Duration, userID uint, sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token failed: %w", err)
	}
	return token, expiresAt, nil
}

func parseSessionToken(secret, raw string) (*SessionClaims, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}
	if claims.UserID == 0 || claims.SessionID == "" {
		return nil, errors.Join(ErrUnauthenticated, errors.New("incomplete session claims"))
	}
	return claims, nil
}
