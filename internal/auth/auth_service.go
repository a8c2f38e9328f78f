package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTVerifier checks HMAC-signed tokens issued by the account service and
// extracts the user id they were issued for.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify returns the user id carried by token. A "Bearer " prefix is
// tolerated.
func (v *JWTVerifier) Verify(token string) (uint, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return 0, ErrMissingToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, ok := userIDFromClaims(claims)
	if !ok || userID == 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// userIDFromClaims accepts the claim names used by the account service
// over time: "id", "user_id" and "sub".
func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"id", "user_id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return uint(v), true
			}
		case string:
			if n, err := strconv.ParseUint(v, 10, 0); err == nil {
				return uint(n), true
			}
		}
	}
	return 0, false
}
