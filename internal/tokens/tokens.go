package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fabriclibrary/backend/internal/models"
)

// AccessClaims is the decoded form of an application access token. Subject is
// the internal user id; the claim name is fixed by RegisteredClaims, it is
// never probed under alternative keys.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueAccessToken creates a signed HS256 JWT for the user. Each token gets a
// fresh jti so otherwise identical tokens are not correlatable.
func IssueAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	if u == nil || u.ID == "" {
		return "", fmt.Errorf("cannot issue token without a user id")
	}
	now := time.Now()
	claims := AccessClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseAccessToken validates signature and expiry and returns the decoded
// claims. Only HS256 is accepted.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
