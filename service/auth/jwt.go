package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/realtoken-app/go-realtoken/env"
	"github.com/realtoken-app/go-realtoken/service/persist"
)

func init() {
	env.RegisterValidation("AUTH_JWT_SECRET", "required")
}

// ErrInvalidJWT is returned when a JWT fails signature or claims verification
var ErrInvalidJWT = errors.New("invalid or expired jwt")

// AuthTokenClaims are the claims carried by an auth token
type AuthTokenClaims struct {
	UserID persist.DBID     `json:"user_id"`
	Roles  persist.RoleList `json:"roles"`
	jwt.RegisteredClaims
}

// GenerateAuthToken issues a signed JWT for the given user
func GenerateAuthToken(ctx context.Context, userID persist.DBID, roles persist.RoleList) (string, error) {
	secret := env.GetString("AUTH_JWT_SECRET")
	validFor := time.Duration(env.GetInt64("AUTH_JWT_TTL_SECONDS")) * time.Second

	claims := AuthTokenClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validFor)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAuthToken verifies a JWT and returns its claims
func ParseAuthToken(ctx context.Context, token string) (AuthTokenClaims, error) {
	claims := AuthTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidJWT
		}
		return []byte(env.GetString("AUTH_JWT_SECRET")), nil
	})
	if err != nil || !parsed.Valid {
		return AuthTokenClaims{}, ErrInvalidJWT
	}
	return claims, nil
}
