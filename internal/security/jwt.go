package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Token audiences keep user and admin tokens from being swapped.
const (
	audienceUser  = "prio-user"
	audienceAdmin = "prio-admin"
)

// UserClaims defines JWT claims for end users.
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminClaims defines JWT claims for administrators.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registered(subject uint64, audience string, expiry time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(subject, 10),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
}

// GenerateToken signs a user JWT with the configured expiry.
func GenerateToken(secret string, userID uint64, name, email string, expiry time.Duration) (string, error) {
	claims := UserClaims{
		UserID:           userID,
		Name:             name,
		Email:            email,
		RegisteredClaims: registered(userID, audienceUser, expiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a user JWT and returns its claims.
func ParseToken(secret string, tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := parse(secret, tokenString, audienceUser, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateAdminToken signs an admin JWT with the configured expiry.
func GenerateAdminToken(secret string, adminID uint64, username string, expiry time.Duration) (string, error) {
	claims := AdminClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registered(adminID, audienceAdmin, expiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken validates an admin JWT and returns its claims.
func ParseAdminToken(secret string, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parse(secret, tokenString, audienceAdmin, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(secret, tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithAudience(audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
