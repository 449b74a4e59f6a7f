package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are issued by the auth service: user_id and role.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token. Production tokens come from the auth
// service; this serves operator tooling and tests.
func IssueToken(secret []byte, userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(secret)
}

// ParseToken validates an HS256 token, with or without the Bearer prefix.
func ParseToken(secret []byte, raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || strings.TrimSpace(claims.Role) == "" {
		return Claims{}, fmt.Errorf("%w: missing user_id or role", ErrInvalidToken)
	}
	return claims, nil
}

// Auth requires a valid bearer token and stores userID and userRole in the
// context for RequireRoles and the handlers.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(secret, c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "unauthorized: invalid or missing token",
				"code":       "unauthorized",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Set(userRoleKey, strings.ToLower(claims.Role))
		c.Next()
	}
}

// UserID returns the authenticated user id, 0 when absent.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// UserRole returns the authenticated role, lower-cased.
func UserRole(c *gin.Context) string {
	return c.GetString(userRoleKey)
}
