// Package auth issues and verifies owner tokens. Every authenticated
// request is scoped to the tenant named in its token.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost used for stored passwords.
	DefaultCost = 14

	ctxUserID   = "userId"
	ctxTenantID = "tenantId"
)

var errNoSecret = errors.New("jwt secret not set")

// Service hashes passwords and signs tokens.
type Service struct {
	secret []byte
	expiry time.Duration
	cost   int
}

// NewService creates a Service. cost <= 0 means DefaultCost.
func NewService(secret string, expiry time.Duration, cost int) *Service {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Service{secret: []byte(secret), expiry: expiry, cost: cost}
}

// HashPassword hashes a password for storage.
func (s *Service) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(b), err
}

// CheckPassword reports whether password matches hash.
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs a token for the user. An owner account is its own
// tenant, so tenantID is usually the user id.
func (s *Service) GenerateToken(userID, tenantID string) (string, error) {
	if len(s.secret) == 0 {
		return "", errNoSecret
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"tenantId": tenantID,
		"exp":      now.Add(s.expiry).Unix(),
		"iat":      now.Unix(),
	})
	return token.SignedString(s.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// user and tenant ids on the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid || len(s.secret) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		tenantID, _ := claims["tenantId"].(string)
		userID, _ := claims["sub"].(string)
		if !ok || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxTenantID, tenantID)
		c.Next()
	}
}

// TenantID returns the tenant of an authenticated request.
func TenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}

// UserID returns the user of an authenticated request.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
