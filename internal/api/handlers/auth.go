package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/vectorlab/backend/internal/config"
)

var errInvalidKey = errors.New("invalid session key")

// IssueSessionKey signs a key that grants access to one lab session.
func IssueSessionKey(cfg *config.Config, sessionToken string) (string, error) {
	hours := cfg.KeyExpiryHours
	if hours <= 0 {
		hours = 12
	}
	exp := time.Now().Add(time.Duration(hours) * time.Hour)
	claims := jwt.MapClaims{"session": sessionToken, "exp": jwt.NewNumericDate(exp).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// parseSessionKey returns the session token a key was issued for.
func parseSessionKey(cfg *config.Config, key string) (string, error) {
	parsed, err := jwt.Parse(key, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errInvalidKey
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidKey
	}
	session, ok := claims["session"].(string)
	if !ok || session == "" {
		return "", errInvalidKey
	}
	return session, nil
}

// SessionKeyMiddleware checks that the request carries a key for the :token
// session, as a bearer header or a "key" query parameter (browsers cannot set
// headers on a WebSocket handshake).
func SessionKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query("key")
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session key"})
			return
		}

		session, err := parseSessionKey(cfg, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session key"})
			return
		}
		if session != c.Param("token") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "key does not match session"})
			return
		}
		c.Next()
	}
}
