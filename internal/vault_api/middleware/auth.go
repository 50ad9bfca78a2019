package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/microcredit-pool-ledger/internal/config"
)

const (
	// CallerKey stores the authenticated account ID in the gin context
	CallerKey = "caller"

	// AccountIDHeader names the caller when token auth is disabled
	AccountIDHeader = "X-Account-ID"
)

// Auth verifies an HS256 bearer token and stores its subject as the caller.
// With auth disabled the caller is read from AccountIDHeader instead.
func Auth(logger *slog.Logger, cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(cfg.JWTSecret))

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			caller := strings.TrimSpace(c.GetHeader(AccountIDHeader))
			if caller == "" {
				abortUnauthorized(c, "missing "+AccountIDHeader+" header")
				return
			}
			c.Set(CallerKey, caller)
			c.Next()
			return
		}

		tokenString := extractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		subject, err := verify(parser, secret, tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				"correlation_id", GetCorrelationID(c),
				"error", err,
			)
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(CallerKey, subject)
		c.Next()
	}
}

func verify(parser *jwt.Parser, secret []byte, tokenString string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth secret not configured")
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, message string) {
	abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// GetCaller returns the authenticated account ID, or "" before Auth ran.
func GetCaller(c *gin.Context) string {
	return c.GetString(CallerKey)
}
