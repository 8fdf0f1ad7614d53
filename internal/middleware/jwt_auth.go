package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middleware.
const (
	UserIDKey = "userID"
	ClaimsKey = "user"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(tokenString string) (*models.JwtCustomClaims, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id and claims in the context.
func JWTAuthMiddleware(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}
			tokenString, ok := bearer(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}
			claims, err := tokens.Parse(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			c.Set(ClaimsKey, claims)
			c.Set(UserIDKey, claims.UserID)
			return next(c)
		}
	}
}

// OptionalJWTAuth identifies the caller when a valid token is present and
// lets anonymous requests through otherwise.
func OptionalJWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenString, ok := bearer(c.Request().Header.Get("Authorization")); ok {
				if claims, err := tokens.Parse(tokenString); err == nil {
					c.Set(ClaimsKey, claims)
					c.Set(UserIDKey, claims.UserID)
				}
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}

// Expecting "Bearer <token>"
func bearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
