package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/utils"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	KeyUserID = "user_id" // uint64
	KeyRole   = "role"    // string
	KeyName   = "name"    // string
)

// bearer returns the raw token of an "Authorization: Bearer ..." header.
func bearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func setClaims(c echo.Context, cl *utils.Claims) {
	c.Set(KeyUserID, cl.UserID)
	c.Set(KeyRole, cl.Role)
	c.Set(KeyName, cl.Name)
}

// JWTAuth validates a Bearer access token and stores the caller's id, role
// and name in the context.  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			cl, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setClaims(c, cl)
			return next(c)
		}
	}
}

// OptionalJWT identifies the caller when a valid token is present and lets
// anonymous requests through untouched.  An invalid token is treated as no
// token.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearer(c); raw != "" {
				if cl, err := utils.ParseAccessToken(secret, raw); err == nil {
					setClaims(c, cl)
				}
			}
			return next(c)
		}
	}
}
