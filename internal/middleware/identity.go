package middleware

// identity.go reads back what JWTAuth stored.  Handlers use these instead of
// type-asserting context values themselves.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's id.  ok is false for anonymous
// requests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the caller's role or "" when anonymous.
func Role(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

// Name returns the display name carried in the token.
func Name(c echo.Context) string {
	n, _ := c.Get(KeyName).(string)
	return n
}

// subject is the caller as it appears in rate-limit and cache keys.
func subject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
