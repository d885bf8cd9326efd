package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

func timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// identity builds the caller from the claims JWTAuth stored.
func identity(c echo.Context) service.Identity {
	id, _ := middleware.UserID(c)
	return service.Identity{UserID: id, Role: middleware.Role(c), Name: middleware.Name(c)}
}

// optionalIdentity is nil for anonymous callers.
func optionalIdentity(c echo.Context) *service.Identity {
	if _, ok := middleware.UserID(c); !ok {
		return nil
	}
	who := identity(c)
	return &who
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt returns 0 when the parameter is absent; ok is false when it is
// present but not an integer in range.
func queryInt(c echo.Context, name string) (int, bool) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// pageParams reads ?page= and ?limit=.  bad names the first parameter that
// is not an integer.
func pageParams(c echo.Context) (page, limit int, bad string) {
	var ok bool
	if page, ok = queryInt(c, "page"); !ok {
		return 0, 0, "page"
	}
	if limit, ok = queryInt(c, "limit"); !ok {
		return 0, 0, "limit"
	}
	return page, limit, ""
}
