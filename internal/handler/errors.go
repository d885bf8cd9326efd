package handler

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/service"
)

var kindStatus = map[service.Kind]int{
	service.KindInvalid:      http.StatusUnprocessableEntity,
	service.KindBadRequest:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
	service.KindUnavailable:  http.StatusServiceUnavailable,
}

// fail renders a service error as {"error": msg}.  Anything else goes to the
// HTTP error handler untouched.
func fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		return err
	}
	status, ok := kindStatus[se.Kind]
	if !ok {
		return err
	}
	body := echo.Map{"error": se.Message}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unprocessable(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
}

// NewHTTPErrorHandler answers unhandled errors with a generic 500 after
// logging them and reporting them to Sentry.  echo.HTTPError values keep their
// status and message.
func NewHTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := any("internal server error")

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if status < 500 {
				msg = he.Message
			}
		}

		if status >= 500 {
			l := middleware.Log(c, log).WithError(err).WithField("path", c.Path())
			if id, ok := middleware.UserID(c); ok {
				l = l.WithUserID(id)
			}
			l.Errorf("unhandled error")
			if hub := sentry.GetHubFromContext(c.Request().Context()); hub != nil {
				hub.CaptureException(err)
			} else {
				sentry.CaptureException(err)
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"error": msg})
		}
		if werr != nil {
			log.WithError(werr).Warnf("writing error response")
		}
	}
}
