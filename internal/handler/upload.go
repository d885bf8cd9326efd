package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/service"
)

var errTooLarge = errors.New("file too large")

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFile opens an optional multipart file.  A missing field yields nil and
// no error; the returned closer is always safe to call.
func formFile(c echo.Context, field string, maxBytes int64) (*service.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, noop, errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// uploadErr renders a formFile failure.
func uploadErr(c echo.Context, field string, err error) error {
	if errors.Is(err, errTooLarge) {
		return unprocessable(c, field+" is too large")
	}
	return badRequest(c, "invalid "+field)
}
