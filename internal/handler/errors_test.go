package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/service"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestFailMapsKinds(t *testing.T) {
	for kind, status := range kindStatus {
		c, rec := newContext()
		if err := fail(c, &service.Error{Kind: kind, Message: "nope"}); err != nil {
			t.Fatalf("kind %v: unexpected error %v", kind, err)
		}
		if rec.Code != status {
			t.Fatalf("kind %v: status %d, want %d", kind, rec.Code, status)
		}
	}

	c, _ := newContext()
	plain := errors.New("boom")
	if err := fail(c, plain); err != plain {
		t.Fatalf("plain errors must pass through, got %v", err)
	}
}

func TestFailIncludesDetails(t *testing.T) {
	c, rec := newContext()
	_ = fail(c, &service.Error{Kind: service.KindInvalid, Message: "bad preferences", Details: []string{"/smoking: not a boolean"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"details":["/smoking: not a boolean"]`) {
		t.Fatalf("body = %s", body)
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	h := NewHTTPErrorHandler(logger.Discard())

	c, rec := newContext()
	h(errors.New("database exploded"), c)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("500: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Fatalf("internal message leaked: %s", rec.Body.String())
	}

	c, rec = newContext()
	h(echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), c)
	if rec.Code != http.StatusMethodNotAllowed || !strings.Contains(rec.Body.String(), "method not allowed") {
		t.Fatalf("405: %d %s", rec.Code, rec.Body.String())
	}
}
