package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/config"
	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, id, role, "Sara", 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return at.Token
}

func serve(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c), "name": Name(c)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, JWTAuth(secret))

	if rec := serve(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := serve(e, "Bearer garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	other, _ := utils.NewAccessToken("other-secret", 7, "driver", "x", 5)
	if rec := serve(e, "Bearer "+other.Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: %d", rec.Code)
	}
	rec := serve(e, "bearer "+token(t, 7, "driver"))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
	}
	want := `{"id":7,"name":"Sara","ok":true,"role":"driver"}` + "\n"
	if rec.Body.String() != want {
		t.Fatalf("body %q", rec.Body)
	}
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, OptionalJWT(secret))

	if rec := serve(e, "Bearer garbage"); rec.Code != http.StatusOK || rec.Body.String() != `{"id":0,"name":"","ok":false,"role":""}`+"\n" {
		t.Fatalf("anonymous: %d %s", rec.Code, rec.Body)
	}
	if rec := serve(e, "Bearer "+token(t, 3, "passenger")); rec.Code != http.StatusOK || rec.Body.String() == `{"id":0,"name":"","ok":false,"role":""}`+"\n" {
		t.Fatalf("identified: %d %s", rec.Code, rec.Body)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, JWTAuth(secret), RequireRole("admin"))

	if rec := serve(e, "Bearer "+token(t, 1, "driver")); rec.Code != http.StatusForbidden {
		t.Fatalf("driver on admin route: %d", rec.Code)
	}
	if rec := serve(e, "Bearer "+token(t, 1, "admin")); rec.Code != http.StatusOK {
		t.Fatalf("admin: %d", rec.Code)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(logger.Discard()))
	e.GET("/x", func(c echo.Context) error {
		if Log(c, nil) == nil {
			t.Error("no request logger in context")
		}
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, "")
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("missing request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "abc" {
		t.Fatalf("request id %q not kept", got)
	}
}

func TestCacheKeySeparatesUsers(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "p", KeyStrategy: "user_route_query"}
	e := echo.New()
	key := func(id uint64, query string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/trips/search?"+query, nil), httptest.NewRecorder())
		c.SetPath("/api/trips/search")
		if id != 0 {
			c.Set(KeyUserID, id)
		}
		return cacheKey(cfg, c)
	}
	if key(1, "a=1") == key(2, "a=1") {
		t.Fatal("two users share a cache entry")
	}
	if key(0, "a=1") == key(0, "a=2") {
		t.Fatal("query ignored")
	}
	if key(1, "a=1") != key(1, "a=1") {
		t.Fatal("key not stable")
	}
}

func TestPayloadCodec(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, h, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != 200 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Fatal("short payload accepted")
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami,
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	if rec := serve(e, ""); rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("pass-through: %d %v", rec.Code, rec.Header())
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/reservations")
	c.Set(KeyUserID, uint64(9))

	cases := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:9",
		"user_route": "rl:user:9:route:POST /api/reservations",
		"":           "rl:ip:10.0.0.1:user:9:route:POST /api/reservations",
	}
	for strategy, want := range cases {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("%q: got %q, want %q", strategy, got, want)
		}
	}
}
