package router_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/database/dbtest"
	"github.com/iliyamo/tripshare/internal/geo"
	"github.com/iliyamo/tripshare/internal/handler"
	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/realtime"
	"github.com/iliyamo/tripshare/internal/repository"
	"github.com/iliyamo/tripshare/internal/router"
	"github.com/iliyamo/tripshare/internal/service"
	"github.com/iliyamo/tripshare/internal/storage"
	"github.com/iliyamo/tripshare/internal/utils"
)

const secret = "router-test-secret"

type app struct {
	e   *echo.Echo
	db  *sql.DB
	seq int
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := dbtest.Open(t)
	files, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	log := logger.Discard()

	users := repository.NewUserRepo(db)
	trips := repository.NewTripRepo(db)
	reservations := repository.NewReservationRepo(db)
	ratings := repository.NewRatingRepo(db)
	hub := realtime.NewHub(log)

	notifier := service.NewNotifier(repository.NewNotificationRepo(db), hub, nil, log)
	tripSvc := service.NewTripService(db, trips, reservations, users, notifier,
		geo.NewEstimator(geo.Chain{geo.DefaultCities}, 2.0, 0.10, 80, 15))
	resSvc := service.NewReservationService(db, trips, reservations, ratings, users, notifier)
	adminSvc := service.NewAdminService(db, users, repository.NewDriverRequestRepo(db), trips, reservations, files, notifier)
	authSvc, err := service.NewAuthService(service.AuthConfig{
		JWTSecret:      secret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}, users, repository.NewTokenRepo(db), ratings, files, nil, nil, log)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)
	e.Use(middleware.RequestLogger(log))
	router.Register(e, db, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, 1<<20),
		User:         handler.NewUserHandler(authSvc, resSvc),
		Trip:         handler.NewTripHandler(tripSvc),
		Reservation:  handler.NewReservationHandler(resSvc),
		Chat:         handler.NewChatHandler(service.NewChatService(repository.NewChatRepo(db), users, notifier)),
		Notification: handler.NewNotificationHandler(notifier),
		Admin:        handler.NewAdminHandler(adminSvc, 1<<20),
		WS:           handler.NewWSHandler(hub, secret),
	}, router.Options{JWTSecret: secret})
	return &app{e: e, db: db}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(bs)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
}

type account struct {
	id    uint64
	email string
	token string
}

// signup registers through the API and returns the new session.
func (a *app) signup(t *testing.T, role string) account {
	t.Helper()
	a.seq++
	email := fmt.Sprintf("%s%d@example.com", role, a.seq)
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     fmt.Sprintf("%s %d", role, a.seq),
		"email":    email,
		"password": "secret1",
		"role":     role,
	})
	expect(t, rec, http.StatusCreated)
	s := decode[service.Session](t, rec)
	return account{id: s.User.ID, email: email, token: s.AccessToken}
}

// admin inserts an administrator and logs in.
func (a *app) admin(t *testing.T) account {
	t.Helper()
	hash, err := utils.HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	_, err = repository.NewUserRepo(a.db).Create(context.Background(), model.User{
		Name: "Admin", Email: "admin@example.com", PasswordHash: hash,
		Role: model.RoleAdmin, IsVerified: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	rec := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "secret1"})
	expect(t, rec, http.StatusOK)
	s := decode[service.Session](t, rec)
	return account{id: s.User.ID, email: "admin@example.com", token: s.AccessToken}
}

// login starts a new session, picking up role changes.
func (a *app) login(t *testing.T, acc account) account {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": acc.email, "password": "secret1"})
	expect(t, rec, http.StatusOK)
	acc.token = decode[service.Session](t, rec).AccessToken
	return acc
}

// submitRequest files a driver application over multipart.
func (a *app) submitRequest(t *testing.T, p account) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("license_number", "B-123456")
	_ = mw.WriteField("vehicle_description", "Blue hatchback")
	fw, err := mw.CreateFormFile("license_document", "license.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 test"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/driver-requests", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+p.token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// verifiedDriver registers a driver and has the admin verify it.
func (a *app) verifiedDriver(t *testing.T, admin account) account {
	t.Helper()
	d := a.signup(t, model.RoleDriver)
	expect(t, a.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/drivers/%d/verify", d.id), admin.token, nil), http.StatusOK)
	return d
}

func (a *app) publish(t *testing.T, driver account, seats int) model.Trip {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/trips", driver.token, map[string]any{
		"departure_city":   "Paris",
		"destination_city": "Lyon",
		"departure_date":   time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"price":            30,
		"available_seats":  seats,
	})
	expect(t, rec, http.StatusCreated)
	return decode[service.CreatedTrip](t, rec).Trip
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	expect(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Fatalf("status field = %q", got)
	}

	a.db.Close()
	expect(t, a.do(t, http.MethodGet, "/healthz", "", nil), http.StatusServiceUnavailable)
}

func TestAuthEndpoints(t *testing.T) {
	a := newApp(t)
	p := a.signup(t, model.RolePassenger)

	rec := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "passenger1@example.com", "password": "wrong-pass"})
	expect(t, rec, http.StatusUnauthorized)
	if got := decode[map[string]string](t, rec)["error"]; got != "invalid credentials" {
		t.Fatalf("error = %q", got)
	}

	expect(t, a.do(t, http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized)
	rec = a.do(t, http.MethodGet, "/api/auth/me", p.token, nil)
	expect(t, rec, http.StatusOK)
	if me := decode[model.User](t, rec); me.Email != "passenger1@example.com" {
		t.Fatalf("me = %+v", me)
	}

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Dup", "email": "passenger1@example.com", "password": "secret1",
	})
	expect(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "x", "email": "y@example.com", "password": "123"})
	expect(t, rec, http.StatusUnprocessableEntity)

	expect(t, a.do(t, http.MethodPost, "/api/auth/logout", p.token, nil), http.StatusNoContent)

	// Public profile hides the email.
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", p.id), "", nil)
	expect(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "passenger1@example.com") {
		t.Fatalf("profile leaks email: %s", rec.Body.String())
	}
}

func TestTripAndBookingFlow(t *testing.T) {
	a := newApp(t)
	admin := a.admin(t)
	pending := a.signup(t, model.RoleDriver)
	passenger := a.signup(t, model.RolePassenger)

	body := map[string]any{
		"departure_city": "Paris", "destination_city": "Lyon",
		"departure_date": time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
		"price":          20, "available_seats": 2,
	}
	expect(t, a.do(t, http.MethodPost, "/api/trips", pending.token, body), http.StatusForbidden)
	expect(t, a.do(t, http.MethodPost, "/api/trips", passenger.token, body), http.StatusForbidden)

	driver := a.verifiedDriver(t, admin)
	trip := a.publish(t, driver, 2)

	// Anonymous search sees the trip, its driver does not.
	rec := a.do(t, http.MethodGet, "/api/trips?departure_city=par", "", nil)
	expect(t, rec, http.StatusOK)
	if page := decode[service.SearchPage](t, rec); page.Total != 1 || page.Results[0].ID != trip.ID {
		t.Fatalf("anonymous search = %+v", page)
	}
	rec = a.do(t, http.MethodGet, "/api/trips", driver.token, nil)
	expect(t, rec, http.StatusOK)
	if page := decode[service.SearchPage](t, rec); page.Total != 0 {
		t.Fatalf("driver sees own trips: %+v", page)
	}

	rec = a.do(t, http.MethodPost, "/api/reservations", passenger.token, map[string]uint64{"trip_id": trip.ID})
	expect(t, rec, http.StatusCreated)
	res := decode[model.ReservationDetail](t, rec)
	if res.Status != model.ReservationPending {
		t.Fatalf("status = %q", res.Status)
	}
	expect(t, a.do(t, http.MethodPost, "/api/reservations", passenger.token, map[string]uint64{"trip_id": trip.ID}), http.StatusConflict)
	expect(t, a.do(t, http.MethodPost, "/api/reservations", driver.token, map[string]uint64{"trip_id": trip.ID}), http.StatusForbidden)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d", trip.ID), "", nil)
	expect(t, rec, http.StatusOK)
	if got := decode[model.TripDetail](t, rec).AvailableSeats; got != 1 {
		t.Fatalf("seats = %d, want 1", got)
	}

	resPath := fmt.Sprintf("/api/reservations/%d", res.ID)
	expect(t, a.do(t, http.MethodPatch, resPath+"/confirm", passenger.token, nil), http.StatusForbidden)
	rec = a.do(t, http.MethodPatch, resPath+"/confirm", driver.token, nil)
	expect(t, rec, http.StatusOK)
	if got := decode[model.ReservationDetail](t, rec).Status; got != model.ReservationConfirmed {
		t.Fatalf("confirmed status = %q", got)
	}

	// The reservation links the two users for chat.
	rec = a.do(t, http.MethodPost, "/api/chats", passenger.token, map[string]any{"receiver_id": driver.id, "message": "See you at the station"})
	expect(t, rec, http.StatusCreated)
	rec = a.do(t, http.MethodGet, "/api/chats/unread-count", driver.token, nil)
	expect(t, rec, http.StatusOK)
	if got := decode[map[string]int64](t, rec)["unread"]; got != 1 {
		t.Fatalf("unread = %d", got)
	}
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d", passenger.id), driver.token, nil)
	expect(t, rec, http.StatusOK)
	if msgs := decode[[]model.ChatMessage](t, rec); len(msgs) != 1 {
		t.Fatalf("conversation = %+v", msgs)
	}

	rec = a.do(t, http.MethodGet, "/api/notifications/unread-count", driver.token, nil)
	expect(t, rec, http.StatusOK)
	if got := decode[map[string]int64](t, rec)["unread"]; got < 1 {
		t.Fatalf("driver notifications unread = %d", got)
	}
	expect(t, a.do(t, http.MethodPatch, "/api/notifications/read-all", driver.token, nil), http.StatusOK)

	rec = a.do(t, http.MethodPatch, resPath+"/cancel", passenger.token, nil)
	expect(t, rec, http.StatusOK)
	if got := decode[model.ReservationDetail](t, rec).Status; got != model.ReservationCancelled {
		t.Fatalf("cancelled status = %q", got)
	}
	expect(t, a.do(t, http.MethodPatch, resPath+"/cancel", passenger.token, nil), http.StatusConflict)

	rec = a.do(t, http.MethodGet, "/api/reservations", passenger.token, nil)
	expect(t, rec, http.StatusOK)
	if list := decode[[]model.ReservationDetail](t, rec); len(list) != 0 {
		t.Fatalf("cancelled reservation listed: %+v", list)
	}
	rec = a.do(t, http.MethodGet, "/api/reservations?include_cancelled=true", passenger.token, nil)
	expect(t, rec, http.StatusOK)
	if list := decode[[]model.ReservationDetail](t, rec); len(list) != 1 {
		t.Fatalf("include_cancelled = %+v", list)
	}

	// Chat is closed once nothing links the pair.
	rec = a.do(t, http.MethodPost, "/api/chats", passenger.token, map[string]any{"receiver_id": driver.id, "message": "hello?"})
	expect(t, rec, http.StatusForbidden)

	expect(t, a.do(t, http.MethodDelete, fmt.Sprintf("/api/trips/%d", trip.ID), driver.token, nil), http.StatusOK)
	expect(t, a.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d", trip.ID), "", nil), http.StatusNotFound)
}

func TestParameterAndLookupErrors(t *testing.T) {
	a := newApp(t)

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"bad min_price", "/api/trips?min_price=cheap", http.StatusBadRequest},
		{"bad trip id", "/api/trips/abc", http.StatusBadRequest},
		{"missing trip", "/api/trips/999", http.StatusNotFound},
		{"unknown city", "/api/trips/estimate/price?from=Paris&to=" + url.QueryEscape("Atlantis"), http.StatusNotFound},
		{"known cities", "/api/trips/estimate/time?from=Paris&to=Lyon", http.StatusOK},
		{"missing user", "/api/users/999", http.StatusNotFound},
		{"unknown route", "/api/nothing-here", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expect(t, a.do(t, http.MethodGet, tc.path, "", nil), tc.status)
		})
	}

	rec := a.do(t, http.MethodGet, "/api/trips/estimate/price?from=Paris&to=Lyon", "", nil)
	expect(t, rec, http.StatusOK)
	if est := decode[geo.PriceEstimate](t, rec); est.Price < 40 || est.Price > 42 {
		t.Fatalf("estimate = %+v", est)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := newApp(t)
	p := a.signup(t, model.RolePassenger)
	admin := a.admin(t)

	expect(t, a.do(t, http.MethodGet, "/api/admin/stats", "", nil), http.StatusUnauthorized)
	expect(t, a.do(t, http.MethodGet, "/api/admin/stats", p.token, nil), http.StatusForbidden)

	rec := a.do(t, http.MethodGet, "/api/admin/stats", admin.token, nil)
	expect(t, rec, http.StatusOK)
	if st := decode[service.Stats](t, rec); st.Users[model.RolePassenger] != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDriverRequestOverMultipart(t *testing.T) {
	a := newApp(t)
	admin := a.admin(t)
	p := a.signup(t, model.RolePassenger)

	rec := a.submitRequest(t, p)
	expect(t, rec, http.StatusCreated)
	dr := decode[model.DriverRequest](t, rec)
	if dr.Status != model.RequestPending || !strings.HasPrefix(dr.LicenseDocument, "/uploads/licenses/") {
		t.Fatalf("request = %+v", dr)
	}
	expect(t, a.submitRequest(t, p), http.StatusConflict)

	expect(t, a.do(t, http.MethodPost, "/api/driver-requests", p.token, map[string]string{"license_number": "x"}), http.StatusBadRequest)

	path := fmt.Sprintf("/api/admin/driver-requests/%d/approve", dr.ID)
	rec = a.do(t, http.MethodPatch, path, admin.token, map[string]string{"admin_notes": "looks good"})
	expect(t, rec, http.StatusOK)
	if got := decode[model.DriverRequest](t, rec).Status; got != model.RequestApproved {
		t.Fatalf("status = %q", got)
	}
	expect(t, a.do(t, http.MethodPatch, path, admin.token, nil), http.StatusConflict)

	rec = a.do(t, http.MethodGet, "/api/auth/me", p.token, nil)
	expect(t, rec, http.StatusOK)
	if me := decode[model.User](t, rec); me.Role != model.RoleDriver || !me.IsVerified {
		t.Fatalf("user after approval = %+v", me)
	}
}

func TestWebsocketNeedsToken(t *testing.T) {
	a := newApp(t)
	expect(t, a.do(t, http.MethodGet, "/ws", "", nil), http.StatusUnauthorized)
	expect(t, a.do(t, http.MethodGet, "/ws?token=garbage", "", nil), http.StatusUnauthorized)
}

func TestPromotedPassengerCanRatePastTrip(t *testing.T) {
	a := newApp(t)
	admin := a.admin(t)
	driver := a.verifiedDriver(t, admin)
	p := a.signup(t, model.RolePassenger)
	trip := a.publish(t, driver, 2)

	rec := a.do(t, http.MethodPost, "/api/reservations", p.token, map[string]uint64{"trip_id": trip.ID})
	expect(t, rec, http.StatusCreated)
	res := decode[model.ReservationDetail](t, rec)
	expect(t, a.do(t, http.MethodPatch, fmt.Sprintf("/api/reservations/%d/confirm", res.ID), driver.token, nil), http.StatusOK)

	// The trip has taken place.
	past := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	if _, err := a.db.Exec(`UPDATE trips SET departure_date=? WHERE id=?`, past, trip.ID); err != nil {
		t.Fatalf("move trip: %v", err)
	}

	rec = a.submitRequest(t, p)
	expect(t, rec, http.StatusCreated)
	dr := decode[model.DriverRequest](t, rec)
	expect(t, a.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/driver-requests/%d/approve", dr.ID), admin.token, nil), http.StatusOK)
	p = a.login(t, p)

	ratePath := fmt.Sprintf("/api/reservations/%d/rating", res.ID)
	expect(t, a.do(t, http.MethodPost, ratePath, driver.token, map[string]any{"score": 5}), http.StatusForbidden)
	rec = a.do(t, http.MethodPost, ratePath, p.token, map[string]any{"score": 4, "comment": "smooth ride"})
	expect(t, rec, http.StatusCreated)
	if r := decode[model.Rating](t, rec); r.Score != 4 || r.DriverID != driver.id {
		t.Fatalf("rating = %+v", r)
	}
	expect(t, a.do(t, http.MethodPost, ratePath, p.token, map[string]any{"score": 4}), http.StatusConflict)
}

func TestPagingParameters(t *testing.T) {
	a := newApp(t)
	p := a.signup(t, model.RolePassenger)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"search page not a number", "/api/trips?page=two", "", http.StatusUnprocessableEntity},
		{"search page out of int range", "/api/trips?page=99999999999999999999999", "", http.StatusUnprocessableEntity},
		{"search limit not a number", "/api/trips?limit=ten", "", http.StatusUnprocessableEntity},
		{"search min_seats not a number", "/api/trips?min_seats=x", "", http.StatusUnprocessableEntity},
		{"search huge page", "/api/trips?page=1844674407370955161", "", http.StatusOK},
		{"notifications page not a number", "/api/notifications?page=x", p.token, http.StatusUnprocessableEntity},
		{"notifications huge page", "/api/notifications?page=9223372036854775807&limit=100", p.token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expect(t, a.do(t, http.MethodGet, tc.path, tc.token, nil), tc.status)
		})
	}

	rec := a.do(t, http.MethodGet, "/api/trips?page=1844674407370955161", "", nil)
	expect(t, rec, http.StatusOK)
	if page := decode[service.SearchPage](t, rec); len(page.Results) != 0 || page.Page == 1844674407370955161 {
		t.Fatalf("huge page = %+v", page)
	}
}
