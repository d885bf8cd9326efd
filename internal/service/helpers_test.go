package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/tripshare/internal/database/dbtest"
	"github.com/iliyamo/tripshare/internal/geo"
	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/queue"
	"github.com/iliyamo/tripshare/internal/repository"
	"github.com/iliyamo/tripshare/internal/storage"
	"github.com/iliyamo/tripshare/internal/utils"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type frame struct {
	userID uint64
	typ    string
	data   any
}

type fakePusher struct {
	mu     sync.Mutex
	frames []frame
}

func (f *fakePusher) SendToUser(userID uint64, typ string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{userID, typ, data})
}

func (f *fakePusher) count(userID uint64, typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, fr := range f.frames {
		if fr.userID == userID && fr.typ == typ {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeSMS struct {
	mu   sync.Mutex
	sent map[string]string
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[to] = body
	return nil
}

type codeEntry struct{ phone, code string }

type fakeCodes struct {
	mu      sync.Mutex
	entries map[uint64]codeEntry
}

func (f *fakeCodes) Put(_ context.Context, userID uint64, phone, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = map[uint64]codeEntry{}
	}
	f.entries[userID] = codeEntry{phone, code}
	return nil
}

func (f *fakeCodes) Take(_ context.Context, userID uint64) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[userID]
	if !ok {
		return "", "", repository.ErrNotFound
	}
	delete(f.entries, userID)
	return e.phone, e.code, nil
}

// env is a fully wired service layer over an in-memory database with a
// fixed clock.
type env struct {
	db           *sql.DB
	users        *repository.UserRepo
	trips        *repository.TripRepo
	reservations *repository.ReservationRepo
	notes        *repository.NotificationRepo
	pusher       *fakePusher
	pub          *fakePublisher
	sms          *fakeSMS
	codes        *fakeCodes

	notifier *Notifier
	trip     *TripService
	res      *ReservationService
	chat     *ChatService
	admin    *AdminService
	auth     *AuthService

	seq int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	files, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	clock := func() time.Time { return testNow }

	e := &env{
		db:           db,
		users:        repository.NewUserRepo(db),
		trips:        repository.NewTripRepo(db),
		reservations: repository.NewReservationRepo(db),
		notes:        repository.NewNotificationRepo(db),
		pusher:       &fakePusher{},
		pub:          &fakePublisher{},
		sms:          &fakeSMS{},
		codes:        &fakeCodes{},
	}
	ratings := repository.NewRatingRepo(db)

	e.notifier = NewNotifier(e.notes, e.pusher, e.pub, nil)
	e.notifier.now = clock
	e.trip = NewTripService(db, e.trips, e.reservations, e.users, e.notifier,
		geo.NewEstimator(geo.Chain{geo.DefaultCities}, 2.0, 0.10, 80, 15))
	e.trip.now = clock
	e.res = NewReservationService(db, e.trips, e.reservations, ratings, e.users, e.notifier)
	e.res.now = clock
	e.chat = NewChatService(repository.NewChatRepo(db), e.users, e.notifier)
	e.chat.now = clock
	e.admin = NewAdminService(db, e.users, repository.NewDriverRequestRepo(db), e.trips, e.reservations, files, e.notifier)
	e.admin.now = clock
	e.auth, err = NewAuthService(AuthConfig{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}, e.users, repository.NewTokenRepo(db), ratings, files, e.sms, e.codes, nil)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	e.auth.now = clock
	return e
}

// user inserts a user directly and returns its identity.
func (e *env) user(t *testing.T, role string, verified bool) Identity {
	t.Helper()
	e.seq++
	hash, err := utils.HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := model.User{
		Name:         fmt.Sprintf("%s %d", role, e.seq),
		Email:        fmt.Sprintf("%s%d@example.com", role, e.seq),
		PasswordHash: hash,
		Role:         role,
		IsVerified:   verified,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	id, err := e.users.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return Identity{UserID: id, Role: role, Name: u.Name}
}

// tripAt inserts an open trip of driver departing at dep.
func (e *env) tripAt(t *testing.T, driver Identity, dep time.Time, seats int) model.Trip {
	t.Helper()
	tr := model.Trip{
		DriverID:          driver.UserID,
		DepartureCity:     "Paris",
		DestinationCity:   "Lyon",
		DepartureDate:     dep,
		Price:             25,
		AvailableSeats:    seats,
		Status:            model.TripOpen,
		RecurrencePattern: model.RecurNone,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}
	ctx := context.Background()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	tr.ID, err = e.trips.CreateTx(ctx, tx, tr)
	if err != nil {
		_ = tx.Rollback()
		t.Fatalf("create trip: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return tr
}

func (e *env) seats(t *testing.T, tripID uint64) int {
	t.Helper()
	tr, err := e.trips.GetByID(context.Background(), tripID)
	if err != nil {
		t.Fatalf("load trip: %v", err)
	}
	return tr.AvailableSeats
}

func (e *env) notificationTypes(t *testing.T, userID uint64) []string {
	t.Helper()
	rows, _, err := e.notes.ListByUser(context.Background(), userID, 100, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	out := make([]string, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.Type)
	}
	return out
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if KindOf(err) != kind {
		t.Fatalf("want error kind %d, got %v (kind %d)", kind, err, KindOf(err))
	}
}
