package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/geo"
	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/repository"
)

const maxSeats = 8

// TripService implements trip publishing, search and the estimate helpers.
type TripService struct {
	db           *sql.DB
	trips        *repository.TripRepo
	reservations *repository.ReservationRepo
	users        *repository.UserRepo
	notify       *Notifier
	estimator    *geo.Estimator
	now          func() time.Time
}

func NewTripService(db *sql.DB, trips *repository.TripRepo, reservations *repository.ReservationRepo,
	users *repository.UserRepo, notify *Notifier, estimator *geo.Estimator) *TripService {
	return &TripService{
		db:           db,
		trips:        trips,
		reservations: reservations,
		users:        users,
		notify:       notify,
		estimator:    estimator,
		now:          utcNow,
	}
}

// dateLayouts are the accepted forms of departure and range dates.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// ParseDate reads a timestamp in one of dateLayouts; zone-less values are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC().Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}

// TripInput is the body of a new trip.
type TripInput struct {
	DepartureCity     string  `json:"departure_city"`
	DestinationCity   string  `json:"destination_city"`
	DepartureDate     string  `json:"departure_date"`
	Price             float64 `json:"price"`
	AvailableSeats    int     `json:"available_seats"`
	Description       string  `json:"description"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern string  `json:"recurrence_pattern"`
	RecurrenceEndDate string  `json:"recurrence_end_date"`
}

// CreatedTrip is the parent trip plus how many occurrences were generated.
type CreatedTrip struct {
	Trip        model.Trip `json:"trip"`
	Occurrences int        `json:"generated_occurrences"`
}

func (s *TripService) requireVerifiedDriver(ctx context.Context, who Identity) error {
	if who.Role != model.RoleDriver {
		return forbidden("only drivers can manage trips")
	}
	u, err := s.users.GetByID(ctx, who.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return forbidden("only drivers can manage trips")
	}
	if err != nil {
		return fmt.Errorf("load driver: %w", err)
	}
	if !u.IsVerified {
		return forbidden("driver account pending verification")
	}
	return nil
}

// Create publishes a trip and, for recurring trips, its occurrences, all in
// one transaction.
func (s *TripService) Create(ctx context.Context, who Identity, in TripInput) (CreatedTrip, error) {
	if err := s.requireVerifiedDriver(ctx, who); err != nil {
		return CreatedTrip{}, err
	}
	now := s.now()

	t := model.Trip{
		DriverID:          who.UserID,
		DepartureCity:     strings.TrimSpace(in.DepartureCity),
		DestinationCity:   strings.TrimSpace(in.DestinationCity),
		Price:             in.Price,
		AvailableSeats:    in.AvailableSeats,
		Status:            model.TripOpen,
		RecurrencePattern: model.RecurNone,
		Description:       strings.TrimSpace(in.Description),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if t.DepartureCity == "" || t.DestinationCity == "" {
		return CreatedTrip{}, invalid("departure_city and destination_city are required")
	}
	dep, ok := ParseDate(in.DepartureDate)
	if !ok {
		return CreatedTrip{}, invalid("departure_date is required (RFC3339 or YYYY-MM-DD HH:MM)")
	}
	if !dep.After(now) {
		return CreatedTrip{}, invalid("departure_date must be in the future")
	}
	t.DepartureDate = dep
	if t.Price < 0 {
		return CreatedTrip{}, invalid("price must not be negative")
	}
	if t.AvailableSeats < 1 || t.AvailableSeats > maxSeats {
		return CreatedTrip{}, invalid("available_seats must be between 1 and %d", maxSeats)
	}

	var occurrences []time.Time
	if in.IsRecurring {
		switch in.RecurrencePattern {
		case model.RecurDaily, model.RecurWeekly, model.RecurWeekdays:
		case "", model.RecurNone:
			// Flagged recurring without a pattern: only the parent is stored.
			in.RecurrencePattern = model.RecurNone
		default:
			return CreatedTrip{}, invalid("unknown recurrence_pattern %q", in.RecurrencePattern)
		}
		t.IsRecurring = true
		t.RecurrencePattern = in.RecurrencePattern
		if in.RecurrenceEndDate != "" {
			end, ok := ParseDate(in.RecurrenceEndDate)
			if !ok {
				return CreatedTrip{}, invalid("recurrence_end_date must be YYYY-MM-DD")
			}
			t.RecurrenceEndDate = &end
			occurrences = ExpandRecurrence(dep, t.RecurrencePattern, end, now)
		}
	}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := s.trips.CreateTx(ctx, tx, t)
		if err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}
		t.ID = id
		for _, at := range occurrences {
			child := t
			child.ID = 0
			child.DepartureDate = at
			child.IsRecurring = false
			child.RecurrencePattern = model.RecurNone
			child.RecurrenceEndDate = nil
			child.ParentTripID = &id
			if _, err := s.trips.CreateTx(ctx, tx, child); err != nil {
				return fmt.Errorf("insert occurrence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return CreatedTrip{}, err
	}

	created, err := s.trips.GetByID(ctx, t.ID)
	if err != nil {
		return CreatedTrip{}, fmt.Errorf("reload trip: %w", err)
	}
	return CreatedTrip{Trip: created, Occurrences: len(occurrences)}, nil
}

// SearchInput carries the raw search filters.
type SearchInput struct {
	DepartureCity   string
	DestinationCity string
	DateFrom        string // YYYY-MM-DD
	DateTo          string // YYYY-MM-DD, inclusive
	MinPrice        *float64
	MaxPrice        *float64
	MinSeats        int
	Page            int
	Limit           int
}

type SearchPage struct {
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Total   int64              `json:"total"`
	Results []model.TripDetail `json:"results"`
}

// Search lists open upcoming trips.  who is nil for anonymous callers; a
// driver never sees their own trips.
func (s *TripService) Search(ctx context.Context, who *Identity, in SearchInput) (SearchPage, error) {
	page, limit := Page(in.Page, in.Limit, 10, 100)
	q := repository.TripSearchQuery{
		DepartureCity:   strings.TrimSpace(in.DepartureCity),
		DestinationCity: strings.TrimSpace(in.DestinationCity),
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		MinSeats:        in.MinSeats,
		Now:             s.now(),
		Page:            page,
		Limit:           limit,
	}
	if in.DateFrom != "" {
		t, err := time.Parse("2006-01-02", in.DateFrom)
		if err != nil {
			return SearchPage{}, invalid("date_from must be YYYY-MM-DD")
		}
		q.DateFrom = t
	}
	if in.DateTo != "" {
		t, err := time.Parse("2006-01-02", in.DateTo)
		if err != nil {
			return SearchPage{}, invalid("date_to must be YYYY-MM-DD")
		}
		q.DateTo = t.AddDate(0, 0, 1)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return SearchPage{}, invalid("min_price must not exceed max_price")
	}
	if who != nil && who.Role == model.RoleDriver {
		q.ExcludeDriverID = who.UserID
	}

	rows, total, err := s.trips.Search(ctx, q)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search trips: %w", err)
	}
	return SearchPage{Page: page, Limit: limit, Total: total, Results: rows}, nil
}

func (s *TripService) Get(ctx context.Context, id uint64) (model.TripDetail, error) {
	d, err := s.trips.GetDetail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return d, notFound("trip not found")
	}
	if err != nil {
		return d, fmt.Errorf("load trip: %w", err)
	}
	return d, nil
}

// Mine lists the caller's own trips in every status.
func (s *TripService) Mine(ctx context.Context, who Identity) ([]model.Trip, error) {
	if who.Role != model.RoleDriver {
		return nil, forbidden("only drivers have trips")
	}
	out, err := s.trips.ListByDriver(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return out, nil
}

func (s *TripService) owned(ctx context.Context, who Identity, id uint64) (model.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return t, notFound("trip not found")
	}
	if err != nil {
		return t, fmt.Errorf("load trip: %w", err)
	}
	if t.DriverID != who.UserID {
		return t, forbidden("not your trip")
	}
	return t, nil
}

// UpdateInput is a partial trip update; nil fields are left alone.
type UpdateInput struct {
	DepartureDate  *string  `json:"departure_date"`
	Price          *float64 `json:"price"`
	AvailableSeats *int     `json:"available_seats"`
	Status         *string  `json:"status"`
	Description    *string  `json:"description"`
}

// Update changes a trip of the caller and tells every passenger holding a
// seat.
func (s *TripService) Update(ctx context.Context, who Identity, id uint64, in UpdateInput) (model.TripDetail, error) {
	t, err := s.owned(ctx, who, id)
	if err != nil {
		return model.TripDetail{}, err
	}
	now := s.now()

	var p repository.TripPatch
	if in.DepartureDate != nil {
		dep, ok := ParseDate(*in.DepartureDate)
		if !ok {
			return model.TripDetail{}, invalid("departure_date must be RFC3339 or YYYY-MM-DD HH:MM")
		}
		if !dep.After(now) {
			return model.TripDetail{}, invalid("departure_date must be in the future")
		}
		p.DepartureDate = &dep
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return model.TripDetail{}, invalid("price must not be negative")
		}
		p.Price = in.Price
	}
	if in.AvailableSeats != nil {
		if *in.AvailableSeats < 0 || *in.AvailableSeats > maxSeats {
			return model.TripDetail{}, invalid("available_seats must be between 0 and %d", maxSeats)
		}
		p.AvailableSeats = in.AvailableSeats
	}
	if in.Status != nil {
		switch *in.Status {
		case model.TripOpen, model.TripClosed, model.TripCancelled:
			p.Status = in.Status
		default:
			return model.TripDetail{}, invalid("status must be open, closed or cancelled")
		}
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		p.Description = &d
	}
	if p.Empty() {
		return model.TripDetail{}, invalid("nothing to update")
	}

	if err := s.trips.Update(ctx, id, p, now); err != nil {
		return model.TripDetail{}, fmt.Errorf("update trip: %w", err)
	}

	passengers, err := s.reservations.ActivePassengerIDs(ctx, id)
	if err != nil {
		return model.TripDetail{}, fmt.Errorf("list passengers: %w", err)
	}
	msg := fmt.Sprintf("Your trip %s has been updated by the driver", route(t.DepartureCity, t.DestinationCity, t.DepartureDate))
	for _, pid := range passengers {
		s.notify.Notify(ctx, pid, model.NotifyTripUpdate, msg)
	}
	return s.Get(ctx, id)
}

// Delete removes a trip of the caller after collecting the passengers to
// notify; reservations and ratings go with it.
func (s *TripService) Delete(ctx context.Context, who Identity, id uint64) error {
	t, err := s.owned(ctx, who, id)
	if err != nil {
		return err
	}
	passengers, err := s.reservations.ActivePassengerIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("list passengers: %w", err)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("trip not found")
		}
		return fmt.Errorf("delete trip: %w", err)
	}
	msg := fmt.Sprintf("Your trip %s has been cancelled by the driver", route(t.DepartureCity, t.DestinationCity, t.DepartureDate))
	for _, pid := range passengers {
		s.notify.Notify(ctx, pid, model.NotifyTripDeletion, msg)
	}
	return nil
}

func estimateErr(err error) error {
	var ce *geo.CityError
	switch {
	case errors.As(err, &ce):
		return notFound("%s", ce.Error())
	case errors.Is(err, geo.ErrCityNotFound):
		return notFound("city not found")
	}
	return fmt.Errorf("estimate: %w", err)
}

func (s *TripService) EstimatePrice(ctx context.Context, from, to string) (geo.PriceEstimate, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return geo.PriceEstimate{}, invalid("from and to are required")
	}
	e, err := s.estimator.Price(ctx, from, to)
	if err != nil {
		return e, estimateErr(err)
	}
	return e, nil
}

func (s *TripService) EstimateTime(ctx context.Context, from, to string) (geo.TimeEstimate, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return geo.TimeEstimate{}, invalid("from and to are required")
	}
	e, err := s.estimator.Time(ctx, from, to)
	if err != nil {
		return e, estimateErr(err)
	}
	return e, nil
}
