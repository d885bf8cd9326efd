package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/queue"
	"github.com/iliyamo/tripshare/internal/repository"
)

// ReservationService implements the booking lifecycle
// pending -> confirmed -> cancelled and pending -> cancelled.
type ReservationService struct {
	db           *sql.DB
	trips        *repository.TripRepo
	reservations *repository.ReservationRepo
	ratings      *repository.RatingRepo
	users        *repository.UserRepo
	notify       *Notifier
	now          func() time.Time
}

func NewReservationService(db *sql.DB, trips *repository.TripRepo, reservations *repository.ReservationRepo,
	ratings *repository.RatingRepo, users *repository.UserRepo, notify *Notifier) *ReservationService {
	return &ReservationService{
		db:           db,
		trips:        trips,
		reservations: reservations,
		ratings:      ratings,
		users:        users,
		notify:       notify,
		now:          utcNow,
	}
}

func route(from, to string, at time.Time) string {
	return fmt.Sprintf("%s → %s on %s", from, to, at.UTC().Format("2006-01-02 15:04"))
}

// Create books one seat of tripID for the calling passenger.
func (s *ReservationService) Create(ctx context.Context, who Identity, tripID uint64) (model.ReservationDetail, error) {
	if who.Role != model.RolePassenger {
		return model.ReservationDetail{}, forbidden("only passengers can book trips")
	}
	trip, err := s.trips.GetByID(ctx, tripID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ReservationDetail{}, notFound("trip not found")
	}
	if err != nil {
		return model.ReservationDetail{}, fmt.Errorf("load trip: %w", err)
	}
	if trip.DriverID == who.UserID {
		return model.ReservationDetail{}, badRequest("cannot book your own trip")
	}
	if trip.Status != model.TripOpen {
		return model.ReservationDetail{}, badRequest("trip is not open for booking")
	}
	dup, err := s.reservations.HasActive(ctx, tripID, who.UserID)
	if err != nil {
		return model.ReservationDetail{}, fmt.Errorf("check reservation: %w", err)
	}
	if dup {
		return model.ReservationDetail{}, conflict("reservation already exists")
	}

	now := s.now()
	var id uint64
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.trips.DecrementSeatTx(ctx, tx, tripID, now)
		if err != nil {
			return fmt.Errorf("take seat: %w", err)
		}
		if !ok {
			return conflict("no seats available")
		}
		dup, err := s.reservations.HasActiveTx(ctx, tx, tripID, who.UserID)
		if err != nil {
			return fmt.Errorf("check reservation: %w", err)
		}
		if dup {
			return conflict("reservation already exists")
		}
		id, err = s.reservations.CreateTx(ctx, tx, tripID, who.UserID, now)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ReservationDetail{}, err
	}

	s.notify.Notify(ctx, trip.DriverID, model.NotifyReservationRequest,
		fmt.Sprintf("%s requested a seat on your trip %s", who.Name,
			route(trip.DepartureCity, trip.DestinationCity, trip.DepartureDate)))
	s.notify.Publish(ctx, queue.ActivityEvent{
		Type: queue.EventReservationCreated, UserID: who.UserID, TripID: tripID, ReservationID: id,
	})

	d, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return model.ReservationDetail{}, fmt.Errorf("reload reservation: %w", err)
	}
	return d, nil
}

func (s *ReservationService) load(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	d, err := s.reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return d, notFound("reservation not found")
	}
	if err != nil {
		return d, fmt.Errorf("load reservation: %w", err)
	}
	return d, nil
}

// Confirm accepts a pending reservation; only the trip's driver may do it.
func (s *ReservationService) Confirm(ctx context.Context, who Identity, id uint64) (model.ReservationDetail, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return d, err
	}
	if d.DriverID != who.UserID {
		return model.ReservationDetail{}, forbidden("only the trip's driver can confirm this reservation")
	}
	if d.Status != model.ReservationPending {
		return model.ReservationDetail{}, badRequest("reservation is not pending")
	}
	ok, err := s.reservations.Confirm(ctx, id, s.now())
	if err != nil {
		return model.ReservationDetail{}, fmt.Errorf("confirm reservation: %w", err)
	}
	if !ok {
		return model.ReservationDetail{}, badRequest("reservation is not pending")
	}

	s.notify.Notify(ctx, d.PassengerID, model.NotifyConfirmation,
		fmt.Sprintf("%s confirmed your reservation for %s", d.DriverName,
			route(d.DepartureCity, d.DestinationCity, d.DepartureDate)))
	s.notify.Publish(ctx, queue.ActivityEvent{
		Type: queue.EventReservationConfirmed, UserID: who.UserID, TripID: d.TripID, ReservationID: id,
	})
	return s.load(ctx, id)
}

// Cancel releases the seat of an active reservation.  Both parties may
// cancel; the other one is notified.
func (s *ReservationService) Cancel(ctx context.Context, who Identity, id uint64) (model.ReservationDetail, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return d, err
	}
	if d.PassengerID != who.UserID && d.DriverID != who.UserID {
		return model.ReservationDetail{}, forbidden("not your reservation")
	}
	return s.cancel(ctx, who, d)
}

// Reject is the driver's cancel.
func (s *ReservationService) Reject(ctx context.Context, who Identity, id uint64) (model.ReservationDetail, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return d, err
	}
	if d.DriverID != who.UserID {
		return model.ReservationDetail{}, forbidden("only the trip's driver can reject this reservation")
	}
	return s.cancel(ctx, who, d)
}

func (s *ReservationService) cancel(ctx context.Context, who Identity, d model.ReservationDetail) (model.ReservationDetail, error) {
	if d.Status == model.ReservationCancelled {
		return model.ReservationDetail{}, conflict("reservation already cancelled")
	}
	now := s.now()
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.reservations.CancelTx(ctx, tx, d.ID, now)
		if err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		if !ok {
			return conflict("reservation already cancelled")
		}
		if err := s.trips.IncrementSeatTx(ctx, tx, d.TripID, now); err != nil {
			return fmt.Errorf("restore seat: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ReservationDetail{}, err
	}

	trip := route(d.DepartureCity, d.DestinationCity, d.DepartureDate)
	if who.UserID == d.PassengerID {
		s.notify.Notify(ctx, d.DriverID, model.NotifyCancellation,
			fmt.Sprintf("%s cancelled their reservation for %s", d.PassengerName, trip))
	} else {
		s.notify.Notify(ctx, d.PassengerID, model.NotifyCancellation,
			fmt.Sprintf("%s cancelled your reservation for %s", d.DriverName, trip))
	}
	s.notify.Publish(ctx, queue.ActivityEvent{
		Type: queue.EventReservationCancelled, UserID: who.UserID, TripID: d.TripID, ReservationID: d.ID,
	})
	return s.load(ctx, d.ID)
}

// Get returns a reservation visible to one of its parties.
func (s *ReservationService) Get(ctx context.Context, who Identity, id uint64) (model.ReservationDetail, error) {
	d, err := s.reservations.GetByIDForParty(ctx, id, who.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return d, notFound("reservation not found")
	case errors.Is(err, repository.ErrForbidden):
		return d, forbidden("not your reservation")
	case err != nil:
		return d, fmt.Errorf("load reservation: %w", err)
	}
	return d, nil
}

// List returns the caller's reservations as passenger and as driver.
func (s *ReservationService) List(ctx context.Context, who Identity, includeCancelled bool) ([]model.ReservationDetail, error) {
	out, err := s.reservations.ListForUser(ctx, who.UserID, includeCancelled)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// RateInput is the body of a rating.
type RateInput struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Rate records the passenger's rating of the driver once the trip departed.
func (s *ReservationService) Rate(ctx context.Context, who Identity, id uint64, in RateInput) (model.Rating, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return model.Rating{}, err
	}
	if d.PassengerID != who.UserID {
		return model.Rating{}, forbidden("not your reservation")
	}
	if d.Status == model.ReservationCancelled {
		return model.Rating{}, badRequest("cannot rate a cancelled reservation")
	}
	now := s.now()
	if !d.DepartureDate.Before(now) {
		return model.Rating{}, badRequest("trip not yet completed")
	}
	if in.Score < 1 || in.Score > 5 {
		return model.Rating{}, invalid("score must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > 1000 {
		return model.Rating{}, invalid("comment must be at most 1000 characters")
	}

	r := model.Rating{
		ReservationID: d.ID,
		TripID:        d.TripID,
		PassengerID:   d.PassengerID,
		PassengerName: d.PassengerName,
		DriverID:      d.DriverID,
		Score:         in.Score,
		Comment:       comment,
		CreatedAt:     now,
	}
	r.ID, err = s.ratings.Create(ctx, r)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Rating{}, conflict("already rated")
	}
	if err != nil {
		return model.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return r, nil
}

// DriverRatings is the read side of ratings for a profile page.
type DriverRatings struct {
	Summary model.RatingSummary `json:"summary"`
	Ratings []model.Rating      `json:"ratings"`
}

func (s *ReservationService) DriverRatings(ctx context.Context, driverID uint64) (DriverRatings, error) {
	if _, err := s.users.GetByID(ctx, driverID); errors.Is(err, repository.ErrNotFound) {
		return DriverRatings{}, notFound("user not found")
	} else if err != nil {
		return DriverRatings{}, fmt.Errorf("load user: %w", err)
	}
	sum, err := s.ratings.Summary(ctx, driverID)
	if err != nil {
		return DriverRatings{}, fmt.Errorf("rating summary: %w", err)
	}
	list, err := s.ratings.ListForDriver(ctx, driverID)
	if err != nil {
		return DriverRatings{}, fmt.Errorf("list ratings: %w", err)
	}
	sum.Average = float64(int(sum.Average*100+0.5)) / 100
	return DriverRatings{Summary: sum, Ratings: list}, nil
}
