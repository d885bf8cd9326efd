package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

type TripRepo struct{ db *sql.DB }

func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the pool so services can open transactions spanning repos.
func (r *TripRepo) DB() *sql.DB { return r.db }

const tripColumns = `t.id, t.driver_id, t.departure_city, t.destination_city, t.departure_date, t.price,
	t.available_seats, t.status, t.is_recurring, t.recurrence_pattern, t.recurrence_end_date,
	t.parent_trip_id, t.description, t.created_at, t.updated_at`

// driverSummary adds the driver's name, photo and rating aggregate to a
// trips query aliased "t" joined with users "u".
const driverSummary = `u.name, u.profile_photo,
	COALESCE((SELECT AVG(ra.score) FROM ratings ra WHERE ra.driver_id = t.driver_id), 0),
	(SELECT COUNT(*) FROM ratings ra WHERE ra.driver_id = t.driver_id)`

func tripDest(t *model.Trip, end *sql.NullTime, parent *sql.NullInt64) []any {
	return []any{&t.ID, &t.DriverID, &t.DepartureCity, &t.DestinationCity, &t.DepartureDate, &t.Price,
		&t.AvailableSeats, &t.Status, &t.IsRecurring, &t.RecurrencePattern, end,
		parent, &t.Description, &t.CreatedAt, &t.UpdatedAt}
}

func finishTrip(t *model.Trip, end sql.NullTime, parent sql.NullInt64) {
	t.RecurrenceEndDate = nullTime(end)
	if parent.Valid {
		p := uint64(parent.Int64)
		t.ParentTripID = &p
	}
	t.DepartureDate = t.DepartureDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
}

func scanTrip(row interface{ Scan(...any) error }) (model.Trip, error) {
	var (
		t      model.Trip
		end    sql.NullTime
		parent sql.NullInt64
	)
	if err := row.Scan(tripDest(&t, &end, &parent)...); err != nil {
		return model.Trip{}, err
	}
	finishTrip(&t, end, parent)
	return t, nil
}

func scanTripDetail(row interface{ Scan(...any) error }) (model.TripDetail, error) {
	var (
		d      model.TripDetail
		end    sql.NullTime
		parent sql.NullInt64
	)
	dest := append(tripDest(&d.Trip, &end, &parent), &d.DriverName, &d.DriverPhoto, &d.DriverRating, &d.DriverRatings)
	if err := row.Scan(dest...); err != nil {
		return model.TripDetail{}, err
	}
	finishTrip(&d.Trip, end, parent)
	return d, nil
}

// CreateTx inserts a trip inside tx and returns its id.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t model.Trip) (uint64, error) {
	var end, parent any
	if t.RecurrenceEndDate != nil {
		end = t.RecurrenceEndDate.UTC()
	}
	if t.ParentTripID != nil {
		parent = *t.ParentTripID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO trips (driver_id, departure_city, destination_city, departure_date, price, available_seats,
			status, is_recurring, recurrence_pattern, recurrence_end_date, parent_trip_id, description, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.DriverID, t.DepartureCity, t.DestinationCity, t.DepartureDate.UTC(), t.Price, t.AvailableSeats,
		t.Status, t.IsRecurring, t.RecurrencePattern, end, parent, t.Description, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return lastID(res)
}

// GetByID fetches the bare trip row.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (model.Trip, error) {
	t, err := scanTrip(r.db.QueryRowContext(ctx,
		"SELECT "+tripColumns+" FROM trips t WHERE t.id=? LIMIT 1", id))
	return t, notFound(err)
}

// GetDetail fetches a trip with its driver summary.
func (r *TripRepo) GetDetail(ctx context.Context, id uint64) (model.TripDetail, error) {
	d, err := scanTripDetail(r.db.QueryRowContext(ctx,
		"SELECT "+tripColumns+", "+driverSummary+" FROM trips t JOIN users u ON u.id = t.driver_id WHERE t.id=? LIMIT 1", id))
	return d, notFound(err)
}

// ListByDriver returns every trip of a driver, latest departure first.
func (r *TripRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tripColumns+" FROM trips t WHERE t.driver_id=? ORDER BY t.departure_date DESC, t.id DESC", driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListChildren returns the generated occurrences of a recurring trip.
func (r *TripRepo) ListChildren(ctx context.Context, parentID uint64) ([]model.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tripColumns+" FROM trips t WHERE t.parent_trip_id=? ORDER BY t.departure_date ASC", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TripPatch lists the fields a driver may change; nil means unchanged.
type TripPatch struct {
	DepartureDate  *time.Time
	Price          *float64
	AvailableSeats *int
	Status         *string
	Description    *string
}

// Empty reports whether the patch changes nothing.
func (p TripPatch) Empty() bool {
	return p.DepartureDate == nil && p.Price == nil && p.AvailableSeats == nil && p.Status == nil && p.Description == nil
}

// Update applies a partial update.  Only the given columns are written so a
// concurrent booking's seat decrement is never overwritten by a stale value.
func (r *TripRepo) Update(ctx context.Context, id uint64, p TripPatch, now time.Time) error {
	sets := []string{}
	args := []any{}
	if p.DepartureDate != nil {
		sets = append(sets, "departure_date=?")
		args = append(args, p.DepartureDate.UTC())
	}
	if p.Price != nil {
		sets = append(sets, "price=?")
		args = append(args, *p.Price)
	}
	if p.AvailableSeats != nil {
		sets = append(sets, "available_seats=?")
		args = append(args, *p.AvailableSeats)
	}
	if p.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *p.Status)
	}
	if p.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *p.Description)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now, id)

	res, err := r.db.ExecContext(ctx, "UPDATE trips SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return affectedOne(res, err)
}

// Delete removes a trip; reservations and ratings cascade.
func (r *TripRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM trips WHERE id=?", id)
	return affectedOne(res, err)
}

// DecrementSeatTx takes one seat if the trip is open and has one left.  The
// WHERE clause is the overbooking guard: false means nothing changed.
func (r *TripRepo) DecrementSeatTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE trips SET available_seats = available_seats - 1, updated_at=?
		 WHERE id=? AND status='open' AND available_seats > 0`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// IncrementSeatTx gives a seat back.  There is no upper bound: the original
// capacity is not stored.
func (r *TripRepo) IncrementSeatTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE trips SET available_seats = available_seats + 1, updated_at=? WHERE id=?`, now, id)
	return affectedOne(res, err)
}

// Count returns the number of trips, optionally only those with status.
func (r *TripRepo) Count(ctx context.Context, status string) (int64, error) {
	q, args := "SELECT COUNT(*) FROM trips", []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	var n int64
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
