package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

// ReservationRepo encapsulates reservation reads and the state-changing
// statements of the booking lifecycle.
type ReservationRepo struct{ db *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// detailSelect joins a reservation with its trip, the driver and the passenger.
const detailSelect = `SELECT r.id, r.trip_id, r.passenger_id, r.status, r.created_at, r.updated_at, r.cancelled_at,
		t.driver_id, d.name, p.name, t.departure_city, t.destination_city, t.departure_date, t.price, t.status,
		(SELECT COUNT(*) FROM ratings ra WHERE ra.reservation_id = r.id)
	FROM reservations r
	JOIN trips t ON t.id = r.trip_id
	JOIN users d ON d.id = t.driver_id
	JOIN users p ON p.id = r.passenger_id`

func scanDetail(row interface{ Scan(...any) error }) (model.ReservationDetail, error) {
	var (
		d         model.ReservationDetail
		cancelled sql.NullTime
		rated     int64
	)
	err := row.Scan(&d.ID, &d.TripID, &d.PassengerID, &d.Status, &d.CreatedAt, &d.UpdatedAt, &cancelled,
		&d.DriverID, &d.DriverName, &d.PassengerName, &d.DepartureCity, &d.DestinationCity, &d.DepartureDate,
		&d.Price, &d.TripStatus, &rated)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	d.CancelledAt = nullTime(cancelled)
	d.Rated = rated > 0
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	d.DepartureDate = d.DepartureDate.UTC()
	return d, nil
}

// HasActive reports whether the passenger already holds a pending or
// confirmed reservation on the trip.
func (r *ReservationRepo) HasActive(ctx context.Context, tripID, passengerID uint64) (bool, error) {
	return hasActive(ctx, r.db, tripID, passengerID)
}

// HasActiveTx is HasActive inside a transaction.
func (r *ReservationRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, tripID, passengerID uint64) (bool, error) {
	return hasActive(ctx, tx, tripID, passengerID)
}

func hasActive(ctx context.Context, q querier, tripID, passengerID uint64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE trip_id=? AND passenger_id=? AND status IN ('pending','confirmed')`,
		tripID, passengerID).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a pending reservation and returns its id.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, tripID, passengerID uint64, now time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (trip_id, passenger_id, status, created_at, updated_at) VALUES (?,?,'pending',?,?)`,
		tripID, passengerID, now, now)
	if err != nil {
		return 0, err
	}
	return lastID(res)
}

// GetByID returns a reservation with trip and party details.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailSelect+" WHERE r.id=? LIMIT 1", id))
	return d, notFound(err)
}

// GetByIDForParty is GetByID restricted to the passenger and the trip's
// driver; anyone else gets ErrForbidden.
func (r *ReservationRepo) GetByIDForParty(ctx context.Context, id, userID uint64) (model.ReservationDetail, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	if d.PassengerID != userID && d.DriverID != userID {
		return model.ReservationDetail{}, ErrForbidden
	}
	return d, nil
}

// Confirm moves a pending reservation to confirmed.  False means it was not
// pending any more.
func (r *ReservationRepo) Confirm(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status='confirmed', updated_at=? WHERE id=? AND status='pending'`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CancelTx soft-deletes an active reservation.  False means it was already
// cancelled.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status='cancelled', cancelled_at=?, updated_at=?
		 WHERE id=? AND status IN ('pending','confirmed')`, now, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListForUser returns reservations where the user is the passenger or the
// trip's driver, newest first.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID uint64, includeCancelled bool) ([]model.ReservationDetail, error) {
	q := detailSelect + " WHERE (r.passenger_id=? OR t.driver_id=?)"
	if !includeCancelled {
		q += " AND r.status IN ('pending','confirmed')"
	}
	q += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.db.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActivePassengerIDs returns the passengers holding a seat on the trip.
func (r *ReservationRepo) ActivePassengerIDs(ctx context.Context, tripID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT passenger_id FROM reservations WHERE trip_id=? AND status IN ('pending','confirmed') ORDER BY passenger_id`,
		tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActive returns the number of pending and confirmed reservations.
func (r *ReservationRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE status IN ('pending','confirmed')`).Scan(&n)
	return n, err
}
