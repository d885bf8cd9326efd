package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tripshare/internal/model"
)

type RatingRepo struct{ db *sql.DB }

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Create inserts a rating.  The unique index on reservation_id is the
// authority on "already rated": a violation comes back as ErrDuplicate.
func (r *RatingRepo) Create(ctx context.Context, rt model.Rating) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (reservation_id, trip_id, passenger_id, driver_id, score, comment, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		rt.ReservationID, rt.TripID, rt.PassengerID, rt.DriverID, rt.Score, rt.Comment, rt.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return lastID(res)
}

// ListForDriver returns the ratings a driver received, newest first.
func (r *RatingRepo) ListForDriver(ctx context.Context, driverID uint64) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ra.id, ra.reservation_id, ra.trip_id, ra.passenger_id, u.name, ra.driver_id, ra.score, ra.comment, ra.created_at
		 FROM ratings ra JOIN users u ON u.id = ra.passenger_id
		 WHERE ra.driver_id=? ORDER BY ra.created_at DESC, ra.id DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rating{}
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.ReservationID, &rt.TripID, &rt.PassengerID, &rt.PassengerName,
			&rt.DriverID, &rt.Score, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, err
		}
		rt.CreatedAt = rt.CreatedAt.UTC()
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Summary returns the average score and count for a driver.
func (r *RatingRepo) Summary(ctx context.Context, driverID uint64) (model.RatingSummary, error) {
	var s model.RatingSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(score), 0), COUNT(*) FROM ratings WHERE driver_id=?`, driverID).Scan(&s.Average, &s.Count)
	return s, err
}
