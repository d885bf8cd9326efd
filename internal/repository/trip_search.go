package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

// TripSearchQuery defines filters & pagination for searching trips.  Zero
// values mean "no filter".  DateTo is exclusive: callers pass the day after
// the last day they want.
type TripSearchQuery struct {
	DepartureCity   string
	DestinationCity string
	DateFrom        time.Time
	DateTo          time.Time
	MinPrice        *float64
	MaxPrice        *float64
	MinSeats        int
	ExcludeDriverID uint64
	Now             time.Time
	Page            int
	Limit           int
}

// Search returns one page of open, upcoming trips matching q, plus the total
// number of matches.
func (r *TripRepo) Search(ctx context.Context, q TripSearchQuery) ([]model.TripDetail, int64, error) {
	where := []string{"t.status = 'open'", "t.departure_date >= ?"}
	args := []any{q.Now}

	if q.DepartureCity != "" {
		where = append(where, "LOWER(t.departure_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.DepartureCity)+"%")
	}
	if q.DestinationCity != "" {
		where = append(where, "LOWER(t.destination_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.DestinationCity)+"%")
	}
	if !q.DateFrom.IsZero() {
		where = append(where, "t.departure_date >= ?")
		args = append(args, q.DateFrom.UTC())
	}
	if !q.DateTo.IsZero() {
		where = append(where, "t.departure_date < ?")
		args = append(args, q.DateTo.UTC())
	}
	if q.MinPrice != nil {
		where = append(where, "t.price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "t.price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.MinSeats > 0 {
		where = append(where, "t.available_seats >= ?")
		args = append(args, q.MinSeats)
	}
	if q.ExcludeDriverID != 0 {
		where = append(where, "t.driver_id <> ?")
		args = append(args, q.ExcludeDriverID)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trips t WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	offset := (q.Page - 1) * q.Limit

	dataSQL := `SELECT ` + tripColumns + `, ` + driverSummary + `
		FROM trips t
		JOIN users u ON u.id = t.driver_id
		WHERE ` + cond + `
		ORDER BY t.departure_date ASC, t.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.TripDetail, 0, limit)
	for rows.Next() {
		d, err := scanTripDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
