package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

type DriverRequestRepo struct{ db *sql.DB }

func NewDriverRequestRepo(db *sql.DB) *DriverRequestRepo { return &DriverRequestRepo{db: db} }

// DB exposes the pool for approval transactions.
func (r *DriverRequestRepo) DB() *sql.DB { return r.db }

const requestSelect = `SELECT dr.id, dr.user_id, u.name, u.email, dr.license_number, dr.license_document,
		dr.vehicle_description, dr.status, dr.admin_notes, dr.created_at, dr.reviewed_at
	FROM driver_requests dr JOIN users u ON u.id = dr.user_id`

func scanRequest(row interface{ Scan(...any) error }) (model.DriverRequest, error) {
	var (
		d        model.DriverRequest
		reviewed sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.UserName, &d.UserEmail, &d.LicenseNumber, &d.LicenseDocument,
		&d.VehicleDescription, &d.Status, &d.AdminNotes, &d.CreatedAt, &reviewed); err != nil {
		return model.DriverRequest{}, err
	}
	d.ReviewedAt = nullTime(reviewed)
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

func (r *DriverRequestRepo) Create(ctx context.Context, d model.DriverRequest) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO driver_requests (user_id, license_number, license_document, vehicle_description, status, admin_notes, created_at)
		 VALUES (?,?,?,?,'pending','',?)`,
		d.UserID, d.LicenseNumber, d.LicenseDocument, d.VehicleDescription, d.CreatedAt)
	if err != nil {
		return 0, err
	}
	return lastID(res)
}

// HasPending reports whether the user already waits for a review.
func (r *DriverRequestRepo) HasPending(ctx context.Context, userID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM driver_requests WHERE user_id=? AND status='pending'`, userID).Scan(&n)
	return n > 0, err
}

func (r *DriverRequestRepo) GetByID(ctx context.Context, id uint64) (model.DriverRequest, error) {
	d, err := scanRequest(r.db.QueryRowContext(ctx, requestSelect+" WHERE dr.id=? LIMIT 1", id))
	return d, notFound(err)
}

// GetByIDTx reads a request inside the approval transaction.
func (r *DriverRequestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.DriverRequest, error) {
	d, err := scanRequest(tx.QueryRowContext(ctx, requestSelect+" WHERE dr.id=? LIMIT 1", id))
	return d, notFound(err)
}

// List returns requests, optionally filtered by status, oldest first so the
// queue is reviewed in arrival order.
func (r *DriverRequestRepo) List(ctx context.Context, status string) ([]model.DriverRequest, error) {
	q, args := requestSelect, []any{}
	if status != "" {
		q += " WHERE dr.status=?"
		args = append(args, status)
	}
	q += " ORDER BY dr.created_at ASC, dr.id ASC"
	return r.list(ctx, q, args...)
}

// ListByUser returns a user's requests, newest first.
func (r *DriverRequestRepo) ListByUser(ctx context.Context, userID uint64) ([]model.DriverRequest, error) {
	return r.list(ctx, requestSelect+" WHERE dr.user_id=? ORDER BY dr.created_at DESC, dr.id DESC", userID)
}

func (r *DriverRequestRepo) list(ctx context.Context, q string, args ...any) ([]model.DriverRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DriverRequest{}
	for rows.Next() {
		d, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ApproveTx moves a pending request to approved.  False means another admin
// processed it first.
func (r *DriverRequestRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id uint64, notes string, now time.Time) (bool, error) {
	return review(ctx, tx, id, model.RequestApproved, notes, now)
}

// Reject moves a pending request to rejected with the admin's notes.
func (r *DriverRequestRepo) Reject(ctx context.Context, id uint64, notes string, now time.Time) (bool, error) {
	return review(ctx, r.db, id, model.RequestRejected, notes, now)
}

func review(ctx context.Context, q querier, id uint64, status, notes string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE driver_requests SET status=?, admin_notes=?, reviewed_at=? WHERE id=? AND status='pending'`,
		status, notes, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
