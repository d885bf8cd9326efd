package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, password_hash, phone, role, profile_photo, license_document,
	is_verified, bio, preferences, phone_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u     model.User
		prefs sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.ProfilePhoto,
		&u.LicenseDocument, &u.IsVerified, &u.Bio, &prefs, &u.PhoneVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if prefs.Valid && prefs.String != "" {
		u.Preferences = json.RawMessage(prefs.String)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// prefsArg stores an empty document as NULL.
func prefsArg(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

// Create inserts a user (password already hashed) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, phone, role, profile_photo, license_document,
			is_verified, bio, preferences, phone_verified, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.ProfilePhoto, u.LicenseDocument,
		u.IsVerified, u.Bio, prefsArg(u.Preferences), u.PhoneVerified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return lastID(res)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// UpdateProfile writes the editable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name=?, phone=?, bio=?, preferences=?, phone_verified=?, updated_at=? WHERE id=?`,
		u.Name, u.Phone, u.Bio, prefsArg(u.Preferences), u.PhoneVerified, now, u.ID)
	return affectedOne(res, err)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, hash, now, id)
	return affectedOne(res, err)
}

func (r *UserRepo) UpdatePhoto(ctx context.Context, id uint64, photo string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_photo=?, updated_at=? WHERE id=?`, photo, now, id)
	return affectedOne(res, err)
}

func (r *UserRepo) SetPhoneVerified(ctx context.Context, id uint64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET phone_verified=1, updated_at=? WHERE id=?`, now, id)
	return affectedOne(res, err)
}

// ListUnverifiedDrivers returns drivers registered directly with the driver
// role that an admin has not verified yet, oldest first.
func (r *UserRepo) ListUnverifiedDrivers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role='driver' AND is_verified=0 ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// VerifyDriver flips is_verified for an unverified driver.  It returns false
// when no such driver exists (missing, not a driver, or already verified).
func (r *UserRepo) VerifyDriver(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified=1, updated_at=? WHERE id=? AND role='driver' AND is_verified=0`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteUnverifiedDriver removes a pending driver; dependent rows cascade.
func (r *UserRepo) DeleteUnverifiedDriver(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id=? AND role='driver' AND is_verified=0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// PromoteToDriverTx upgrades a passenger after an approved driver request and
// copies the request's license document onto the user row.
func (r *UserRepo) PromoteToDriverTx(ctx context.Context, tx *sql.Tx, id uint64, licenseDoc string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET role='driver', is_verified=1, license_document=?, updated_at=? WHERE id=?`,
		licenseDoc, now, id)
	return affectedOne(res, err)
}

// CountByRole returns the number of users per role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{model.RolePassenger: 0, model.RoleDriver: 0, model.RoleAdmin: 0}
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

// affectedOne turns "no row matched" into ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
