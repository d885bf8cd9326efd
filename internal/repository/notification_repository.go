package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create appends a notification for userID.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, typ, message string, now time.Time) (model.Notification, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, message, type, is_read, created_at) VALUES (?,?,?,0,?)`,
		userID, message, typ, now)
	if err != nil {
		return model.Notification{}, err
	}
	id, err := lastID(res)
	if err != nil {
		return model.Notification{}, err
	}
	return model.Notification{ID: id, UserID: userID, Message: message, Type: typ, CreatedAt: now}, nil
}

// ListByUser returns one page of the user's notifications, newest first,
// and the total count.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id=?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, type, is_read, created_at FROM notifications
		 WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Notification, 0, limit)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=0`, userID).Scan(&n)
	return n, err
}

// MarkRead marks one of the user's notifications read.  Marking an already
// read row succeeds; a row of another user is ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?`, id, userID)
	return affectedOne(res, err)
}

// MarkAllRead marks every unread notification of the user and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=1 WHERE user_id=? AND is_read=0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
