package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

type ChatRepo struct{ db *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

// LinkExists reports whether a pending or confirmed reservation connects a
// and b as passenger and trip driver, in either direction.
func (r *ChatRepo) LinkExists(ctx context.Context, a, b uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations r JOIN trips t ON t.id = r.trip_id
		 WHERE r.status IN ('pending','confirmed')
		   AND ((r.passenger_id=? AND t.driver_id=?) OR (r.passenger_id=? AND t.driver_id=?))`,
		a, b, b, a).Scan(&n)
	return n > 0, err
}

// Contacts lists the users linked to userID through an active reservation on
// a trip that has not departed yet, each with the count of unread messages
// they sent to userID.
func (r *ChatRepo) Contacts(ctx context.Context, userID uint64, now time.Time) ([]model.ChatContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.profile_photo, u.role,
			(SELECT COUNT(*) FROM chats c WHERE c.sender_id = u.id AND c.receiver_id = ? AND c.is_read = 0)
		 FROM users u
		 WHERE u.id IN (
			SELECT CASE WHEN r.passenger_id = ? THEN t.driver_id ELSE r.passenger_id END
			FROM reservations r JOIN trips t ON t.id = r.trip_id
			WHERE r.status IN ('pending','confirmed') AND t.departure_date > ?
			  AND (r.passenger_id = ? OR t.driver_id = ?)
		 )
		 ORDER BY u.name ASC, u.id ASC`,
		userID, userID, now, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ChatContact{}
	for rows.Next() {
		var c model.ChatContact
		if err := rows.Scan(&c.UserID, &c.Name, &c.ProfilePhoto, &c.Role, &c.Unread); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create stores a message and returns it.
func (r *ChatRepo) Create(ctx context.Context, senderID, receiverID uint64, message string, now time.Time) (model.ChatMessage, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (sender_id, receiver_id, message, is_read, created_at) VALUES (?,?,?,0,?)`,
		senderID, receiverID, message, now)
	if err != nil {
		return model.ChatMessage{}, err
	}
	id, err := lastID(res)
	if err != nil {
		return model.ChatMessage{}, err
	}
	return model.ChatMessage{ID: id, SenderID: senderID, ReceiverID: receiverID, Message: message, CreatedAt: now}, nil
}

// Conversation returns every message exchanged between a and b ordered by
// (created_at, id).
func (r *ChatRepo) Conversation(ctx context.Context, a, b uint64) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, message, is_read, created_at FROM chats
		 WHERE (sender_id=? AND receiver_id=?) OR (sender_id=? AND receiver_id=?)
		 ORDER BY created_at ASC, id ASC`, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkReadFrom marks the unread messages from sender to receiver read.
func (r *ChatRepo) MarkReadFrom(ctx context.Context, senderID, receiverID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chats SET is_read=1 WHERE sender_id=? AND receiver_id=? AND is_read=0`, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCount returns the number of unread messages addressed to userID.
func (r *ChatRepo) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chats WHERE receiver_id=? AND is_read=0`, userID).Scan(&n)
	return n, err
}
