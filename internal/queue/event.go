// Package queue carries activity events over RabbitMQ: the API publishes one
// event per booking or notification, and an optional consumer appends them
// to an activity log file.
package queue

import "time"

// Activity event names.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventNotificationCreated  = "notification.created"
)

// ActivityEvent is small on purpose: consumers that need more look the rows
// up by id.
type ActivityEvent struct {
	Type          string    `json:"type"`
	UserID        uint64    `json:"user_id"`
	TripID        uint64    `json:"trip_id,omitempty"`
	ReservationID uint64    `json:"reservation_id,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
