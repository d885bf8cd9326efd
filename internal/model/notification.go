package model

import "time"

// Notification types.
const (
	NotifyReservationRequest = "reservation_request"
	NotifyConfirmation       = "confirmation"
	NotifyCancellation       = "cancellation"
	NotifyTripUpdate         = "trip_update"
	NotifyTripDeletion       = "trip_deletion"
	NotifyDriverApproved     = "driver_approved"
	NotifyDriverRejected     = "driver_rejected"
)

type Notification struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
