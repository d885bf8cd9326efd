package model

import "time"

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Reservation is a passenger's claim on one seat of a trip.  Cancelled rows
// are kept (CancelledAt set) and no longer count as active.
type Reservation struct {
	ID          uint64     `json:"id"`
	TripID      uint64     `json:"trip_id"`
	PassengerID uint64     `json:"passenger_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Active reports whether the reservation still holds a seat.
func (r Reservation) Active() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

// ReservationDetail carries what both parties need to render a booking: the
// trip summary and both names.
type ReservationDetail struct {
	Reservation
	DriverID        uint64    `json:"driver_id"`
	DriverName      string    `json:"driver_name"`
	PassengerName   string    `json:"passenger_name"`
	DepartureCity   string    `json:"departure_city"`
	DestinationCity string    `json:"destination_city"`
	DepartureDate   time.Time `json:"departure_date"`
	Price           float64   `json:"price"`
	TripStatus      string    `json:"trip_status"`
	Rated           bool      `json:"rated"`
}
