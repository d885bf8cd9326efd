package model

import "time"

const (
	TripOpen      = "open"
	TripClosed    = "closed"
	TripCancelled = "cancelled"
)

// Recurrence patterns of trips.recurrence_pattern.
const (
	RecurNone     = "none"
	RecurDaily    = "daily"
	RecurWeekly   = "weekly"
	RecurWeekdays = "weekdays"
)

// Trip is one row of `trips`.  AvailableSeats is the live seat counter:
// booking decrements it, cancelling increments it.  Occurrences generated
// from a recurring trip point at it through ParentTripID.
type Trip struct {
	ID                uint64     `json:"id"`
	DriverID          uint64     `json:"driver_id"`
	DepartureCity     string     `json:"departure_city"`
	DestinationCity   string     `json:"destination_city"`
	DepartureDate     time.Time  `json:"departure_date"`
	Price             float64    `json:"price"`
	AvailableSeats    int        `json:"available_seats"`
	Status            string     `json:"status"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrencePattern string     `json:"recurrence_pattern"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	ParentTripID      *uint64    `json:"parent_trip_id,omitempty"`
	Description       string     `json:"description"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TripDetail is a trip joined with its driver's public summary.
type TripDetail struct {
	Trip
	DriverName    string  `json:"driver_name"`
	DriverPhoto   string  `json:"driver_photo"`
	DriverRating  float64 `json:"driver_rating"`
	DriverRatings int64   `json:"driver_ratings_count"`
}
