package model

import "time"

// Rating is a passenger's 1..5 score for a completed reservation.
type Rating struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	TripID        uint64    `json:"trip_id"`
	PassengerID   uint64    `json:"passenger_id"`
	PassengerName string    `json:"passenger_name,omitempty"`
	DriverID      uint64    `json:"driver_id"`
	Score         int       `json:"score"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}
