package domain

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FlightID  int64     `json:"flight_id"`
	CreatedAt time.Time `json:"purchased_at"`
}

// BookingResult is the payload stored on a completed booking task.
type BookingResult struct {
	BookingID int64 `json:"booking_id"`
	FlightID  int64 `json:"flight_id"`
	UserID    int64 `json:"user_id"`
}
