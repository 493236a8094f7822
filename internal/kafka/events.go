package kafka

import "time"

const (
	EventBookingConfirmed = "booking-confirmed"
)

// LifecycleEvent is the wire form of a flight notification on the
// notifications topic. Room is empty for broadcasts.
type LifecycleEvent struct {
	Type            string    `json:"type"`
	Room            string    `json:"room,omitempty"`
	FlightID        int64     `json:"flight_id"`
	FlightName      string    `json:"flight_name"`
	Status          string    `json:"status"`
	DepartureTime   time.Time `json:"departure_time"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	AffectedUserIDs []int64   `json:"affected_user_ids,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// BookingEvent is published on the bookings topic once a booking is persisted.
type BookingEvent struct {
	Type       string    `json:"type"`
	Token      string    `json:"token"`
	BookingID  int64     `json:"booking_id"`
	FlightID   int64     `json:"flight_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
