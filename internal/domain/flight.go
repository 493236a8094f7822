package domain

import "time"

type Flight struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"flight_name"`
	AirlineID          int64         `json:"airline_id"`
	DepartureAirportID int64         `json:"departure_airport_id"`
	ArrivalAirportID   int64         `json:"arrival_airport_id"`
	DepartureTime      time.Time     `json:"departure_time"`
	ArrivalTime        time.Time     `json:"arrival_time"`
	DistanceKm         int           `json:"flight_distance_km"`
	Duration           time.Duration `json:"-"`
	PriceCents         int64         `json:"price_cents"`
	TotalSeats         int           `json:"total_seats"`
	CreatedBy          int64         `json:"created_by"`
	ApprovedBy         *int64        `json:"approved_by,omitempty"`
	Status             FlightStatus  `json:"status"`
	RejectionReason    *string       `json:"rejection_reason,omitempty"`
	ActualStartTime    *time.Time    `json:"actual_start_time,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ScheduleArrival derives the arrival time from departure and duration.
func (f *Flight) ScheduleArrival() {
	f.ArrivalTime = f.DepartureTime.Add(f.Duration)
}

// Started reports whether the scheduler has already moved the flight into the air.
func (f *Flight) Started() bool {
	return f.ActualStartTime != nil
}

// Editable reports whether the flight details may still be changed by its manager.
func (f *Flight) Editable() bool {
	return f.Status == FlightStatusPending || f.Status == FlightStatusRejected
}

// Deletable reports whether the flight may be hard-deleted.
func (f *Flight) Deletable() bool {
	return f.Editable()
}

// StatusPatch carries the side fields written together with a status change.
type StatusPatch struct {
	RejectionReason *string
	ApprovedBy      *int64
	ActualStartTime *time.Time
}
