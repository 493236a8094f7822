package repository

import (
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
)

type airportRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Code      string `gorm:"size:10;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (airportRow) TableName() string { return "airports" }

type airlineRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (airlineRow) TableName() string { return "airlines" }

type flightRow struct {
	ID                 int64     `gorm:"primaryKey"`
	Name               string    `gorm:"not null"`
	AirlineID          int64     `gorm:"not null"`
	DepartureAirportID int64     `gorm:"not null"`
	ArrivalAirportID   int64     `gorm:"not null"`
	DepartureTime      time.Time `gorm:"not null;index:idx_flights_status_departure,priority:2"`
	ArrivalTime        time.Time `gorm:"not null;index:idx_flights_status_arrival,priority:2"`
	DistanceKm         int       `gorm:"not null"`
	DurationSeconds    int64     `gorm:"not null"`
	PriceCents         int64     `gorm:"not null"`
	TotalSeats         int       `gorm:"not null"`
	CreatedBy          int64     `gorm:"not null"`
	ApprovedBy         *int64
	Status             string `gorm:"size:32;not null;index:idx_flights_status_departure,priority:1;index:idx_flights_status_arrival,priority:1"`
	RejectionReason    *string
	ActualStartTime    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (flightRow) TableName() string { return "flights" }

type bookingRow struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_bookings_user_flight,priority:1"`
	FlightID  int64 `gorm:"not null;index;uniqueIndex:idx_bookings_user_flight,priority:2"`
	CreatedAt time.Time
}

func (bookingRow) TableName() string { return "bookings" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toFlightRow(f *domain.Flight) flightRow {
	return flightRow{
		ID:                 f.ID,
		Name:               f.Name,
		AirlineID:          f.AirlineID,
		DepartureAirportID: f.DepartureAirportID,
		ArrivalAirportID:   f.ArrivalAirportID,
		DepartureTime:      f.DepartureTime.UTC(),
		ArrivalTime:        f.ArrivalTime.UTC(),
		DistanceKm:         f.DistanceKm,
		DurationSeconds:    int64(f.Duration / time.Second),
		PriceCents:         f.PriceCents,
		TotalSeats:         f.TotalSeats,
		CreatedBy:          f.CreatedBy,
		ApprovedBy:         f.ApprovedBy,
		Status:             string(f.Status),
		RejectionReason:    f.RejectionReason,
		ActualStartTime:    utcPtr(f.ActualStartTime),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

func (r flightRow) toDomain() domain.Flight {
	return domain.Flight{
		ID:                 r.ID,
		Name:               r.Name,
		AirlineID:          r.AirlineID,
		DepartureAirportID: r.DepartureAirportID,
		ArrivalAirportID:   r.ArrivalAirportID,
		DepartureTime:      r.DepartureTime.UTC(),
		ArrivalTime:        r.ArrivalTime.UTC(),
		DistanceKm:         r.DistanceKm,
		Duration:           time.Duration(r.DurationSeconds) * time.Second,
		PriceCents:         r.PriceCents,
		TotalSeats:         r.TotalSeats,
		CreatedBy:          r.CreatedBy,
		ApprovedBy:         r.ApprovedBy,
		Status:             domain.FlightStatus(r.Status),
		RejectionReason:    r.RejectionReason,
		ActualStartTime:    utcPtr(r.ActualStartTime),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (r bookingRow) toDomain() domain.Booking {
	return domain.Booking{ID: r.ID, UserID: r.UserID, FlightID: r.FlightID, CreatedAt: r.CreatedAt}
}
