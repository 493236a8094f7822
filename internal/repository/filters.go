package repository

import (
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
)

// DueFilter restricts ListByStatus to flights whose schedule has passed a
// point in time. A zero field is ignored.
type DueFilter struct {
	DepartureAtOrBefore time.Time
	DepartureAfter      time.Time
	ArrivalAtOrBefore   time.Time
}

// FlightFilter is the search filter for paged flight listings.
type FlightFilter struct {
	Name               string
	AirlineID          int64
	Statuses           []domain.FlightStatus
	DepartureAirportID int64
	ArrivalAirportID   int64
	MinPriceCents      int64
	MaxPriceCents      int64
	// DepartureDate matches the calendar day (UTC) of the departure.
	DepartureDate  *time.Time
	DepartureAfter time.Time
	CreatedBy      int64
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
