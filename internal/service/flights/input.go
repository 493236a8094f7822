package flights

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
)

// FlightInput is the manager-supplied part of a flight.
type FlightInput struct {
	Name               string
	AirlineID          int64
	DepartureAirportID int64
	ArrivalAirportID   int64
	DepartureTime      time.Time
	DistanceKm         int
	Duration           time.Duration
	PriceCents         int64
	TotalSeats         int
}

// FlightPatch updates only the non-nil fields.
type FlightPatch struct {
	Name               *string
	AirlineID          *int64
	DepartureAirportID *int64
	ArrivalAirportID   *int64
	DepartureTime      *time.Time
	DistanceKm         *int
	Duration           *time.Duration
	PriceCents         *int64
	TotalSeats         *int
}

func (in FlightInput) toFlight() *domain.Flight {
	return &domain.Flight{
		Name:               strings.TrimSpace(in.Name),
		AirlineID:          in.AirlineID,
		DepartureAirportID: in.DepartureAirportID,
		ArrivalAirportID:   in.ArrivalAirportID,
		DepartureTime:      in.DepartureTime.UTC(),
		DistanceKm:         in.DistanceKm,
		Duration:           in.Duration,
		PriceCents:         in.PriceCents,
		TotalSeats:         in.TotalSeats,
	}
}

func (p FlightPatch) apply(f *domain.Flight) {
	if p.Name != nil {
		f.Name = strings.TrimSpace(*p.Name)
	}
	if p.AirlineID != nil {
		f.AirlineID = *p.AirlineID
	}
	if p.DepartureAirportID != nil {
		f.DepartureAirportID = *p.DepartureAirportID
	}
	if p.ArrivalAirportID != nil {
		f.ArrivalAirportID = *p.ArrivalAirportID
	}
	if p.DepartureTime != nil {
		f.DepartureTime = p.DepartureTime.UTC()
	}
	if p.DistanceKm != nil {
		f.DistanceKm = *p.DistanceKm
	}
	if p.Duration != nil {
		f.Duration = *p.Duration
	}
	if p.PriceCents != nil {
		f.PriceCents = *p.PriceCents
	}
	if p.TotalSeats != nil {
		f.TotalSeats = *p.TotalSeats
	}
}

func validateFields(f *domain.Flight) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: flight name is required", domain.ErrInvalidInput)
	case f.AirlineID <= 0 || f.DepartureAirportID <= 0 || f.ArrivalAirportID <= 0:
		return fmt.Errorf("%w: airline and airport ids must be positive", domain.ErrInvalidInput)
	case f.DepartureAirportID == f.ArrivalAirportID:
		return fmt.Errorf("%w: departure and arrival airports must differ", domain.ErrInvalidInput)
	case f.TotalSeats < 1:
		return fmt.Errorf("%w: a flight needs at least one seat", domain.ErrInvalidInput)
	case f.PriceCents <= 0:
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	case f.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	case f.DistanceKm < 0:
		return fmt.Errorf("%w: distance cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

// StatusChange is an administrator's status request.
type StatusChange struct {
	Status          domain.FlightStatus
	RejectionReason string
}

type CancelResult struct {
	Flight          *domain.Flight `json:"flight"`
	AffectedUserIDs []int64        `json:"affected_user_ids"`
}

type RemainingTime struct {
	FlightID         int64               `json:"flight_id"`
	Status           domain.FlightStatus `json:"status"`
	ArrivalTime      time.Time           `json:"arrival_time"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	RemainingMinutes int64               `json:"remaining_minutes"`
}

// Tab selects one of the passenger-facing flight listings.
type Tab string

const (
	TabUpcoming   Tab = "upcoming"
	TabInProgress Tab = "in-progress"
	TabCompleted  Tab = "completed"
)

func ParseTab(s string) (Tab, error) {
	switch tab := Tab(strings.ToLower(strings.TrimSpace(s))); tab {
	case TabUpcoming, TabInProgress, TabCompleted:
		return tab, nil
	case "in_progress":
		return TabInProgress, nil
	default:
		return "", fmt.Errorf("%w: unknown tab %q", domain.ErrInvalidInput, s)
	}
}
