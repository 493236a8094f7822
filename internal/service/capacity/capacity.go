package capacity

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/repository"
)

type Calculator interface {
	// Available returns total seats minus active bookings, never below zero.
	Available(ctx context.Context, flight *domain.Flight) (int, error)
	AvailableByID(ctx context.Context, flightID int64) (int, error)
}

type Service struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
}

func NewService(flights repository.FlightRepository, bookings repository.BookingRepository) *Service {
	return &Service{flights: flights, bookings: bookings}
}

func (s *Service) Available(ctx context.Context, flight *domain.Flight) (int, error) {
	booked, err := s.bookings.CountActive(ctx, flight.ID)
	if err != nil {
		return 0, fmt.Errorf("count bookings for flight %d: %w", flight.ID, err)
	}
	return max(flight.TotalSeats-booked, 0), nil
}

func (s *Service) AvailableByID(ctx context.Context, flightID int64) (int, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return 0, err
	}
	return s.Available(ctx, flight)
}

var _ Calculator = (*Service)(nil)
