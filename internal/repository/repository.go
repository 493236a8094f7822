package repository

import (
	"context"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
)

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// Update rewrites the editable fields of a flight that is still in the
	// status the caller read (PENDING or REJECTED). A concurrent status
	// change makes it fail with ErrInvalidTransition.
	Update(ctx context.Context, flight *domain.Flight, expected domain.FlightStatus) error
	// UpdateStatus moves a flight from one status to another only if it is
	// still in the expected source status.
	UpdateStatus(ctx context.Context, id int64, from, to domain.FlightStatus, patch domain.StatusPatch) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status domain.FlightStatus, due DueFilter) ([]domain.Flight, error)
	List(ctx context.Context, filter FlightFilter, page pagination.Request) ([]domain.Flight, int, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	CountActive(ctx context.Context, flightID int64) (int, error)
	ListActiveUserIDs(ctx context.Context, flightID int64) ([]int64, error)
	Exists(ctx context.Context, userID, flightID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, page pagination.Request) ([]domain.Booking, int, error)
}

// DirectoryRepository answers existence checks against the airport and
// airline reference data owned by other services.
type DirectoryRepository interface {
	AirportExists(ctx context.Context, id int64) (bool, error)
	AirlineExists(ctx context.Context, id int64) (bool, error)
}

// Stores bundles one backend's repositories.
type Stores struct {
	Flights   FlightRepository
	Bookings  BookingRepository
	Directory DirectoryRepository

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}
