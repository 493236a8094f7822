package capacity

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	repository.BookingRepository
}

func (m *MockBookingRepo) CountActive(ctx context.Context, flightID int64) (int, error) {
	args := m.Called(ctx, flightID)
	return args.Int(0), args.Error(1)
}

type MockFlightRepo struct {
	mock.Mock
	repository.FlightRepository
}

func (m *MockFlightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if f, ok := args.Get(0).(*domain.Flight); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestService_Available(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepo)
	svc := NewService(new(MockFlightRepo), bookings)

	bookings.On("CountActive", ctx, int64(1)).Return(2, nil)
	seats, err := svc.Available(ctx, &domain.Flight{ID: 1, TotalSeats: 5})
	assert.NoError(t, err)
	assert.Equal(t, 3, seats)

	bookings.On("CountActive", ctx, int64(2)).Return(6, nil)
	seats, err = svc.Available(ctx, &domain.Flight{ID: 2, TotalSeats: 5})
	assert.NoError(t, err)
	assert.Zero(t, seats)

	bookings.AssertExpectations(t)
}

func TestService_AvailableByID(t *testing.T) {
	ctx := context.Background()
	flights := new(MockFlightRepo)
	bookings := new(MockBookingRepo)
	svc := NewService(flights, bookings)

	flights.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)
	_, err := svc.AvailableByID(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	boom := errors.New("db down")
	flights.On("GetByID", ctx, int64(3)).Return(&domain.Flight{ID: 3, TotalSeats: 1}, nil)
	bookings.On("CountActive", ctx, int64(3)).Return(0, boom)
	_, err = svc.AvailableByID(ctx, 3)
	assert.ErrorIs(t, err, boom)
}
