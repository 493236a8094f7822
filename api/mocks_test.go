package api

import (
	"context"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/service/flights"
	"github.com/Domenick1991/skyreserve/internal/tasks"
	"github.com/stretchr/testify/mock"
)

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) flight(args mock.Arguments) (*domain.Flight, error) {
	if f, ok := args.Get(0).(*domain.Flight); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFlightUseCase) CreateFlight(ctx context.Context, in flights.FlightInput, createdBy int64) (*domain.Flight, error) {
	return m.flight(m.Called(ctx, in, createdBy))
}

func (m *MockFlightUseCase) UpdateFlight(ctx context.Context, id int64, patch flights.FlightPatch) (*domain.Flight, error) {
	return m.flight(m.Called(ctx, id, patch))
}

func (m *MockFlightUseCase) UpdateFlightStatus(ctx context.Context, id int64, change flights.StatusChange, adminID int64) (*domain.Flight, error) {
	return m.flight(m.Called(ctx, id, change, adminID))
}

func (m *MockFlightUseCase) CancelFlight(ctx context.Context, id, adminID int64) (*flights.CancelResult, error) {
	args := m.Called(ctx, id, adminID)
	if res, ok := args.Get(0).(*flights.CancelResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFlightUseCase) DeleteFlight(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return m.flight(m.Called(ctx, id))
}

func (m *MockFlightUseCase) List(ctx context.Context, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[domain.Flight]), args.Error(1)
}

func (m *MockFlightUseCase) ListByTab(ctx context.Context, tab flights.Tab, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error) {
	args := m.Called(ctx, tab, filter, page)
	return args.Get(0).(pagination.Page[domain.Flight]), args.Error(1)
}

func (m *MockFlightUseCase) AvailableSeats(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightUseCase) RemainingTime(ctx context.Context, id int64) (*flights.RemainingTime, error) {
	args := m.Called(ctx, id)
	if rt, ok := args.Get(0).(*flights.RemainingTime); ok {
		return rt, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) SubmitBooking(ctx context.Context, userID, flightID int64) (string, error) {
	args := m.Called(ctx, userID, flightID)
	return args.String(0), args.Error(1)
}

func (m *MockBookingUseCase) TaskStatus(token string) tasks.Record {
	return m.Called(token).Get(0).(tasks.Record)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if b, ok := args.Get(0).(*domain.Booking); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingUseCase) ListUserBookings(ctx context.Context, userID int64, page pagination.Request) (pagination.Page[domain.Booking], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(pagination.Page[domain.Booking]), args.Error(1)
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, bookingID, userID int64) error {
	return m.Called(ctx, bookingID, userID).Error(0)
}
