package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStores(t *testing.T) *Stores {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	stores := NewGormStores(db)
	t.Cleanup(stores.Close)
	return stores
}

func sampleFlight(departure time.Time) *domain.Flight {
	f := &domain.Flight{
		Name:               "JU 330",
		AirlineID:          1,
		DepartureAirportID: 1,
		ArrivalAirportID:   2,
		DepartureTime:      departure,
		DistanceKm:         490,
		Duration:           75 * time.Minute,
		PriceCents:         12900,
		TotalSeats:         3,
		CreatedBy:          7,
		Status:             domain.FlightStatusPending,
	}
	f.ScheduleArrival()
	return f
}

func TestGormFlightRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	departure := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	f := sampleFlight(departure)
	require.NoError(t, stores.Flights.Create(ctx, f))
	require.NotZero(t, f.ID)

	got, err := stores.Flights.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "JU 330", got.Name)
	assert.Equal(t, 75*time.Minute, got.Duration)
	assert.True(t, got.DepartureTime.Equal(departure))
	assert.True(t, got.ArrivalTime.Equal(departure.Add(75*time.Minute)))
	assert.Equal(t, domain.FlightStatusPending, got.Status)

	got.Name = "JU 332"
	require.NoError(t, stores.Flights.Update(ctx, got, domain.FlightStatusPending))
	again, err := stores.Flights.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "JU 332", again.Name)

	require.NoError(t, stores.Flights.Delete(ctx, f.ID))
	_, err = stores.Flights.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, stores.Flights.Delete(ctx, f.ID), domain.ErrNotFound)
}

func TestGormFlightRepository_UpdateStatusIsGuarded(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	f := sampleFlight(time.Now().UTC().Add(time.Hour))
	require.NoError(t, stores.Flights.Create(ctx, f))

	admin := int64(1)
	updated, err := stores.Flights.UpdateStatus(ctx, f.ID, domain.FlightStatusPending, domain.FlightStatusApproved, domain.StatusPatch{ApprovedBy: &admin})
	require.NoError(t, err)
	assert.Equal(t, domain.FlightStatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, admin, *updated.ApprovedBy)

	_, err = stores.Flights.UpdateStatus(ctx, f.ID, domain.FlightStatusPending, domain.FlightStatusApproved, domain.StatusPatch{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = stores.Flights.UpdateStatus(ctx, 9999, domain.FlightStatusPending, domain.FlightStatusApproved, domain.StatusPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated.Name = "late edit"
	assert.ErrorIs(t, stores.Flights.Update(ctx, updated, domain.FlightStatusApproved), domain.ErrBusinessRule)
	// an edit based on the PENDING copy loses against the approval
	assert.ErrorIs(t, stores.Flights.Update(ctx, updated, domain.FlightStatusPending), domain.ErrInvalidTransition)
}

func TestGormFlightRepository_UpdateKeepsConcurrentRejection(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	f := sampleFlight(time.Now().UTC().Add(48 * time.Hour))
	require.NoError(t, stores.Flights.Create(ctx, f))

	reason := "wrong aircraft"
	_, err := stores.Flights.UpdateStatus(ctx, f.ID, domain.FlightStatusPending, domain.FlightStatusRejected, domain.StatusPatch{RejectionReason: &reason})
	require.NoError(t, err)

	f.Name = "JU 331"
	assert.ErrorIs(t, stores.Flights.Update(ctx, f, domain.FlightStatusPending), domain.ErrInvalidTransition)

	got, err := stores.Flights.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FlightStatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, reason, *got.RejectionReason)
	assert.Equal(t, "JU 330", got.Name)
}

func TestGormFlightRepository_ListByStatusDue(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	now := time.Now().UTC().Truncate(time.Second)

	past := sampleFlight(now.Add(-time.Minute))
	future := sampleFlight(now.Add(time.Hour))
	for _, f := range []*domain.Flight{past, future} {
		f.Status = domain.FlightStatusApproved
		require.NoError(t, stores.Flights.Create(ctx, f))
	}

	due, err := stores.Flights.ListByStatus(ctx, domain.FlightStatusApproved, DueFilter{DepartureAtOrBefore: now})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	upcoming, err := stores.Flights.ListByStatus(ctx, domain.FlightStatusApproved, DueFilter{DepartureAfter: now})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.ID, upcoming[0].ID)
}

func TestGormFlightRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	base := time.Date(2030, 1, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		f := sampleFlight(base.Add(time.Duration(i) * 24 * time.Hour))
		f.PriceCents = int64(10000 + i*1000)
		if i%2 == 0 {
			f.Name = "Morning shuttle"
		}
		require.NoError(t, stores.Flights.Create(ctx, f))
	}

	flights, total, err := stores.Flights.List(ctx, FlightFilter{Name: "SHUTTLE"}, pagination.Request{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, flights, 2)

	flights, total, err = stores.Flights.List(ctx, FlightFilter{MinPriceCents: 12000, MaxPriceCents: 13000}, pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, flights, 2)

	day := base.Add(24 * time.Hour)
	flights, total, err = stores.Flights.List(ctx, FlightFilter{DepartureDate: &day}, pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.True(t, flights[0].DepartureTime.Equal(day))
}

func TestGormBookingRepository(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	f := sampleFlight(time.Now().UTC().Add(48 * time.Hour))
	f.Status = domain.FlightStatusApproved
	require.NoError(t, stores.Flights.Create(ctx, f))

	first := &domain.Booking{UserID: 11, FlightID: f.ID}
	require.NoError(t, stores.Bookings.Create(ctx, first))
	require.NoError(t, stores.Bookings.Create(ctx, &domain.Booking{UserID: 12, FlightID: f.ID}))

	err := stores.Bookings.Create(ctx, &domain.Booking{UserID: 11, FlightID: f.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicateBooking)

	n, err := stores.Bookings.CountActive(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	users, err := stores.Bookings.ListActiveUserIDs(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, users)

	exists, err := stores.Bookings.Exists(ctx, 11, f.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	mine, total, err := stores.Bookings.ListByUser(ctx, 11, pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, first.ID, mine[0].ID)

	require.NoError(t, stores.Bookings.Delete(ctx, first.ID))
	_, err = stores.Bookings.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, stores.Flights.Delete(ctx, f.ID))
	n, err = stores.Bookings.CountActive(ctx, f.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormBookingRepository_OnlyApprovedFlightsTakeBookings(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)
	f := sampleFlight(time.Now().UTC().Add(48 * time.Hour))
	f.Status = domain.FlightStatusApproved
	require.NoError(t, stores.Flights.Create(ctx, f))

	admin := int64(1)
	_, err := stores.Flights.UpdateStatus(ctx, f.ID, domain.FlightStatusApproved, domain.FlightStatusCancelled, domain.StatusPatch{ApprovedBy: &admin})
	require.NoError(t, err)

	b := &domain.Booking{UserID: 11, FlightID: f.ID}
	assert.ErrorIs(t, stores.Bookings.Create(ctx, b), domain.ErrBusinessRule)
	assert.Zero(t, b.ID)

	users, err := stores.Bookings.ListActiveUserIDs(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, users)

	assert.ErrorIs(t, stores.Bookings.Create(ctx, &domain.Booking{UserID: 11, FlightID: 9999}), domain.ErrBusinessRule)
}

func TestGormDirectoryRepository_Seeded(t *testing.T) {
	ctx := context.Background()
	stores := newSQLiteStores(t)

	ok, err := stores.Directory.AirportExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = stores.Directory.AirlineExists(ctx, 404)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, stores.Ping(ctx))
}
