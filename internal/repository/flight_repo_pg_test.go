package repository

import (
	"testing"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewFlightRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewFlightRepository(pool)
	assert.NotNil(t, repo)
}

func TestFlightFilterWhere_NumbersPlaceholders(t *testing.T) {
	day := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	q := flightFilterWhere(FlightFilter{
		Name:          "BEG",
		Statuses:      []domain.FlightStatus{domain.FlightStatusCompleted, domain.FlightStatusCancelled},
		MinPriceCents: 1000,
		DepartureDate: &day,
	})

	assert.Equal(t,
		" WHERE name ILIKE $1 AND status = ANY($2) AND price_cents >= $3 AND departure_time >= $4 AND departure_time < $5",
		q.sql())
	assert.Equal(t, "%BEG%", q.args[0])
	assert.Equal(t, []string{"COMPLETED", "CANCELLED"}, q.args[1])
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), q.args[3])
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), q.args[4])
}

func TestFlightFilterWhere_Empty(t *testing.T) {
	assert.Empty(t, flightFilterWhere(FlightFilter{}).sql())
}
