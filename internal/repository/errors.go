package repository

import (
	"errors"
	"fmt"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translate maps driver errors onto the domain error kinds.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateBooking)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateBooking)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}

func checkEditable(id int64, expected domain.FlightStatus) error {
	if expected != domain.FlightStatusPending && expected != domain.FlightStatusRejected {
		return fmt.Errorf("update flight %d: %w: %s flights cannot be edited", id, domain.ErrBusinessRule, expected)
	}
	return nil
}

func errFlightClosed(flightID int64) error {
	return fmt.Errorf("create booking: %w: flight %d is not open for booking", domain.ErrBusinessRule, flightID)
}
