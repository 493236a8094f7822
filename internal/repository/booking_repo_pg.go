package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// Create inserts the booking only while its flight is APPROVED. The flight
// row is share-locked, so a concurrent cancellation either waits for the
// insert or makes it match nothing.
func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (user_id, flight_id)
		SELECT $1::bigint, $2::bigint WHERE EXISTS (
			SELECT 1 FROM flights WHERE id=$2 AND status=$3 FOR SHARE)
		RETURNING id, created_at`,
		b.UserID, b.FlightID, string(domain.FlightStatusApproved)).Scan(&b.ID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errFlightClosed(b.FlightID)
	}
	return translate("create booking", err)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.QueryRow(ctx, `SELECT id, user_id, flight_id, created_at FROM bookings WHERE id=$1`, id).
		Scan(&b.ID, &b.UserID, &b.FlightID, &b.CreatedAt)
	if err != nil {
		return nil, translate("get booking", err)
	}
	return &b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return translate("delete booking", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGBookingRepository) CountActive(ctx context.Context, flightID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE flight_id=$1`, flightID).Scan(&n); err != nil {
		return 0, translate("count bookings", err)
	}
	return n, nil
}

func (r *PGBookingRepository) ListActiveUserIDs(ctx context.Context, flightID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM bookings WHERE flight_id=$1 ORDER BY user_id`, flightID)
	if err != nil {
		return nil, translate("list booking users", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, translate("list booking users", err)
		}
		ids = append(ids, id)
	}
	return ids, translate("list booking users", rows.Err())
}

func (r *PGBookingRepository) Exists(ctx context.Context, userID, flightID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id=$1 AND flight_id=$2)`, userID, flightID).Scan(&exists)
	if err != nil {
		return false, translate("check booking", err)
	}
	return exists, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64, page pagination.Request) ([]domain.Booking, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, translate("count user bookings", err)
	}

	rows, err := r.db.Query(ctx, `SELECT id, user_id, flight_id, created_at FROM bookings WHERE user_id=$1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, translate("list user bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.FlightID, &b.CreatedAt); err != nil {
			return nil, 0, translate("list user bookings", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("list user bookings", err)
	}
	return bookings, total, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
