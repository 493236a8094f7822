package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGDirectoryRepository struct {
	db *pgxpool.Pool
}

func NewDirectoryRepository(db *pgxpool.Pool) DirectoryRepository {
	return &PGDirectoryRepository{db: db}
}

func (r *PGDirectoryRepository) AirportExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM airports WHERE id=$1)`, id)
}

func (r *PGDirectoryRepository) AirlineExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM airlines WHERE id=$1)`, id)
}

func (r *PGDirectoryRepository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, translate("directory lookup", err)
	}
	return ok, nil
}

// NewPGStores wires the Postgres repositories around one pool.
func NewPGStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Flights:   NewFlightRepository(pool),
		Bookings:  NewBookingRepository(pool),
		Directory: NewDirectoryRepository(pool),
		ping:      pool.Ping,
		close:     pool.Close,
	}
}

var _ DirectoryRepository = (*PGDirectoryRepository)(nil)
