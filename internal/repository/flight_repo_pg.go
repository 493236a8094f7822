package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `id, name, airline_id, departure_airport_id, arrival_airport_id, departure_time, arrival_time,
	distance_km, duration_seconds, price_cents, total_seats, created_by, approved_by, status,
	rejection_reason, actual_start_time, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var (
		f        domain.Flight
		seconds  int64
		status   string
		approved *int64
	)
	if err := row.Scan(&f.ID, &f.Name, &f.AirlineID, &f.DepartureAirportID, &f.ArrivalAirportID,
		&f.DepartureTime, &f.ArrivalTime, &f.DistanceKm, &seconds, &f.PriceCents, &f.TotalSeats,
		&f.CreatedBy, &approved, &status, &f.RejectionReason, &f.ActualStartTime, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Duration = time.Duration(seconds) * time.Second
	f.Status = domain.FlightStatus(status)
	f.ApprovedBy = approved
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()
	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	row := r.db.QueryRow(ctx, `INSERT INTO flights (name, airline_id, departure_airport_id, arrival_airport_id,
		departure_time, arrival_time, distance_km, duration_seconds, price_cents, total_seats, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		f.Name, f.AirlineID, f.DepartureAirportID, f.ArrivalAirportID, f.DepartureTime, f.ArrivalTime,
		f.DistanceKm, int64(f.Duration/time.Second), f.PriceCents, f.TotalSeats, f.CreatedBy, string(f.Status))
	if err := row.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return translate("create flight", err)
	}
	return nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		return nil, translate("get flight", err)
	}
	return f, nil
}

func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight, expected domain.FlightStatus) error {
	if err := checkEditable(f.ID, expected); err != nil {
		return err
	}
	row := r.db.QueryRow(ctx, `UPDATE flights SET name=$2, airline_id=$3, departure_airport_id=$4, arrival_airport_id=$5,
		departure_time=$6, arrival_time=$7, distance_km=$8, duration_seconds=$9, price_cents=$10, total_seats=$11,
		status=$12, rejection_reason=$13, updated_at=now()
		WHERE id=$1 AND status=$14
		RETURNING updated_at`,
		f.ID, f.Name, f.AirlineID, f.DepartureAirportID, f.ArrivalAirportID, f.DepartureTime, f.ArrivalTime,
		f.DistanceKm, int64(f.Duration/time.Second), f.PriceCents, f.TotalSeats, string(f.Status), f.RejectionReason,
		string(expected))
	if err := row.Scan(&f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainMiss(ctx, f.ID, fmt.Errorf("update flight %d: %w: status is no longer %s", f.ID, domain.ErrInvalidTransition, expected))
		}
		return translate("update flight", err)
	}
	return nil
}

func (r *PGFlightRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.FlightStatus, patch domain.StatusPatch) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `UPDATE flights SET status=$3,
		rejection_reason=COALESCE($4, rejection_reason),
		approved_by=COALESCE($5, approved_by),
		actual_start_time=COALESCE($6, actual_start_time),
		updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+flightColumns,
		id, string(from), string(to), patch.RejectionReason, patch.ApprovedBy, patch.ActualStartTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainMiss(ctx, id, fmt.Errorf("flight %d: %w: status is no longer %s", id, domain.ErrInvalidTransition, from))
		}
		return nil, translate("update flight status", err)
	}
	return f, nil
}

// explainMiss tells a missing row apart from a guarded update that matched nothing.
func (r *PGFlightRepository) explainMiss(ctx context.Context, id int64, guarded error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM flights WHERE id=$1)`, id).Scan(&exists); err != nil {
		return translate("check flight", err)
	}
	if !exists {
		return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return guarded
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return translate("delete flight", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGFlightRepository) ListByStatus(ctx context.Context, status domain.FlightStatus, due DueFilter) ([]domain.Flight, error) {
	q := newWhere()
	q.add("status = ?", string(status))
	if !due.DepartureAtOrBefore.IsZero() {
		q.add("departure_time <= ?", due.DepartureAtOrBefore)
	}
	if !due.DepartureAfter.IsZero() {
		q.add("departure_time > ?", due.DepartureAfter)
	}
	if !due.ArrivalAtOrBefore.IsZero() {
		q.add("arrival_time <= ?", due.ArrivalAtOrBefore)
	}
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights`+q.sql()+` ORDER BY departure_time, id`, q.args...)
	if err != nil {
		return nil, translate("list flights by status", err)
	}
	flights, err := collectFlights(rows)
	if err != nil {
		return nil, translate("list flights by status", err)
	}
	return flights, nil
}

func (r *PGFlightRepository) List(ctx context.Context, filter FlightFilter, page pagination.Request) ([]domain.Flight, int, error) {
	q := flightFilterWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM flights`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, translate("count flights", err)
	}

	args := append(q.args, page.Limit(), page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM flights%s ORDER BY departure_time, id LIMIT $%d OFFSET $%d`,
		flightColumns, q.sql(), len(q.args)+1, len(q.args)+2), args...)
	if err != nil {
		return nil, 0, translate("list flights", err)
	}
	flights, err := collectFlights(rows)
	if err != nil {
		return nil, 0, translate("list flights", err)
	}
	return flights, total, nil
}

func flightFilterWhere(filter FlightFilter) *where {
	q := newWhere()
	if filter.Name != "" {
		q.add("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.AirlineID > 0 {
		q.add("airline_id = ?", filter.AirlineID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q.add("status = ANY(?)", statuses)
	}
	if filter.DepartureAirportID > 0 {
		q.add("departure_airport_id = ?", filter.DepartureAirportID)
	}
	if filter.ArrivalAirportID > 0 {
		q.add("arrival_airport_id = ?", filter.ArrivalAirportID)
	}
	if filter.MinPriceCents > 0 {
		q.add("price_cents >= ?", filter.MinPriceCents)
	}
	if filter.MaxPriceCents > 0 {
		q.add("price_cents <= ?", filter.MaxPriceCents)
	}
	if filter.DepartureDate != nil {
		start, end := dayBounds(*filter.DepartureDate)
		q.add("departure_time >= ?", start)
		q.add("departure_time < ?", end)
	}
	if !filter.DepartureAfter.IsZero() {
		q.add("departure_time > ?", filter.DepartureAfter)
	}
	if filter.CreatedBy > 0 {
		q.add("created_by = ?", filter.CreatedBy)
	}
	return q
}

// where accumulates AND-ed conditions, numbering "?" placeholders as $n.
type where struct {
	conds []string
	args  []any
}

func newWhere() *where { return &where{} }

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var _ FlightRepository = (*PGFlightRepository)(nil)
