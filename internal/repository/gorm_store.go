package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens the embedded SQLite backend, creates the schema and seeds
// the airport/airline directory. Use ":memory:" for a throwaway database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&airportRow{}, &airlineRow{}, &flightRow{}, &bookingRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	seed, err := migrationFiles.ReadFile("migrations/002_seed_directory.sql")
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if err := db.Exec(string(seed)).Error; err != nil {
		return nil, fmt.Errorf("seed directory: %w", err)
	}
	return db, nil
}

// NewGormStores wires the gorm repositories around one handle.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Flights:   NewGormFlightRepository(db),
		Bookings:  NewGormBookingRepository(db),
		Directory: NewGormDirectoryRepository(db),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

type GormFlightRepository struct {
	db *gorm.DB
}

func NewGormFlightRepository(db *gorm.DB) *GormFlightRepository {
	return &GormFlightRepository{db: db}
}

func (r *GormFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	row := toFlightRow(f)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create flight", err)
	}
	f.ID, f.CreatedAt, f.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *GormFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var row flightRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get flight", err)
	}
	f := row.toDomain()
	return &f, nil
}

func (r *GormFlightRepository) Update(ctx context.Context, f *domain.Flight, expected domain.FlightStatus) error {
	if err := checkEditable(f.ID, expected); err != nil {
		return err
	}
	row := toFlightRow(f)
	res := r.db.WithContext(ctx).Model(&flightRow{}).
		Where("id = ? AND status = ?", f.ID, string(expected)).
		Updates(map[string]any{
			"name":                 row.Name,
			"airline_id":           row.AirlineID,
			"departure_airport_id": row.DepartureAirportID,
			"arrival_airport_id":   row.ArrivalAirportID,
			"departure_time":       row.DepartureTime,
			"arrival_time":         row.ArrivalTime,
			"distance_km":          row.DistanceKm,
			"duration_seconds":     row.DurationSeconds,
			"price_cents":          row.PriceCents,
			"total_seats":          row.TotalSeats,
			"status":               row.Status,
			"rejection_reason":     row.RejectionReason,
		})
	if res.Error != nil {
		return translate("update flight", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, f.ID, fmt.Errorf("update flight %d: %w: status is no longer %s", f.ID, domain.ErrInvalidTransition, expected))
	}
	updated, err := r.GetByID(ctx, f.ID)
	if err != nil {
		return err
	}
	f.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *GormFlightRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.FlightStatus, patch domain.StatusPatch) (*domain.Flight, error) {
	changes := map[string]any{"status": string(to)}
	if patch.RejectionReason != nil {
		changes["rejection_reason"] = *patch.RejectionReason
	}
	if patch.ApprovedBy != nil {
		changes["approved_by"] = *patch.ApprovedBy
	}
	if patch.ActualStartTime != nil {
		changes["actual_start_time"] = patch.ActualStartTime.UTC()
	}

	res := r.db.WithContext(ctx).Model(&flightRow{}).Where("id = ? AND status = ?", id, string(from)).Updates(changes)
	if res.Error != nil {
		return nil, translate("update flight status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.explainMiss(ctx, id, fmt.Errorf("flight %d: %w: status is no longer %s", id, domain.ErrInvalidTransition, from))
	}
	return r.GetByID(ctx, id)
}

func (r *GormFlightRepository) explainMiss(ctx context.Context, id int64, guarded error) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&flightRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate("check flight", err)
	}
	if n == 0 {
		return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return guarded
}

// Delete removes the flight together with its bookings.
func (r *GormFlightRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("flight_id = ?", id).Delete(&bookingRow{}).Error; err != nil {
			return translate("delete flight bookings", err)
		}
		res := tx.Delete(&flightRow{}, id)
		if res.Error != nil {
			return translate("delete flight", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *GormFlightRepository) ListByStatus(ctx context.Context, status domain.FlightStatus, due DueFilter) ([]domain.Flight, error) {
	q := r.db.WithContext(ctx).Model(&flightRow{}).Where("status = ?", string(status))
	if !due.DepartureAtOrBefore.IsZero() {
		q = q.Where("departure_time <= ?", due.DepartureAtOrBefore.UTC())
	}
	if !due.DepartureAfter.IsZero() {
		q = q.Where("departure_time > ?", due.DepartureAfter.UTC())
	}
	if !due.ArrivalAtOrBefore.IsZero() {
		q = q.Where("arrival_time <= ?", due.ArrivalAtOrBefore.UTC())
	}
	var rows []flightRow
	if err := q.Order("departure_time, id").Find(&rows).Error; err != nil {
		return nil, translate("list flights by status", err)
	}
	return flightsFromRows(rows), nil
}

func (r *GormFlightRepository) List(ctx context.Context, filter FlightFilter, page pagination.Request) ([]domain.Flight, int, error) {
	q := applyGormFlightFilter(r.db.WithContext(ctx).Model(&flightRow{}), filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count flights", err)
	}
	var rows []flightRow
	if err := q.Order("departure_time, id").Limit(page.Limit()).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, translate("list flights", err)
	}
	return flightsFromRows(rows), int(total), nil
}

func applyGormFlightFilter(q *gorm.DB, filter FlightFilter) *gorm.DB {
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.AirlineID > 0 {
		q = q.Where("airline_id = ?", filter.AirlineID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.DepartureAirportID > 0 {
		q = q.Where("departure_airport_id = ?", filter.DepartureAirportID)
	}
	if filter.ArrivalAirportID > 0 {
		q = q.Where("arrival_airport_id = ?", filter.ArrivalAirportID)
	}
	if filter.MinPriceCents > 0 {
		q = q.Where("price_cents >= ?", filter.MinPriceCents)
	}
	if filter.MaxPriceCents > 0 {
		q = q.Where("price_cents <= ?", filter.MaxPriceCents)
	}
	if filter.DepartureDate != nil {
		start, end := dayBounds(*filter.DepartureDate)
		q = q.Where("departure_time >= ? AND departure_time < ?", start, end)
	}
	if !filter.DepartureAfter.IsZero() {
		q = q.Where("departure_time > ?", filter.DepartureAfter.UTC())
	}
	if filter.CreatedBy > 0 {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	return q
}

func flightsFromRows(rows []flightRow) []domain.Flight {
	flights := make([]domain.Flight, 0, len(rows))
	for _, row := range rows {
		flights = append(flights, row.toDomain())
	}
	return flights
}

type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Create inserts the booking only while its flight is APPROVED. The check
// and the insert share one transaction on the single SQLite connection.
func (r *GormBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	row := bookingRow{UserID: b.UserID, FlightID: b.FlightID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&flightRow{}).
			Where("id = ? AND status = ?", b.FlightID, string(domain.FlightStatusApproved)).
			Count(&open).Error; err != nil {
			return translate("check flight", err)
		}
		if open == 0 {
			return errFlightClosed(b.FlightID)
		}
		if err := tx.Create(&row).Error; err != nil {
			return translate("create booking", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.ID, b.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var row bookingRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get booking", err)
	}
	b := row.toDomain()
	return &b, nil
}

func (r *GormBookingRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&bookingRow{}, id)
	if res.Error != nil {
		return translate("delete booking", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *GormBookingRepository) CountActive(ctx context.Context, flightID int64) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&bookingRow{}).Where("flight_id = ?", flightID).Count(&n).Error; err != nil {
		return 0, translate("count bookings", err)
	}
	return int(n), nil
}

func (r *GormBookingRepository) ListActiveUserIDs(ctx context.Context, flightID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("flight_id = ?", flightID).
		Distinct().Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, translate("list booking users", err)
	}
	return ids, nil
}

func (r *GormBookingRepository) Exists(ctx context.Context, userID, flightID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("user_id = ? AND flight_id = ?", userID, flightID).
		Count(&n).Error
	if err != nil {
		return false, translate("check booking", err)
	}
	return n > 0, nil
}

func (r *GormBookingRepository) ListByUser(ctx context.Context, userID int64, page pagination.Request) ([]domain.Booking, int, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count user bookings", err)
	}
	var rows []bookingRow
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit()).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, translate("list user bookings", err)
	}
	bookings := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toDomain())
	}
	return bookings, int(total), nil
}

type GormDirectoryRepository struct {
	db *gorm.DB
}

func NewGormDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

func (r *GormDirectoryRepository) AirportExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &airportRow{}, id)
}

func (r *GormDirectoryRepository) AirlineExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &airlineRow{}, id)
}

func (r *GormDirectoryRepository) exists(ctx context.Context, model any, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, translate("directory lookup", err)
	}
	return n > 0, nil
}

var (
	_ FlightRepository    = (*GormFlightRepository)(nil)
	_ BookingRepository   = (*GormBookingRepository)(nil)
	_ DirectoryRepository = (*GormDirectoryRepository)(nil)
)
