package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Domenick1991/skyreserve/internal/cache"
	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/kafka"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/service/capacity"
	"github.com/Domenick1991/skyreserve/internal/tasks"
	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/jonboulle/clockwork"
)

type BookingUseCase interface {
	SubmitBooking(ctx context.Context, userID, flightID int64) (string, error)
	TaskStatus(token string) tasks.Record
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID int64, page pagination.Request) (pagination.Page[domain.Booking], error)
	DeleteBooking(ctx context.Context, bookingID, userID int64) error
}

// TaskRunner is the async job facility bookings are persisted through.
type TaskRunner interface {
	Submit(job tasks.Job) (string, error)
	Status(token string) tasks.Record
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

const DefaultCancelWindow = 24 * time.Hour

type BookingService struct {
	bookings repository.BookingRepository
	flights  repository.FlightRepository
	capacity capacity.Calculator
	tasks    TaskRunner

	guard           cache.AdmissionGuard
	producer        Producer
	bookingTopic    string
	clock           clockwork.Clock
	logger          *slog.Logger
	processingDelay time.Duration
	cancelWindow    time.Duration
}

type BookingServiceOption func(*BookingService)

// WithAdmissionGuard stops the same user queueing two requests for one flight.
func WithAdmissionGuard(g cache.AdmissionGuard) BookingServiceOption {
	return func(s *BookingService) { s.guard = g }
}

// WithProducer publishes a booking-confirmed event to topic after each insert.
func WithProducer(p Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = topic
	}
}

func WithClock(c clockwork.Clock) BookingServiceOption {
	return func(s *BookingService) { s.clock = c }
}

func WithLogger(l *slog.Logger) BookingServiceOption {
	return func(s *BookingService) { s.logger = l }
}

// WithProcessingDelay makes every persistence job wait d before its insert.
func WithProcessingDelay(d time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.processingDelay = d }
}

func WithCancelWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.cancelWindow = d
		}
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	calc capacity.Calculator,
	runner TaskRunner,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		capacity:     calc,
		tasks:        runner,
		clock:        clockwork.NewRealClock(),
		logger:       slog.Default(),
		cancelWindow: DefaultCancelWindow,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SubmitBooking runs the admission checks and queues the insert. The
// returned token is polled through TaskStatus.
func (s *BookingService) SubmitBooking(ctx context.Context, userID, flightID int64) (string, error) {
	if userID <= 0 || flightID <= 0 {
		return "", s.reject("invalid_input", fmt.Errorf("%w: user id and flight id must be positive", domain.ErrInvalidInput))
	}

	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return "", s.reject("not_found", err)
	}
	if err := s.admit(ctx, flight, userID); err != nil {
		return "", err
	}

	locked := false
	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, flightID, userID)
		switch {
		case err != nil:
			// the job re-validates duplicates, so a Redis outage only loses the early rejection
			s.logger.Warn("admission guard unavailable", slog.Int64("flight_id", flightID), slog.Any("err", err))
		case !ok:
			return "", s.reject("duplicate", fmt.Errorf("%w: a booking for this flight is already being processed", domain.ErrDuplicateBooking))
		default:
			locked = true
		}
	}

	token, err := s.tasks.Submit(s.persistJob(flightID, userID, locked))
	if err != nil {
		if locked {
			s.releaseGuard(ctx, flightID, userID)
		}
		return "", fmt.Errorf("queue booking: %w: %w", domain.ErrInternal, err)
	}

	telemetry.BookingsAdmitted.Inc()
	s.logger.Info("booking queued", slog.String("task", token), slog.Int64("flight_id", flightID), slog.Int64("user_id", userID))
	return token, nil
}

// admit checks, in order: status, departure, seats, existing booking.
func (s *BookingService) admit(ctx context.Context, flight *domain.Flight, userID int64) error {
	if flight.Status != domain.FlightStatusApproved {
		return s.reject("status", fmt.Errorf("%w: flight %d is %s, not open for booking", domain.ErrBusinessRule, flight.ID, flight.Status))
	}
	if !flight.DepartureTime.After(s.clock.Now()) {
		return s.reject("departed", fmt.Errorf("%w: flight %d", domain.ErrPastDeparture, flight.ID))
	}

	available, err := s.capacity.Available(ctx, flight)
	if err != nil {
		return err
	}
	if available <= 0 {
		return s.reject("capacity", fmt.Errorf("%w: flight %d", domain.ErrCapacityExceeded, flight.ID))
	}

	exists, err := s.bookings.Exists(ctx, userID, flight.ID)
	if err != nil {
		return err
	}
	if exists {
		return s.reject("duplicate", fmt.Errorf("%w: user %d already holds a booking on flight %d", domain.ErrDuplicateBooking, userID, flight.ID))
	}
	return nil
}

func (s *BookingService) reject(reason string, err error) error {
	telemetry.BookingsRejected.WithLabelValues(reason).Inc()
	return err
}

// persistJob re-runs admission on the worker before inserting. Jobs run one
// at a time, so the re-check and the insert cannot interleave with another
// booking's.
func (s *BookingService) persistJob(flightID, userID int64, locked bool) tasks.Job {
	return func(ctx context.Context) (any, error) {
		if locked {
			defer s.releaseGuard(ctx, flightID, userID)
		}
		if s.processingDelay > 0 {
			select {
			case <-s.clock.After(s.processingDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		flight, err := s.flights.GetByID(ctx, flightID)
		if err != nil {
			return nil, err
		}
		if err := s.admit(ctx, flight, userID); err != nil {
			return nil, err
		}

		b := &domain.Booking{UserID: userID, FlightID: flightID}
		if err := s.bookings.Create(ctx, b); err != nil {
			return nil, err
		}

		token := tasks.TokenFromContext(ctx)
		s.publishConfirmed(ctx, token, b)
		s.logger.Info("booking created", slog.String("task", token), slog.Int64("booking_id", b.ID), slog.Int64("flight_id", flightID))
		return domain.BookingResult{BookingID: b.ID, FlightID: flightID, UserID: userID}, nil
	}
}

func (s *BookingService) releaseGuard(ctx context.Context, flightID, userID int64) {
	if err := s.guard.Release(ctx, flightID, userID); err != nil {
		s.logger.Warn("release admission guard", slog.Int64("flight_id", flightID), slog.Int64("user_id", userID), slog.Any("err", err))
	}
}

func (s *BookingService) publishConfirmed(ctx context.Context, token string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:       kafka.EventBookingConfirmed,
		Token:      token,
		BookingID:  b.ID,
		FlightID:   b.FlightID,
		UserID:     b.UserID,
		OccurredAt: s.clock.Now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, strconv.FormatInt(b.FlightID, 10), event); err != nil {
		s.logger.Warn("publish booking event", slog.String("op", "booking.publish"), slog.Int64("booking_id", b.ID), slog.Any("err", err))
	}
}

func (s *BookingService) TaskStatus(token string) tasks.Record {
	return s.tasks.Status(token)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidInput)
	}
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64, page pagination.Request) (pagination.Page[domain.Booking], error) {
	if userID <= 0 {
		return pagination.Page[domain.Booking]{}, fmt.Errorf("%w: user id must be positive", domain.ErrInvalidInput)
	}
	page = page.Normalize()
	items, total, err := s.bookings.ListByUser(ctx, userID, page)
	if err != nil {
		return pagination.Page[domain.Booking]{}, err
	}
	return pagination.New(items, page, total), nil
}

// DeleteBooking lets the owner drop a booking while the flight is still at
// least the cancel window away from departure.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID, userID int64) error {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return fmt.Errorf("%w: booking %d belongs to another user", domain.ErrBusinessRule, bookingID)
	}

	flight, err := s.flights.GetByID(ctx, b.FlightID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if flight != nil {
		now := s.clock.Now()
		if flight.Started() || !flight.DepartureTime.After(now) {
			return fmt.Errorf("%w: flight %d", domain.ErrPastDeparture, flight.ID)
		}
		if flight.DepartureTime.Sub(now) < s.cancelWindow {
			return fmt.Errorf("%w: bookings can only be cancelled at least %s before departure", domain.ErrBusinessRule, s.cancelWindow)
		}
	}
	return s.bookings.Delete(ctx, bookingID)
}

var _ BookingUseCase = (*BookingService)(nil)
