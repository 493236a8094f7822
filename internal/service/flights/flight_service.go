package flights

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/notify"
	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/service/capacity"
	"github.com/jonboulle/clockwork"
)

type FlightUseCase interface {
	CreateFlight(ctx context.Context, in FlightInput, createdBy int64) (*domain.Flight, error)
	UpdateFlight(ctx context.Context, id int64, patch FlightPatch) (*domain.Flight, error)
	UpdateFlightStatus(ctx context.Context, id int64, change StatusChange, adminID int64) (*domain.Flight, error)
	CancelFlight(ctx context.Context, id, adminID int64) (*CancelResult, error)
	DeleteFlight(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	List(ctx context.Context, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error)
	ListByTab(ctx context.Context, tab Tab, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error)
	AvailableSeats(ctx context.Context, id int64) (int, error)
	RemainingTime(ctx context.Context, id int64) (*RemainingTime, error)
}

type FlightService struct {
	repo      repository.FlightRepository
	bookings  repository.BookingRepository
	directory repository.DirectoryRepository
	capacity  capacity.Calculator
	notifier  notify.Notifier
	clock     clockwork.Clock
	logger    *slog.Logger
}

type FlightServiceOption func(*FlightService)

func WithClock(c clockwork.Clock) FlightServiceOption {
	return func(s *FlightService) { s.clock = c }
}

func WithLogger(l *slog.Logger) FlightServiceOption {
	return func(s *FlightService) { s.logger = l }
}

func NewFlightService(
	repo repository.FlightRepository,
	bookings repository.BookingRepository,
	directory repository.DirectoryRepository,
	calc capacity.Calculator,
	notifier notify.Notifier,
	opts ...FlightServiceOption,
) *FlightService {
	s := &FlightService{
		repo:      repo,
		bookings:  bookings,
		directory: directory,
		capacity:  calc,
		notifier:  notifier,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) CreateFlight(ctx context.Context, in FlightInput, createdBy int64) (*domain.Flight, error) {
	if createdBy <= 0 {
		return nil, fmt.Errorf("%w: creator id must be positive", domain.ErrInvalidInput)
	}
	f := in.toFlight()
	if err := s.validate(ctx, f); err != nil {
		return nil, err
	}

	f.CreatedBy = createdBy
	f.Status = domain.FlightStatusPending
	f.ScheduleArrival()
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("flight created", slog.Int64("flight_id", f.ID), slog.Int64("created_by", createdBy))
	s.notifier.NotifyNewFlight(ctx, *f)
	return f, nil
}

// UpdateFlight edits a PENDING or REJECTED flight. A rejected flight goes
// back to PENDING for another review.
func (s *FlightService) UpdateFlight(ctx context.Context, id int64, patch FlightPatch) (*domain.Flight, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Editable() {
		return nil, fmt.Errorf("%w: flight %d is %s and can no longer be edited", domain.ErrBusinessRule, id, f.Status)
	}

	read := f.Status
	patch.apply(f)
	if err := s.validate(ctx, f); err != nil {
		return nil, err
	}
	f.ScheduleArrival()

	resubmitted := f.Status == domain.FlightStatusRejected
	if resubmitted {
		f.Status = domain.FlightStatusPending
		f.RejectionReason = nil
	}
	if err := s.repo.Update(ctx, f, read); err != nil {
		return nil, err
	}

	if resubmitted {
		s.notifier.NotifyNewFlight(ctx, *f)
	}
	return f, nil
}

func (s *FlightService) validate(ctx context.Context, f *domain.Flight) error {
	if err := validateFields(f); err != nil {
		return err
	}
	if !f.DepartureTime.After(s.clock.Now()) {
		return fmt.Errorf("%w: departure time must be in the future", domain.ErrPastDeparture)
	}

	ok, err := s.directory.AirlineExists(ctx, f.AirlineID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: airline %d does not exist", domain.ErrInvalidInput, f.AirlineID)
	}
	for _, airportID := range []int64{f.DepartureAirportID, f.ArrivalAirportID} {
		ok, err := s.directory.AirportExists(ctx, airportID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: airport %d does not exist", domain.ErrInvalidInput, airportID)
		}
	}
	return nil
}

// UpdateFlightStatus applies an administrator's decision. Cancellation is
// routed through CancelFlight so bookers are told.
func (s *FlightService) UpdateFlightStatus(ctx context.Context, id int64, change StatusChange, adminID int64) (*domain.Flight, error) {
	if change.Status == domain.FlightStatusCancelled {
		res, err := s.CancelFlight(ctx, id, adminID)
		if err != nil {
			return nil, err
		}
		return res.Flight, nil
	}

	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(change.RejectionReason)
	if err := domain.ValidateTransition(domain.TransitionRequest{
		From:            f.Status,
		To:              change.Status,
		Trigger:         domain.TriggerAdmin,
		RejectionReason: reason,
	}); err != nil {
		return nil, err
	}

	var patch domain.StatusPatch
	switch change.Status {
	case domain.FlightStatusApproved:
		patch.ApprovedBy = &adminID
	case domain.FlightStatusRejected:
		patch.RejectionReason = &reason
	}
	updated, err := s.repo.UpdateStatus(ctx, id, f.Status, change.Status, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight status changed",
		slog.Int64("flight_id", id),
		slog.String("from", string(f.Status)),
		slog.String("to", string(updated.Status)),
		slog.Int64("admin_id", adminID))
	s.notifier.NotifyFlightStatusUpdate(ctx, updated.CreatedBy, *updated)
	return updated, nil
}

// CancelFlight cancels an approved flight that has not taken off and
// returns the users holding bookings on it.
func (s *FlightService) CancelFlight(ctx context.Context, id, adminID int64) (*CancelResult, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Started() {
		return nil, fmt.Errorf("%w: flight %d has already started", domain.ErrBusinessRule, id)
	}
	if err := domain.ValidateTransition(domain.TransitionRequest{
		From:    f.Status,
		To:      domain.FlightStatusCancelled,
		Trigger: domain.TriggerAdmin,
	}); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, f.Status, domain.FlightStatusCancelled, domain.StatusPatch{})
	if err != nil {
		return nil, err
	}
	users, err := s.bookings.ListActiveUserIDs(ctx, id)
	if err != nil {
		// the cancellation itself is already persisted
		s.logger.Error("list affected users", slog.String("op", "flight.cancel"), slog.Int64("flight_id", id), slog.Any("err", err))
	}

	s.logger.Info("flight cancelled", slog.Int64("flight_id", id), slog.Int64("admin_id", adminID), slog.Int("affected_users", len(users)))
	s.notifier.NotifyFlightCancelled(ctx, *updated, users)
	return &CancelResult{Flight: updated, AffectedUserIDs: users}, nil
}

func (s *FlightService) DeleteFlight(ctx context.Context, id int64) error {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !f.Deletable() {
		return fmt.Errorf("%w: only pending or rejected flights can be deleted", domain.ErrBusinessRule)
	}
	return s.repo.Delete(ctx, id)
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: flight id must be positive", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) List(ctx context.Context, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error) {
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[domain.Flight]{}, err
	}
	return pagination.New(items, page, total), nil
}

// ListByTab serves the passenger tabs. The completed tab spans two statuses
// and is merged in memory, newest departure first.
func (s *FlightService) ListByTab(ctx context.Context, tab Tab, filter repository.FlightFilter, page pagination.Request) (pagination.Page[domain.Flight], error) {
	switch tab {
	case TabUpcoming:
		filter.Statuses = []domain.FlightStatus{domain.FlightStatusApproved}
		filter.DepartureAfter = s.clock.Now()
		return s.List(ctx, filter, page)
	case TabInProgress:
		filter.Statuses = []domain.FlightStatus{domain.FlightStatusInProgress}
		return s.List(ctx, filter, page)
	case TabCompleted:
	default:
		return pagination.Page[domain.Flight]{}, fmt.Errorf("%w: unknown tab %q", domain.ErrInvalidInput, tab)
	}

	var merged []domain.Flight
	for _, status := range []domain.FlightStatus{domain.FlightStatusCompleted, domain.FlightStatusCancelled} {
		part, err := s.repo.ListByStatus(ctx, status, repository.DueFilter{})
		if err != nil {
			return pagination.Page[domain.Flight]{}, err
		}
		for _, f := range part {
			if matches(f, filter) {
				merged = append(merged, f)
			}
		}
	}
	slices.SortFunc(merged, func(a, b domain.Flight) int {
		if c := b.DepartureTime.Compare(a.DepartureTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return pagination.Paginate(merged, page), nil
}

func matches(f domain.Flight, filter repository.FlightFilter) bool {
	switch {
	case filter.Name != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filter.Name)):
		return false
	case filter.AirlineID > 0 && f.AirlineID != filter.AirlineID:
		return false
	case filter.DepartureAirportID > 0 && f.DepartureAirportID != filter.DepartureAirportID:
		return false
	case filter.ArrivalAirportID > 0 && f.ArrivalAirportID != filter.ArrivalAirportID:
		return false
	case filter.MinPriceCents > 0 && f.PriceCents < filter.MinPriceCents:
		return false
	case filter.MaxPriceCents > 0 && f.PriceCents > filter.MaxPriceCents:
		return false
	case filter.CreatedBy > 0 && f.CreatedBy != filter.CreatedBy:
		return false
	}
	if filter.DepartureDate != nil {
		d := filter.DepartureDate.UTC()
		dep := f.DepartureTime.UTC()
		if d.Year() != dep.Year() || d.YearDay() != dep.YearDay() {
			return false
		}
	}
	return true
}

func (s *FlightService) AvailableSeats(ctx context.Context, id int64) (int, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: flight id must be positive", domain.ErrInvalidInput)
	}
	return s.capacity.AvailableByID(ctx, id)
}

// RemainingTime reports how long an airborne flight has left until arrival.
func (s *FlightService) RemainingTime(ctx context.Context, id int64) (*RemainingTime, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FlightStatusInProgress {
		return nil, fmt.Errorf("%w: flight %d is %s, not in progress", domain.ErrBusinessRule, id, f.Status)
	}
	left := max(f.ArrivalTime.Sub(s.clock.Now()), 0)
	return &RemainingTime{
		FlightID:         f.ID,
		Status:           f.Status,
		ArrivalTime:      f.ArrivalTime,
		RemainingSeconds: int64(left.Seconds()),
		RemainingMinutes: int64(left.Minutes()),
	}, nil
}

var _ FlightUseCase = (*FlightService)(nil)
