package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/notify"
	"github.com/Domenick1991/skyreserve/internal/repository"
	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/jonboulle/clockwork"
)

const DefaultInterval = 10 * time.Second

// FlightStore is the slice of the flight repository the scheduler needs.
type FlightStore interface {
	ListByStatus(ctx context.Context, status domain.FlightStatus, due repository.DueFilter) ([]domain.Flight, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.FlightStatus, patch domain.StatusPatch) (*domain.Flight, error)
}

// Rule is one time-driven transition: which flights are due at a given
// instant, what is written with the status change and who hears about it.
type Rule struct {
	Name   string
	From   domain.FlightStatus
	To     domain.FlightStatus
	Due    func(now time.Time) repository.DueFilter
	Patch  func(now time.Time) domain.StatusPatch
	Notify func(ctx context.Context, n notify.Notifier, f domain.Flight)
}

// DefaultRules starts approved flights whose departure has passed and
// completes in-progress flights whose arrival has passed.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "start",
			From: domain.FlightStatusApproved,
			To:   domain.FlightStatusInProgress,
			Due: func(now time.Time) repository.DueFilter {
				return repository.DueFilter{DepartureAtOrBefore: now}
			},
			Patch: func(now time.Time) domain.StatusPatch {
				return domain.StatusPatch{ActualStartTime: &now}
			},
			Notify: func(ctx context.Context, n notify.Notifier, f domain.Flight) {
				n.NotifyFlightStarted(ctx, f)
			},
		},
		{
			Name: "complete",
			From: domain.FlightStatusInProgress,
			To:   domain.FlightStatusCompleted,
			Due: func(now time.Time) repository.DueFilter {
				return repository.DueFilter{ArrivalAtOrBefore: now}
			},
			Patch: func(time.Time) domain.StatusPatch { return domain.StatusPatch{} },
			Notify: func(ctx context.Context, n notify.Notifier, f domain.Flight) {
				n.NotifyFlightCompleted(ctx, f)
			},
		},
	}
}

// TickResult counts what one tick did per rule name.
type TickResult struct {
	Applied map[string]int
	Failed  map[string]int
}

type Scheduler struct {
	store    FlightStore
	notifier notify.Notifier
	clock    clockwork.Clock
	logger   *slog.Logger
	interval time.Duration
	rules    []Rule

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastTick time.Time
}

type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithRules(rules ...Rule) Option {
	return func(s *Scheduler) { s.rules = rules }
}

func New(store FlightStore, notifier notify.Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		interval: DefaultInterval,
		rules:    DefaultRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick applies every rule once. A flight that fails to transition is logged
// and skipped; it never stops the rest of the tick.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	now := s.clock.Now()
	res := TickResult{Applied: make(map[string]int), Failed: make(map[string]int)}
	telemetry.SchedulerTicks.Inc()

	for _, rule := range s.rules {
		flights, err := s.store.ListByStatus(ctx, rule.From, rule.Due(now))
		if err != nil {
			res.Failed[rule.Name]++
			s.logger.Error("scheduler query failed",
				slog.String("op", "scheduler."+rule.Name),
				slog.String("status", string(rule.From)),
				slog.Any("err", err))
			continue
		}
		for _, f := range flights {
			if err := s.apply(ctx, rule, f, now); err != nil {
				res.Failed[rule.Name]++
				telemetry.AutoTransitionFails.WithLabelValues(string(rule.To)).Inc()
				level := slog.LevelError
				if errors.Is(err, domain.ErrInvalidTransition) {
					// someone else moved it first; the next tick will not see it again
					level = slog.LevelWarn
				}
				s.logger.Log(ctx, level, "auto transition failed",
					slog.String("op", "scheduler."+rule.Name),
					slog.Int64("flight_id", f.ID),
					slog.Any("err", err))
				continue
			}
			res.Applied[rule.Name]++
			telemetry.AutoTransitions.WithLabelValues(string(rule.To)).Inc()
		}
	}

	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()
	return res
}

func (s *Scheduler) apply(ctx context.Context, rule Rule, f domain.Flight, now time.Time) error {
	if err := domain.ValidateTransition(domain.TransitionRequest{From: f.Status, To: rule.To, Trigger: domain.TriggerClock}); err != nil {
		return err
	}
	updated, err := s.store.UpdateStatus(ctx, f.ID, rule.From, rule.To, rule.Patch(now))
	if err != nil {
		return fmt.Errorf("update flight %d to %s: %w", f.ID, rule.To, err)
	}
	s.logger.Info("flight auto-transitioned",
		slog.Int64("flight_id", f.ID),
		slog.String("from", string(rule.From)),
		slog.String("to", string(rule.To)))
	if rule.Notify != nil {
		rule.Notify(ctx, s.notifier, *updated)
	}
	return nil
}

// Start runs a tick immediately and then once per interval until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// a tick in progress finishes even if Stop is called meanwhile
		s.Tick(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// Stop signals the loop and waits up to timeout for it to exit.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("scheduler did not stop within %s", timeout)
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}
