package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domenick1991/skyreserve/internal/domain"
	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/jonboulle/clockwork"
)

// Sink is a notification transport: sockets, SSE, a message bus.
type Sink interface {
	Emit(ctx context.Context, room string, ev Event) error
	Broadcast(ctx context.Context, ev Event) error
}

// Notifier is what the lifecycle code depends on. Every method is
// fire-and-forget: failures are logged and never returned.
type Notifier interface {
	NotifyNewFlight(ctx context.Context, f domain.Flight)
	NotifyFlightStatusUpdate(ctx context.Context, managerID int64, f domain.Flight)
	NotifyFlightCancelled(ctx context.Context, f domain.Flight, affectedUserIDs []int64)
	NotifyFlightStarted(ctx context.Context, f domain.Flight)
	NotifyFlightCompleted(ctx context.Context, f domain.Flight)
}

const (
	DefaultSinkTimeout = 5 * time.Second
	DefaultQueueSize   = 256
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

type delivery struct {
	ctx       context.Context
	room      string
	ev        Event
	broadcast bool
}

// outbox feeds one sink from its own goroutine, so a slow transport only
// ever delays itself.
type outbox struct {
	sink  Sink
	queue chan delivery
}

// Dispatcher hands every event to each sink's outbox and returns at once.
// An outbox that is full drops the event.
type Dispatcher struct {
	sinks     []Sink
	logger    *slog.Logger
	clock     clockwork.Clock
	timeout   time.Duration
	queueSize int

	mu       sync.RWMutex
	outboxes []*outbox
	closed   bool
	wg       sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

func WithClock(c clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = c }
}

func WithSinkTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithQueueSize bounds how many events may wait for each sink.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithSinks(sinks ...Sink) DispatcherOption {
	return func(d *Dispatcher) { d.sinks = append(d.sinks, sinks...) }
}

// NewDispatcher starts one delivery goroutine per sink. Close stops them.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
		timeout:   DefaultSinkTimeout,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, sink := range d.sinks {
		ob := &outbox{sink: sink, queue: make(chan delivery, d.queueSize)}
		d.outboxes = append(d.outboxes, ob)
		d.wg.Add(1)
		go d.drain(ob)
	}
	return d
}

// Close stops accepting events and waits up to timeout for queued ones to
// be delivered. It may be called again to keep waiting.
func (d *Dispatcher) Close(timeout time.Duration) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ob := range d.outboxes {
			close(ob.queue)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("notification dispatcher did not drain within %s", timeout)
	}
}

func (d *Dispatcher) NotifyNewFlight(ctx context.Context, f domain.Flight) {
	d.emit(ctx, AdminRoom, d.event(EventNewFlightPending, NoticeFor(f)))
}

func (d *Dispatcher) NotifyFlightStatusUpdate(ctx context.Context, managerID int64, f domain.Flight) {
	d.emit(ctx, ManagerRoom(managerID), d.event(EventFlightStatusUpdated, NoticeFor(f)))
}

// NotifyFlightCancelled tells the flight's watchers and then every
// connected client. The notice carries the users whose bookings are affected.
func (d *Dispatcher) NotifyFlightCancelled(ctx context.Context, f domain.Flight, affectedUserIDs []int64) {
	notice := NoticeFor(f)
	notice.AffectedUserIDs = affectedUserIDs
	ev := d.event(EventFlightCancelled, notice)
	d.emit(ctx, FlightRoom(f.ID), ev)
	d.broadcast(ctx, ev)
}

func (d *Dispatcher) NotifyFlightStarted(ctx context.Context, f domain.Flight) {
	d.emit(ctx, FlightRoom(f.ID), d.event(EventFlightStarted, NoticeFor(f)))
}

func (d *Dispatcher) NotifyFlightCompleted(ctx context.Context, f domain.Flight) {
	d.emit(ctx, FlightRoom(f.ID), d.event(EventFlightCompleted, NoticeFor(f)))
}

func (d *Dispatcher) event(name string, notice FlightNotice) Event {
	return Event{Name: name, Notice: notice, At: d.clock.Now()}
}

func (d *Dispatcher) emit(ctx context.Context, room string, ev Event) {
	telemetry.NotificationsEmitted.WithLabelValues(ev.Name).Inc()
	d.enqueue(delivery{ctx: context.WithoutCancel(ctx), room: room, ev: ev})
}

func (d *Dispatcher) broadcast(ctx context.Context, ev Event) {
	d.enqueue(delivery{ctx: context.WithoutCancel(ctx), room: "*", ev: ev, broadcast: true})
}

// enqueue never blocks. The delivery context is detached from the caller
// so a finished request does not abort its own notification.
func (d *Dispatcher) enqueue(dl delivery) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.failed(dl.ev, dl.room, ErrDispatcherClosed)
		return
	}
	for _, ob := range d.outboxes {
		select {
		case ob.queue <- dl:
		default:
			d.failed(dl.ev, dl.room, ErrQueueFull)
		}
	}
}

func (d *Dispatcher) drain(ob *outbox) {
	defer d.wg.Done()
	for dl := range ob.queue {
		ctx, cancel := context.WithTimeout(dl.ctx, d.timeout)
		var err error
		if dl.broadcast {
			err = ob.sink.Broadcast(ctx, dl.ev)
		} else {
			err = ob.sink.Emit(ctx, dl.room, dl.ev)
		}
		cancel()
		if err != nil {
			d.failed(dl.ev, dl.room, err)
		}
	}
}

func (d *Dispatcher) failed(ev Event, room string, err error) {
	telemetry.NotificationsDropped.Inc()
	d.logger.Error("notification dispatch failed",
		slog.String("op", "notify."+ev.Name),
		slog.Int64("flight_id", ev.Notice.FlightID),
		slog.String("room", room),
		slog.Any("err", err))
}

var _ Notifier = (*Dispatcher)(nil)
