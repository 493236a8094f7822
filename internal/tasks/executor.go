package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domenick1991/skyreserve/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
)

const (
	DefaultRetention     = time.Hour
	DefaultSweepInterval = time.Minute
)

var ErrStopped = errors.New("task executor stopped")

// Job is the deferred work. Its result is stored on the task record.
type Job func(ctx context.Context) (any, error)

type tokenKey struct{}

// TokenFromContext returns the token of the task a job is running as.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Record is a point-in-time copy of a task's state.
type Record struct {
	Token       string     `json:"task_id"`
	Status      Status     `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (r Record) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

type queued struct {
	token string
	job   Job
}

// Executor runs submitted jobs one at a time, in submission order, on a
// single worker goroutine, and keeps their records for polling until the
// retention window after completion has passed.
type Executor struct {
	clock         clockwork.Clock
	logger        *slog.Logger
	retention     time.Duration
	sweepInterval time.Duration

	qmu     sync.Mutex
	queue   []queued
	stopped bool
	wake    chan struct{}

	mu      sync.Mutex
	records map[string]*Record

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Executor)

func WithClock(c clockwork.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithRetention(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.retention = d
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.sweepInterval = d
		}
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		clock:         clockwork.NewRealClock(),
		logger:        slog.Default(),
		retention:     DefaultRetention,
		sweepInterval: DefaultSweepInterval,
		wake:          make(chan struct{}, 1),
		records:       make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit queues a job and returns its token. It never blocks on the worker.
func (e *Executor) Submit(job Job) (string, error) {
	token := uuid.NewString()
	now := e.clock.Now()

	e.qmu.Lock()
	if e.stopped {
		e.qmu.Unlock()
		return "", ErrStopped
	}
	e.mu.Lock()
	e.records[token] = &Record{Token: token, Status: StatusPending, CreatedAt: &now}
	telemetry.TaskRecords.Set(float64(len(e.records)))
	e.mu.Unlock()
	e.queue = append(e.queue, queued{token: token, job: job})
	depth := len(e.queue)
	e.qmu.Unlock()

	telemetry.TasksSubmitted.Inc()
	telemetry.TaskQueueDepth.Set(float64(depth))

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return token, nil
}

// Status returns a copy of the task record, or a not_found record for an
// unknown or already swept token.
func (e *Executor) Status(token string) Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[token]
	if !ok {
		return Record{Token: token, Status: StatusNotFound}
	}
	return *rec
}

// Pending is the number of jobs waiting for the worker.
func (e *Executor) Pending() int {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	return len(e.queue)
}

// Running reports whether the worker goroutine is alive.
func (e *Executor) Running() bool {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Start launches the worker. Calling Start on a running executor is a no-op.
func (e *Executor) Start(ctx context.Context) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
}

// Stop signals the worker and waits up to timeout for it to exit. A job
// already running is allowed to finish; queued jobs stay pending.
func (e *Executor) Stop(timeout time.Duration) error {
	e.qmu.Lock()
	e.stopped = true
	e.qmu.Unlock()

	e.lifecycle.Lock()
	cancel, done := e.cancel, e.done
	e.lifecycle.Unlock()
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
		return fmt.Errorf("task executor did not stop within %s", timeout)
	}
}

func (e *Executor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	sweep := e.clock.NewTicker(e.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.Chan():
			e.Sweep()
		default:
		}

		if item, ok := e.pop(); ok {
			e.execute(ctx, item)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		case <-sweep.Chan():
			e.Sweep()
		}
	}
}

func (e *Executor) pop() (queued, bool) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	if len(e.queue) == 0 {
		return queued{}, false
	}
	item := e.queue[0]
	e.queue[0] = queued{}
	e.queue = e.queue[1:]
	telemetry.TaskQueueDepth.Set(float64(len(e.queue)))
	return item, true
}

func (e *Executor) execute(ctx context.Context, item queued) {
	started := e.clock.Now()
	e.update(item.token, func(r *Record) {
		r.Status = StatusProcessing
		r.StartedAt = &started
	})

	// a started job runs to completion even if Stop is called meanwhile
	jobCtx := context.WithValue(context.WithoutCancel(ctx), tokenKey{}, item.token)
	result, err := runJob(jobCtx, item.job)
	finished := e.clock.Now()
	telemetry.TaskRunDuration.Observe(finished.Sub(started).Seconds())

	e.update(item.token, func(r *Record) {
		r.CompletedAt = &finished
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusCompleted
		r.Result = result
	})

	if err != nil {
		telemetry.TasksFailed.Inc()
		e.logger.Warn("task failed", slog.String("op", "tasks.execute"), slog.String("task", item.token), slog.Any("err", err))
		return
	}
	telemetry.TasksCompleted.Inc()
}

func runJob(ctx context.Context, job Job) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return job(ctx)
}

func (e *Executor) update(token string, fn func(*Record)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.records[token]; ok {
		fn(rec)
	}
}

// Sweep drops finished records older than the retention window and
// returns how many were removed.
func (e *Executor) Sweep() int {
	cutoff := e.clock.Now().Add(-e.retention)

	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for token, rec := range e.records {
		if rec.Finished() && rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			delete(e.records, token)
			removed++
		}
	}
	telemetry.TaskRecords.Set(float64(len(e.records)))
	if removed > 0 {
		e.logger.Debug("swept task records", slog.Int("removed", removed))
	}
	return removed
}
