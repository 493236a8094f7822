package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/skyreserve/internal/kafka"
)

const eventFlightCancelled = "flight-cancelled"

// Notice is one message to one passenger.
type Notice struct {
	UserID  int64
	Subject string
	Body    string
}

type Transport interface {
	Deliver(ctx context.Context, n Notice) error
}

// LogTransport writes notices to the log instead of a mail relay.
type LogTransport struct {
	Logger *slog.Logger
}

func (t LogTransport) Deliver(_ context.Context, n Notice) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("send email", slog.Int64("user_id", n.UserID), slog.String("subject", n.Subject))
	return nil
}

type Sender struct {
	transport Transport
	logger    *slog.Logger
}

func NewSender(transport Transport, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if transport == nil {
		transport = LogTransport{Logger: logger}
	}
	return &Sender{transport: transport, logger: logger}
}

// Send tells every affected passenger about a cancelled flight. Other event
// types are ignored. It returns how many notices were delivered.
func (s *Sender) Send(ctx context.Context, event kafka.LifecycleEvent) (int, error) {
	if event.Type != eventFlightCancelled {
		return 0, nil
	}

	subject := fmt.Sprintf("Flight %s has been cancelled", event.FlightName)
	body := fmt.Sprintf("Your booking on flight %s departing %s was cancelled by the airline.",
		event.FlightName, event.DepartureTime.UTC().Format("2006-01-02 15:04 MST"))

	var (
		sent int
		errs []error
	)
	for _, userID := range event.AffectedUserIDs {
		if err := s.transport.Deliver(ctx, Notice{UserID: userID, Subject: subject, Body: body}); err != nil {
			errs = append(errs, fmt.Errorf("notify user %d: %w", userID, err))
			continue
		}
		sent++
	}
	if len(errs) > 0 {
		s.logger.Warn("cancellation notices incomplete",
			slog.Int64("flight_id", event.FlightID), slog.Int("sent", sent), slog.Int("failed", len(errs)))
	}
	return sent, errors.Join(errs...)
}
