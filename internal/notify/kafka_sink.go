package notify

import (
	"context"
	"strconv"

	"github.com/Domenick1991/skyreserve/internal/kafka"
)

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

const DefaultPublishAttempts = 3

// KafkaSink forwards lifecycle events to a topic keyed by flight id, so the
// worker process can act on them out of band. It runs on its own dispatcher
// goroutine, so retrying a flaky broker holds up nobody else.
type KafkaSink struct {
	publisher Publisher
	topic     string
	attempts  int
}

func NewKafkaSink(publisher Publisher, topic string, attempts int) *KafkaSink {
	if attempts <= 0 {
		attempts = DefaultPublishAttempts
	}
	return &KafkaSink{publisher: publisher, topic: topic, attempts: attempts}
}

func (s *KafkaSink) Emit(ctx context.Context, room string, ev Event) error {
	return s.publish(ctx, room, ev)
}

func (s *KafkaSink) Broadcast(ctx context.Context, ev Event) error {
	// the room-targeted copy of a cancellation already reached the topic
	if ev.Name == EventFlightCancelled {
		return nil
	}
	return s.publish(ctx, "", ev)
}

func (s *KafkaSink) publish(ctx context.Context, room string, ev Event) error {
	msg := kafka.LifecycleEvent{
		Type:            ev.Name,
		Room:            room,
		FlightID:        ev.Notice.FlightID,
		FlightName:      ev.Notice.FlightName,
		Status:          ev.Notice.Status,
		DepartureTime:   ev.Notice.DepartureTime,
		RejectionReason: ev.Notice.RejectionReason,
		AffectedUserIDs: ev.Notice.AffectedUserIDs,
		OccurredAt:      ev.At,
	}
	return s.publisher.PublishWithRetry(ctx, s.topic, strconv.FormatInt(ev.Notice.FlightID, 10), msg, s.attempts)
}

var _ Sink = (*KafkaSink)(nil)
