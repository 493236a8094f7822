package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int
	messages []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("broker unavailable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishMarshalsPayload(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer([]string{"localhost:9092"}, w, nil)

	ev := BookingEvent{Type: EventBookingConfirmed, Token: "t-1", BookingID: 5, FlightID: 9, UserID: 3}
	require.NoError(t, p.Publish(context.Background(), "bookings", "9", ev))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "bookings", msg.Topic)
	assert.Equal(t, []byte("9"), msg.Key)

	var decoded BookingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev, decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishWithRetry(t *testing.T) {
	w := &fakeWriter{failures: 1}
	p := newProducer(nil, w, nil)

	require.NoError(t, p.PublishWithRetry(context.Background(), "t", "k", map[string]int{"a": 1}, 2))
	assert.Len(t, w.messages, 1)

	w.failures = 5
	err := p.PublishWithRetry(context.Background(), "t", "k", 1, 1)
	assert.ErrorContains(t, err, "failed after 1 retries")
}

type fakeReader struct {
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_ConsumeDecodesLifecycleEvents(t *testing.T) {
	departure := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(LifecycleEvent{Type: "flight-cancelled", FlightID: 4, DepartureTime: departure, AffectedUserIDs: []int64{1, 2}})
	require.NoError(t, err)

	c := &Consumer{reader: &fakeReader{msgs: []kafka.Message{{Value: payload}, {Value: []byte("{")}}}}

	var got []LifecycleEvent
	err = c.Consume(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		ev, err := DecodeLifecycle(msg)
		if err != nil {
			return err
		}
		got = append(got, ev)
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode lifecycle event")
	require.Len(t, got, 1)
	assert.Equal(t, []int64{1, 2}, got[0].AffectedUserIDs)
	assert.True(t, got[0].DepartureTime.Equal(departure))
}
