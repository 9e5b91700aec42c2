package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	var reported []error
	d := NewInMemoryDispatcher(func(_ Event, err error) { reported = append(reported, err) })

	calls := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return errors.New("first fails")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, 2, calls)
	assert.Len(t, reported, 1)
}

func TestKafkaSink(t *testing.T) {
	w := &recordingWriter{}
	sink := newKafkaSink(w, nil)
	d := NewInMemoryDispatcher(nil)
	sink.Register(d)

	event := Event{ID: "e1", Type: EventTicketStatusChanged, TicketID: "t1", Payload: TicketStatusChangedPayload{NewStatus: "Closed"}}
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("t1"), w.msgs[0].Key)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "ticket_status_changed", decoded["type"])

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, sink.Handle(context.Background(), event), ErrSinkClosed)
}

func TestKafkaSinkWritesAsynchronously(t *testing.T) {
	var failed []Event
	sink := NewKafkaSink([]string{"localhost:9092"}, "ticket-events", func(event Event, _ error) {
		failed = append(failed, event)
	})

	writer, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, writer.Async)
	assert.NotNil(t, writer.Completion)

	msgs := []kafka.Message{
		{Key: []byte("t1"), Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventTicketCreated)}}},
		{Key: []byte("t2"), Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventTicketDeleted)}}},
	}
	writer.Completion(msgs, nil)
	assert.Empty(t, failed)

	writer.Completion(msgs, errors.New("brokers unreachable"))
	require.Len(t, failed, 2)
	assert.Equal(t, Event{Type: EventTicketCreated, TicketID: "t1"}, failed[0])
	assert.Equal(t, EventTicketDeleted, failed[1].Type)

	require.NoError(t, sink.Close())
}
