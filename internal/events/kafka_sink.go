package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrSinkClosed is returned by Handle after Close.
var ErrSinkClosed = errors.New("kafka sink closed")

// messageWriter is the subset of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const eventTypeHeader = "event_type"

// KafkaSink forwards ticket events to a Kafka topic as JSON, keyed by
// ticket so one ticket's events stay on one partition. Writes are
// asynchronous; failed batches go to the reporter once the writer gives up.
type KafkaSink struct {
	writer  messageWriter
	onError ErrorReporter
	mu      sync.Mutex
	closed  bool
}

// NewKafkaSink builds a sink writing to topic on brokers. onError may be nil.
func NewKafkaSink(brokers []string, topic string, onError ErrorReporter) *KafkaSink {
	sink := &KafkaSink{onError: onError}
	sink.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion:             sink.completed,
	}
	return sink
}

func newKafkaSink(writer messageWriter, onError ErrorReporter) *KafkaSink {
	return &KafkaSink{writer: writer, onError: onError}
}

// completed receives the outcome of each asynchronous batch.
func (s *KafkaSink) completed(messages []kafka.Message, err error) {
	if err == nil || s.onError == nil {
		return
	}
	for _, msg := range messages {
		event := Event{TicketID: string(msg.Key)}
		for _, h := range msg.Headers {
			if h.Key == eventTypeHeader {
				event.Type = EventType(h.Value)
			}
		}
		s.onError(event, err)
	}
}

// Handle is an EventHandler.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSinkClosed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TicketID),
		Value: value,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(event.Type)},
		},
	})
}

// Register subscribes the sink to every ticket event.
func (s *KafkaSink) Register(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, s.Handle)
	}
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
