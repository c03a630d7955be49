package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, event Envelope) error
	Close() error
}

// KafkaPublisher writes envelopes to Kafka keyed by correlation id.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, clientID string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
			Transport:              &kafka.Transport{ClientID: clientID},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event Envelope) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.CorrelationID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher logs events instead of shipping them. Used when no broker is
// configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event Envelope) error {
	p.logger.WithFields(logrus.Fields{
		"topic":          topic,
		"event_id":       event.EventID,
		"event_type":     event.EventType,
		"correlation_id": event.CorrelationID,
	}).Info("Event published")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events map[string][]Envelope
}

func NewRecorder() *Recorder {
	return &Recorder{events: make(map[string][]Envelope)}
}

func (r *Recorder) Publish(_ context.Context, topic string, event Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[topic] = append(r.events[topic], event)
	return nil
}

func (r *Recorder) Events(topic string) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events[topic]...)
}

func (r *Recorder) Close() error { return nil }
