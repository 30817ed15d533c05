package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "obscore.events"

var (
	// ErrClosed is returned when publishing to a closed publisher.
	ErrClosed = errors.New("publisher closed")

	errNoBrokers = errors.New("at least one broker is required")
)

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Acks maps to kafka.RequiredAcks; zero means all replicas.
	Acks int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by program id so that
// each program's events stay ordered within a partition.
type KafkaPublisher struct {
	topic  string
	log    *slog.Logger
	writer messageWriter

	mu     sync.Mutex
	closed bool
}

// NewKafkaPublisher builds a publisher writing to the configured brokers.
func NewKafkaPublisher(cfg KafkaConfig, log *slog.Logger) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = DefaultTopic
	}
	acks := kafka.RequireAll
	if cfg.Acks != 0 {
		acks = kafka.RequiredAcks(cfg.Acks)
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           acks,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(topic, w, log), nil
}

func newKafkaPublisher(topic string, w messageWriter, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &KafkaPublisher{
		topic:  topic,
		log:    log.With(slog.String("component", "kafka_publisher")),
		writer: w,
	}
}

// Topic returns the destination topic.
func (p *KafkaPublisher) Topic() string { return p.topic }

// Publish encodes and writes events in a single batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ProgramID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("publish_failed", slog.Int("events", len(events)), slog.Any("err", err))
		return fmt.Errorf("write messages: %w", err)
	}
	p.log.Debug("published", slog.Int("events", len(events)))
	return nil
}

// Close flushes and closes the writer. Further publishes fail with ErrClosed.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.writer.Close()
}
