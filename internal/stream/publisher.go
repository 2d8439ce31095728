// Package stream is the durable bus the teacher never had: the teacher
// broadcasts only over its websocket hub. No repo in the retrieval pack
// imports a message-broker client, so this package adopts
// github.com/segmentio/kafka-go directly, named as an out-of-pack
// dependency rather than claimed as teacher-grounded.
package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Publisher owns one *kafka.Writer per topic, constructed lazily and
// kept for the lifetime of the process.
type Publisher struct {
	brokers []string
	logger  *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewPublisher builds a Publisher over the configured broker list. No
// connection is established until the first Publish call for a topic.
func NewPublisher(brokers []string, logger *slog.Logger) *Publisher {
	return &Publisher{
		brokers: brokers,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Publisher) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

// Publish writes one message to topic. For severity "critical" the
// write is dispatched fire-and-forget (per spec.md §4.6, the priority
// path never blocks the ingestion critical path on acknowledgement);
// any other severity blocks on ctx.
func (p *Publisher) Publish(ctx context.Context, topic, key string, value []byte, severity, equipmentID string) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "severity", Value: []byte(severity)},
			{Key: "equipment_id", Value: []byte(equipmentID)},
		},
	}

	w := p.writerFor(topic)

	if severity == "critical" {
		go func() {
			if err := w.WriteMessages(context.Background(), msg); err != nil {
				p.logger.Warn("stream publish failed", slog.String("topic", topic), slog.String("error", err.Error()))
			}
		}()
		return nil
	}

	return w.WriteMessages(ctx, msg)
}

// Close flushes and closes every writer the Publisher has opened.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
