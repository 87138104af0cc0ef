package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// publishTimeout bounds one event write, retries included, so an unreachable
// broker cannot hold a polling loop.
const publishTimeout = 10 * time.Second

// KafkaPublisher writes alert events to a Kafka topic keyed by alert id.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: publishTimeout,
		MaxAttempts:  3,
	}
	return &KafkaPublisher{writer: w, timeout: publishTimeout, logger: logger}
}

func (p *KafkaPublisher) Notify(ctx context.Context, ev models.AlertEvent) error {
	msg, err := serializeEvent(ev)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert event %s: %w", ev.AlertID, err)
	}
	p.logger.Debug("alert event published", "alert_id", ev.AlertID, "kind", ev.Kind)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeEvent(ev models.AlertEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.AlertID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "severity", Value: []byte(ev.Severity)},
			{Key: "at", Value: []byte(ev.At.Format(time.RFC3339))},
		},
	}, nil
}
