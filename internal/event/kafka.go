package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/umalmyha/customer-registry/internal/model"
)

// KafkaPublisher publishes customer events to a single topic, keyed
// by customer id so all events of one aggregate land on one partition
type KafkaPublisher struct {
	writer      *kafka.Writer
	sendTimeout time.Duration
}

// NewKafkaPublisher builds KafkaPublisher
func NewKafkaPublisher(brokers []string, topic string, sendTimeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		sendTimeout: sendTimeout,
	}, nil
}

// Publish sends a single event, bounded by the configured send timeout
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, c *model.Customer) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Customer:   c,
	}

	payload, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event - %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(c.ID, 10)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
