// internal/infrastructure/messaging/kafka/publisher.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shipping-updates/storefront/internal/config"
	"github.com/sirupsen/logrus"
)

// messageWriter is the part of *kafkaGo.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// Publisher writes JSON events to Kafka. With no brokers configured it
// only logs them.
type Publisher struct {
	writer messageWriter
	logger logrus.FieldLogger
}

// NewPublisher creates a publisher for the configured brokers
func NewPublisher(cfg *config.Config, logger logrus.FieldLogger) *Publisher {
	p := &Publisher{logger: logger}
	if len(cfg.External.Kafka.Brokers) == 0 {
		logger.Warn("no Kafka brokers configured, events will only be logged")
		return p
	}

	p.writer = &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(cfg.External.Kafka.Brokers...),
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequireAll,
		AllowAutoTopicCreation: cfg.IsDevelopment(),
		WriteTimeout:           5 * time.Second,
	}
	return p
}

// PublishEvent writes event to topic, keyed so one order's events stay
// on one partition
func (p *Publisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.writer == nil {
		p.logger.WithFields(logrus.Fields{
			"topic":   topic,
			"key":     key,
			"payload": string(payload),
		}).Info("event published to log")
		return nil
	}

	if err := p.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
