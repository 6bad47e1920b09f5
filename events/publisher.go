package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awspkg "checkout-service/pkg/aws"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventTypeSessionCreated = "checkout_session_created"

// SessionCreated is emitted once a checkout session has been committed.
type SessionCreated struct {
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	StoreIDs  []string  `json:"store_ids"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers checkout events to downstream consumers.
type Publisher interface {
	PublishSessionCreated(ctx context.Context, evt SessionCreated) error
	Close() error
}

// SNSPublisher fans events out through an SNS topic.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) PublishSessionCreated(ctx context.Context, evt SessionCreated) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.EventType, err)
	}
	return p.client.Publish(ctx, p.topicArn, b, map[string]string{"event_type": evt.EventType})
}

func (p *SNSPublisher) Close() error { return nil }

// messageWriter is the part of kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by user id so a user's sessions stay
// on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("Kafka publisher initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) PublishSessionCreated(ctx context.Context, evt SessionCreated) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(evt.UserID),
		Value:   data,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(evt.EventType)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher", zap.String("topic", p.topic))
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no sink is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishSessionCreated(context.Context, SessionCreated) error { return nil }

func (NoopPublisher) Close() error { return nil }
