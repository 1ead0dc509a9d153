package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"mango-store/internal/config"
	"mango-store/internal/logger"
	"mango-store/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams order lifecycle events. Each event type has its own
// topic so downstream consumers (fulfilment, notifications) subscribe to
// exactly what they need.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	if !cfg.Enabled {
		return &Producer{Logger: log, Topics: cfg.Topics}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: cfg.Topics, Logger: log}
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	if p.Writer == nil {
		// Kafka disabled; events are dropped on the floor by configuration.
		return nil
	}
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for topic %s: %w", topic, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.Logger.Info("KAFKA", fmt.Sprintf("published %s key=%s", topic, key))
	return nil
}

// PublishOrderCreated streams a new order to the created topic.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, p.Topics.OrderCreated, order.ID, order)
}

// PublishOrderPaid streams an order whose payment slip was accepted.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, p.Topics.OrderPaid, order.ID, order)
}

// PublishOrderCancelled streams a cancelled order.
func (p *Producer) PublishOrderCancelled(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, p.Topics.OrderCancelled, order.ID, order)
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
