package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/otakulist/narabe/internal/config"
	"github.com/otakulist/narabe/internal/services"
	"github.com/otakulist/narabe/internal/validation"
)

const (
	ListUpdatesDLQTopic = "list-updates-dlq"
	ConsumerGroup       = "recommendation-invalidators"
)

// ListUpdateEvent is what the list service publishes when a user's entries
// change. The consumer only needs user_id; the rest travels for the DLQ and
// for debugging.
type ListUpdateEvent struct {
	EventType  string    `json:"event_type"`
	UserID     uuid.UUID `json:"user_id"`
	TitleID    int64     `json:"title_id"`
	Status     string    `json:"status,omitempty"`
	Rating     float64   `json:"rating,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ListUpdateConsumer invalidates cached recommendations when a user's list
// changes, so the next read regenerates against fresh history.
type ListUpdateConsumer struct {
	reader      *kafka.Reader
	dlqWriter   *kafka.Writer
	recommender services.RecommendationServiceInterface
	validator   *validation.SchemaValidator
	logger      *logrus.Logger
}

func NewListUpdateConsumer(
	cfg *config.Config,
	recommender services.RecommendationServiceInterface,
	logger *logrus.Logger,
) (*ListUpdateConsumer, error) {
	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build event validator: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topics.ListUpdates,
		GroupID:        ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        ListUpdatesDLQTopic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &ListUpdateConsumer{
		reader:      reader,
		dlqWriter:   dlqWriter,
		recommender: recommender,
		validator:   validator,
		logger:      logger,
	}, nil
}

// Run consumes until the context is canceled. Malformed events go straight
// to the DLQ; invalidation failures retry with backoff before giving up.
func (c *ListUpdateConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.WithError(err).Error("Failed to read message from Kafka")
				continue
			}

			if result := c.validator.ValidateListUpdate(message.Value); !result.Valid {
				c.logger.WithField("errors", result.Errors).Warn("Rejected malformed list-update event")
				c.sendToDLQ(ctx, message, fmt.Errorf("schema validation failed: %v", result.Errors))
				continue
			}

			var event ListUpdateEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				c.logger.WithError(err).Error("Failed to unmarshal list-update event")
				c.sendToDLQ(ctx, message, err)
				continue
			}

			if err := c.invalidateWithRetry(ctx, event); err != nil {
				c.logger.WithError(err).WithField("user_id", event.UserID).
					Error("Failed to invalidate after retries")
				c.sendToDLQ(ctx, message, err)
			}
		}
	}
}

// invalidateWithRetry retries the cache drop with exponential backoff. The
// stale entry would also age out by TTL, so three attempts is enough.
func (c *ListUpdateConsumer) invalidateWithRetry(ctx context.Context, event ListUpdateEvent) error {
	maxRetries := 3
	baseDelay := time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.WithFields(logrus.Fields{
				"user_id": event.UserID,
				"attempt": attempt,
				"delay":   delay,
			}).Info("Retrying cache invalidation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.recommender.Invalidate(ctx, event.UserID); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": event.UserID,
				"attempt": attempt,
			}).Warn("Cache invalidation failed")

			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"user_id":    event.UserID,
			"event_type": event.EventType,
			"title_id":   event.TitleID,
		}).Debug("Invalidated cached recommendations")
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (c *ListUpdateConsumer) sendToDLQ(ctx context.Context, original kafka.Message, cause error) {
	dlqMessage := map[string]interface{}{
		"original_payload": json.RawMessage(original.Value),
		"error":            cause.Error(),
		"dlq_timestamp":    time.Now(),
	}

	dlqBytes, err := json.Marshal(dlqMessage)
	if err != nil {
		c.logger.WithError(err).Error("Failed to marshal DLQ message")
		return
	}

	kafkaMessage := kafka.Message{
		Key:   original.Key,
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(c.reader.Config().Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}

	if err := c.dlqWriter.WriteMessages(ctx, kafkaMessage); err != nil {
		c.logger.WithError(err).Error("Failed to write message to DLQ")
		return
	}

	c.logger.WithField("error", cause.Error()).Warn("Message sent to DLQ")
}

func (c *ListUpdateConsumer) Close() error {
	var errs []error

	if err := c.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if err := c.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing consumer: %v", errs)
	}
	return nil
}

// Metrics exposes reader statistics for the admin surface.
func (c *ListUpdateConsumer) Metrics() map[string]interface{} {
	stats := c.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}
