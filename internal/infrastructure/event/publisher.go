package event

import (
	"context"
	"fmt"
	"time"

	"github.com/autoshop/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// Message is one wire message handed to a transport
type Message struct {
	Key   []byte
	Value []byte
}

// MessageTransport delivers messages to the broker. Send returns only after
// the broker has acknowledged the message.
type MessageTransport interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// RetryConfig controls the in-line publish retry loop
type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultRetryConfig returns the standard publish retry settings: three
// attempts with a doubling backoff starting at 100ms
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: 100 * time.Millisecond,
	}
}

// RetryingPublisher implements shared.EventPublisher over a MessageTransport.
// Publishing happens synchronously inside the caller's unit of work: when the
// retry budget is exhausted the error propagates and the surrounding
// transaction rolls back, leaving the inbound event unmarked for redelivery.
type RetryingPublisher struct {
	transport MessageTransport
	config    RetryConfig
	logger    *zap.Logger
}

// NewRetryingPublisher creates a new RetryingPublisher
func NewRetryingPublisher(transport MessageTransport, config RetryConfig, logger *zap.Logger) *RetryingPublisher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingPublisher{
		transport: transport,
		config:    config,
		logger:    logger,
	}
}

// Publish sends each event wrapped in the wire envelope, keyed by event ID
func (p *RetryingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		value, err := Marshal(event)
		if err != nil {
			return err
		}
		msg := Message{
			Key:   []byte(event.EventID().String()),
			Value: value,
		}
		if err := p.sendWithRetry(ctx, event, msg); err != nil {
			return err
		}
	}
	return nil
}

// sendWithRetry attempts delivery with a doubling backoff after every failed
// attempt. Backoff respects context cancellation.
func (p *RetryingPublisher) sendWithRetry(ctx context.Context, event shared.DomainEvent, msg Message) error {
	backoff := p.config.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		lastErr = p.transport.Send(ctx, msg)
		if lastErr == nil {
			if attempt > 1 {
				p.logger.Info("event published after retry",
					zap.String("event_id", event.EventID().String()),
					zap.String("event_type", event.EventType()),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		p.logger.Warn("event publish attempt failed",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.config.MaxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	p.logger.Error("event publish retries exhausted",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Int("attempts", p.config.MaxAttempts),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed to publish %s after %d attempts: %w",
		event.EventType(), p.config.MaxAttempts, lastErr)
}

// Close releases the underlying transport
func (p *RetryingPublisher) Close() error {
	return p.transport.Close()
}

// Ensure RetryingPublisher implements shared.EventPublisher
var _ shared.EventPublisher = (*RetryingPublisher)(nil)
