package event

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig holds broker and topic settings for the Kafka transport
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	InboundTopics []string
	OutboundTopic string
	BatchTimeout  time.Duration
	MinBytes      int
	MaxBytes      int
}

// KafkaTransport implements MessageTransport on a kafka-go writer.
// RequireAll acks make Send synchronous: a nil return means the partition
// leader and replicas accepted the message.
type KafkaTransport struct {
	writer *kafka.Writer
}

// NewKafkaTransport creates a transport writing to the outbound topic
func NewKafkaTransport(cfg KafkaConfig) *KafkaTransport {
	return &KafkaTransport{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.OutboundTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: cfg.BatchTimeout,
		},
	}
}

// Send writes one message and waits for the broker acknowledgement
func (t *KafkaTransport) Send(ctx context.Context, msg Message) error {
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	})
}

// Close flushes and closes the writer
func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}

// Ensure KafkaTransport implements MessageTransport
var _ MessageTransport = (*KafkaTransport)(nil)

// KafkaConsumer reads inbound topics and feeds each message through the
// dispatcher. Offsets commit only after the dispatcher returns nil, so a
// crash mid-handling redelivers the message.
type KafkaConsumer struct {
	readers    []*kafka.Reader
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewKafkaConsumer creates a consumer with one reader per inbound topic
func NewKafkaConsumer(cfg KafkaConfig, dispatcher *Dispatcher, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	readers := make([]*kafka.Reader, 0, len(cfg.InboundTopics))
	for _, topic := range cfg.InboundTopics {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.ConsumerGroup,
			Topic:    topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		}))
	}
	return &KafkaConsumer{
		readers:    readers,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs one consume loop per topic and blocks until ctx is cancelled
func (c *KafkaConsumer) Start(ctx context.Context) {
	done := make(chan struct{})
	for _, reader := range c.readers {
		go func(r *kafka.Reader) {
			defer func() { done <- struct{}{} }()
			c.consumeLoop(ctx, r)
		}(reader)
	}
	for range c.readers {
		<-done
	}
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, reader *kafka.Reader) {
	topic := reader.Config().Topic
	c.logger.Info("kafka consumer started", zap.String("topic", topic))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("kafka consumer stopping", zap.String("topic", topic))
				return
			}
			c.logger.Error("failed to fetch message",
				zap.String("topic", topic),
				zap.Error(err),
			)
			continue
		}

		if err := c.dispatcher.Dispatch(ctx, msg.Value); err != nil {
			// Leave the offset uncommitted so the message is redelivered
			c.logger.Error("message handling failed, leaving for redelivery",
				zap.String("topic", topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset",
				zap.String("topic", topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close closes all readers
func (c *KafkaConsumer) Close() error {
	var errs []error
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
