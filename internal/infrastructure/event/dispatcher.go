package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoshop/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatcher routes decoded inbound events to their registered handlers.
// Malformed or unroutable messages are logged and acknowledged; only handler
// failures propagate so the broker redelivers.
type Dispatcher struct {
	codec    *Codec
	handlers map[string]shared.EventHandler
	logger   *zap.Logger
}

// NewDispatcher creates an empty dispatcher around the codec
func NewDispatcher(codec *Codec, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		codec:    codec,
		handlers: make(map[string]shared.EventHandler),
		logger:   logger,
	}
}

// Register binds a handler for each event type it declares.
// Returns an error if a type is already bound.
func (d *Dispatcher) Register(handler shared.EventHandler) error {
	for _, eventType := range handler.EventTypes() {
		if _, exists := d.handlers[eventType]; exists {
			return fmt.Errorf("handler already registered for event type %s", eventType)
		}
		d.handlers[eventType] = handler
	}
	return nil
}

// Dispatch parses one raw message and hands it to the matching handler
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) error {
	envelope, err := UnmarshalInbound(raw)
	if err != nil {
		// A malformed envelope never becomes valid on redelivery
		d.logger.Warn("dropping malformed message", zap.Error(err))
		return nil
	}

	decoded, err := d.codec.Decode(envelope)
	if err != nil {
		if errors.Is(err, ErrUnknownEventType) {
			d.logger.Debug("ignoring event type",
				zap.String("event_type", envelope.Type),
				zap.String("event_id", envelope.EventID.String()),
			)
			return nil
		}
		d.logger.Warn("dropping undecodable event",
			zap.String("event_type", envelope.Type),
			zap.String("event_id", envelope.EventID.String()),
			zap.Error(err),
		)
		return nil
	}

	handler, ok := d.handlers[envelope.Type]
	if !ok {
		d.logger.Debug("no handler for event type",
			zap.String("event_type", envelope.Type),
		)
		return nil
	}

	return handler.Handle(ctx, decoded)
}
