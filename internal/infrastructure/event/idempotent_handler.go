package event

import (
	"context"

	"github.com/autoshop/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler is a fast-path duplicate filter in front of an event
// handler. The consumed_events insert inside the handler's transaction stays
// the authority; this wrapper only saves a database round trip on the common
// redelivery case. It fails open: a store error never blocks processing, and
// an event is recorded in the store only after the handler committed.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	logger *zap.Logger,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle skips events the store has already seen, otherwise delegates and
// records the event on success
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()

	seen, err := h.store.IsProcessed(ctx, eventID)
	if err != nil {
		h.logger.Warn("idempotency store check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	} else if seen {
		h.logger.Debug("duplicate event filtered",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		return err
	}

	// Best effort: the database record already protects correctness
	if _, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL); err != nil {
		h.logger.Warn("failed to record event in idempotency store",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
	return nil
}

// WrapHandlers wraps each handler with the duplicate filter
func WrapHandlers(
	handlers []shared.EventHandler,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	logger *zap.Logger,
) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, config, logger)
	}
	return wrapped
}

// Ensure IdempotentHandler implements shared.EventHandler
var _ shared.EventHandler = (*IdempotentHandler)(nil)
