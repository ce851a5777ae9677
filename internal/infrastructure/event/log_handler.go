package event

import (
	"context"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogHandler writes every event to the log at Info
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a LogHandler
func NewLogHandler(l *zap.Logger) *LogHandler {
	return &LogHandler{logger: l.Named("events")}
}

// EventTypes returns nil so the handler sees every event
func (h *LogHandler) EventTypes() []string { return nil }

// Handle logs event
func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	logger.For(ctx, h.logger).Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID()),
	)
	return nil
}
