package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
)

// Envelope is the wire form of a domain event. Payload holds the event's
// own JSON encoding.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event, tagging it with the emitting service
func NewEnvelope(source string, event shared.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return &Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt().UTC(),
		Source:        source,
		Payload:       payload,
	}, nil
}
