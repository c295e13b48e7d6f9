package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every message on a restu-food topic carries. Key is
// also the Kafka message key, so events for one aggregate keep their order.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"event_type"`
	Key           string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Source        string          `json:"source"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id and the current time.
func NewEvent(eventType, key, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		AggregateType: aggregateType,
		Source:        source,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		Data:          raw,
	}, nil
}
