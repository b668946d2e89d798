package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// envelopeVersion is bumped when Envelope fields change shape.
const envelopeVersion = 1

// Event is a hospital domain event keyed by the record it describes.
type Event interface {
	EventType() string
	// AggregateID names the record, e.g. "appointment:42".
	AggregateID() string
	OccurredAt() time.Time
}

// Envelope is the wire form shared by the outbox and the SQS queue.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	Version    int             `json:"version"`
	EventType  string          `json:"event_type"`
	Aggregate  string          `json:"aggregate"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

var (
	errNilEvent         = errors.New("events: event required")
	errMissingAggregate = errors.New("events: aggregate is required")
	errMissingType      = errors.New("events: event type is required")
	nowFunc             = time.Now
)

// NewEnvelope assigns evt a fresh id and serializes it. Events without an
// occurrence time are stamped with the current time.
func NewEnvelope(evt Event) (Envelope, error) {
	if evt == nil {
		return Envelope{}, errNilEvent
	}
	aggregate := strings.TrimSpace(evt.AggregateID())
	if aggregate == "" {
		return Envelope{}, errMissingAggregate
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return Envelope{}, errMissingType
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}
	occurred := evt.OccurredAt()
	if occurred.IsZero() {
		occurred = nowFunc()
	}
	return Envelope{
		EventID:    uuid.New(),
		Version:    envelopeVersion,
		EventType:  eventType,
		Aggregate:  aggregate,
		OccurredAt: occurred.UTC(),
		Payload:    payload,
	}, nil
}
