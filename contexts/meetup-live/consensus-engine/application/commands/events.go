package commands

import (
	"encoding/json"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/ports"
)

func newEngineEnvelope(
	eventID string,
	eventType string,
	sessionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Events are partitioned by session so session-scoped subscribers see a
	// single stream per meetup.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		SessionID:     sessionID,
		OccurredAt:    occurredAt.UTC(),
		SchemaVersion: 1,
		Data:          payload,
	}, nil
}
