package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/adapters/memory"
	"overlap/contexts/meetup-live/consensus-engine/application/workers"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

type capturePublisher struct {
	published []ports.EventEnvelope
	fail      bool
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail {
		return errors.New("bus down")
	}
	if topic != event.EventType {
		return errors.New("topic mismatch")
	}
	p.published = append(p.published, event)
	return nil
}

func appendEnvelope(t *testing.T, store *memory.Store, eventID string, at time.Time) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"session_id": "s1"})
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:       eventID,
		EventType:     ports.TopicTallyUpdated,
		SessionID:     "s1",
		OccurredAt:    at,
		SchemaVersion: 1,
		Data:          payload,
	})
	if err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
}

func TestRelayRunOncePublishesAndAcks(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}

	base := time.Now().UTC()
	appendEnvelope(t, store, "e1", base)
	appendEnvelope(t, store, "e2", base.Add(time.Second))

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected two published events, got %d", len(publisher.published))
	}
	if publisher.published[0].EventID != "e1" || publisher.published[1].EventID != "e2" {
		t.Fatalf("expected chronological relay order, got %s then %s",
			publisher.published[0].EventID, publisher.published[1].EventID)
	}

	// Acked rows never replay.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("idle run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("published rows replayed: %d", len(publisher.published))
	}
}

func TestRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturePublisher{fail: true}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}

	appendEnvelope(t, store, "e1", time.Now().UTC())

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish error to surface")
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("failed rows must stay pending, got %d err=%v", len(pending), err)
	}

	// The next cycle with a healthy bus drains them.
	publisher.fail = false
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("recovery run failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d err=%v", len(pending), err)
	}
}
