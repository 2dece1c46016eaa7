package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/adapters/memory"
	"overlap/contexts/meetup-live/consensus-engine/application/queries"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"
	"overlap/internal/platform/messaging"
)

func TestSubscribeSessionStreamsSnapshots(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedSession(t, store, "s1", 4, 2)

	stream, err := uc.SubscribeSession(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	select {
	case snapshot := <-stream:
		if snapshot.SessionID != "s1" || snapshot.Cursor != 0 {
			t.Fatalf("unexpected initial snapshot: %+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("initial snapshot never arrived")
	}

	if _, err := store.UpdateSession(ctx, "s1", func(s *entities.Session) error {
		s.Cursor = 1
		return nil
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := bus.Publish(ctx, ports.TopicSessionUpdated, ports.EventEnvelope{
		EventID:   "e1",
		EventType: ports.TopicSessionUpdated,
		SessionID: "s1",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case snapshot := <-stream:
		if snapshot.Cursor != 1 {
			t.Fatalf("expected refreshed snapshot, got %+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("change snapshot never arrived")
	}
}

func TestSubscribeSessionIgnoresOtherSessions(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedSession(t, store, "s1", 4, 2)
	seedSession(t, store, "s2", 4, 2)

	stream, err := uc.SubscribeSession(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-stream // initial snapshot

	if err := bus.Publish(ctx, ports.TopicSessionUpdated, ports.EventEnvelope{
		EventID:   "e1",
		EventType: ports.TopicSessionUpdated,
		SessionID: "s2",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case snapshot := <-stream:
		t.Fatalf("received a snapshot for a foreign session: %+v", snapshot)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeSessionUnknownSession(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}

	if _, err := uc.SubscribeSession(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected session-not-found, got %v", err)
	}
}

func TestSubscribeSessionClosesOnCancel(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}
	ctx, cancel := context.WithCancel(context.Background())

	seedSession(t, store, "s1", 4, 2)

	stream, err := uc.SubscribeSession(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-stream // initial snapshot

	cancel()

	// A consumer draining the stream must observe the close instead of
	// blocking forever once the subscriber goes away.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("session stream never closed after cancellation")
		}
	}
}

func TestSubscribeTalliesClosesOnCancel(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}
	ctx, cancel := context.WithCancel(context.Background())

	seedSession(t, store, "s1", 4, 2)

	stream, err := uc.SubscribeTallies(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-stream // initial snapshot

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("tally stream never closed after cancellation")
		}
	}
}

func TestSubscribeTalliesStreamsFullMaps(t *testing.T) {
	store := memory.NewStore()
	bus := messaging.NewBus(nil)
	uc := queries.SubscriptionUseCase{Bus: bus, Sessions: store, Votes: store}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedSession(t, store, "s1", 4, 2)

	stream, err := uc.SubscribeTallies(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	select {
	case snapshot := <-stream:
		if len(snapshot) != 0 {
			t.Fatalf("expected empty initial tallies, got %v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("initial snapshot never arrived")
	}

	seedReconciled(t, store, "s1", "c1", 2, 1)
	if err := bus.Publish(ctx, ports.TopicTallyUpdated, ports.EventEnvelope{
		EventID:   "e1",
		EventType: ports.TopicTallyUpdated,
		SessionID: "s1",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case snapshot := <-stream:
		tally, ok := snapshot["c1"]
		if !ok || tally.Likes != 2 || tally.Passes != 1 {
			t.Fatalf("unexpected tally snapshot: %v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("tally snapshot never arrived")
	}
}
