package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "overlap/contexts/meetup-live/consensus-engine/application"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus. This is
// what gives subscribers at-least-once delivery: a row is marked published
// only after the bus accepted it, so a crash between the two replays it.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays a bounded batch of pending outbox rows. It stops on the
// first failure so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "consensus_outbox_list_failed",
			"module", "meetup-live/consensus-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "consensus_outbox_decode_failed",
				"module", "meetup-live/consensus-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "consensus_outbox_publish_failed",
				"module", "meetup-live/consensus-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "consensus_outbox_mark_published_failed",
				"module", "meetup-live/consensus-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("outbox relay cycle completed",
		"event", "consensus_outbox_relay_completed",
		"module", "meetup-live/consensus-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

// Run polls the outbox until ctx is cancelled.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		}
	}
}
