package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "overlap/contexts/meetup-live/consensus-engine/application"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

const subscriptionBuffer = 16

// SubscriptionUseCase exposes the session and tally change streams. Bus
// delivery is at-least-once and unordered, so on every event the current
// state is re-read from the repository and pushed; consumers treat each
// element as a full snapshot.
type SubscriptionUseCase struct {
	Bus      ports.EventSubscriber
	Sessions ports.SessionRepository
	Votes    ports.VoteRepository
	Logger   *slog.Logger
}

// SubscribeSession streams session snapshots until ctx is cancelled, then
// closes the channel. The current state is delivered immediately; a session
// deleted mid-stream simply stops producing.
func (uc SubscriptionUseCase) SubscribeSession(ctx context.Context, sessionID string) (<-chan entities.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	wake, err := uc.subscribeWake(ctx, ports.TopicSessionUpdated, sessionID)
	if err != nil {
		return nil, err
	}

	out := make(chan entities.Session, subscriptionBuffer)
	out <- session
	// The goroutine owns out: nothing else may send on or close it.
	go func() {
		defer close(out)
		logger := application.ResolveLogger(uc.Logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				current, err := uc.Sessions.GetSession(ctx, sessionID)
				if errors.Is(err, domainerrors.ErrSessionNotFound) {
					continue
				}
				if err != nil {
					logger.Warn("session snapshot read failed",
						"event", "consensus_subscription_read_failed",
						"module", "meetup-live/consensus-engine",
						"layer", "application",
						"session_id", sessionID,
						"error", err.Error(),
					)
					continue
				}
				push(ctx, out, current, logger)
			}
		}
	}()
	return out, nil
}

// SubscribeTallies streams the full per-candidate tally map on every tally
// change for the session, closing the channel when ctx is cancelled.
func (uc SubscriptionUseCase) SubscribeTallies(ctx context.Context, sessionID string) (<-chan map[string]entities.Tally, error) {
	sessionID = strings.TrimSpace(sessionID)
	if _, err := uc.Sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	initial, err := uc.Votes.ListTallies(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	wake, err := uc.subscribeWake(ctx, ports.TopicTallyUpdated, sessionID)
	if err != nil {
		return nil, err
	}

	out := make(chan map[string]entities.Tally, subscriptionBuffer)
	out <- initial
	go func() {
		defer close(out)
		logger := application.ResolveLogger(uc.Logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				tallies, err := uc.Votes.ListTallies(ctx, sessionID)
				if err != nil {
					logger.Warn("tally snapshot read failed",
						"event", "consensus_subscription_read_failed",
						"module", "meetup-live/consensus-engine",
						"layer", "application",
						"session_id", sessionID,
						"error", err.Error(),
					)
					continue
				}
				push(ctx, out, tallies, logger)
			}
		}
	}()
	return out, nil
}

// subscribeWake registers a bus handler that only signals "something
// changed" for the session. Bursts coalesce into one wake-up, and the bus
// handler never touches the out channel, so cancellation cannot race a
// send against close.
func (uc SubscriptionUseCase) subscribeWake(ctx context.Context, topic string, sessionID string) (<-chan struct{}, error) {
	wake := make(chan struct{}, 1)
	err := uc.Bus.Subscribe(ctx, topic, func(_ context.Context, event ports.EventEnvelope) error {
		if event.SessionID != sessionID {
			return nil
		}
		select {
		case wake <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wake, nil
}

// push drops the snapshot when the consumer is not keeping up; the next
// event carries the fresher state anyway.
func push[T any](ctx context.Context, out chan T, value T, logger *slog.Logger) {
	select {
	case out <- value:
	case <-ctx.Done():
	default:
		logger.Warn("subscriber lagging, snapshot dropped",
			"event", "consensus_subscription_drop",
			"module", "meetup-live/consensus-engine",
			"layer", "application",
		)
	}
}
