package ports

import (
	"context"
	"encoding/json"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
)

// Event topics the engine publishes on. Subscribers must tolerate
// duplicates and reordering; the stored session is the authority.
const (
	TopicSessionUpdated = "consensus.session.updated"
	TopicTallyUpdated   = "consensus.tally.updated"
)

// SessionRepository owns Session records. UpdateSession runs the mutation
// inside a single store transaction over the session row so concurrent
// publishers cannot interleave read-modify-write cycles.
type SessionRepository interface {
	SaveSession(ctx context.Context, session entities.Session) error
	GetSession(ctx context.Context, sessionID string) (entities.Session, error)
	UpdateSession(ctx context.Context, sessionID string, mutate func(*entities.Session) error) (entities.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// VoteRepository owns Vote rows and the derived Tally rows. ReconcileVote
// must read the voter's prior decision and the candidate tally, apply
// entities.ReconcileTally, and write both atomically; implementations
// return domain ErrConflict when a concurrent writer wins the race.
type VoteRepository interface {
	ReconcileVote(ctx context.Context, vote entities.Vote) (entities.Tally, error)
	GetTally(ctx context.Context, sessionID string, candidateID string) (entities.Tally, bool, error)
	ListTallies(ctx context.Context, sessionID string) (map[string]entities.Tally, error)
	PurgeSessionData(ctx context.Context, sessionID string) error
}

// EventEnvelope is the wire shape relayed from the outbox to the bus.
type EventEnvelope struct {
	EventID       string
	EventType     string
	SessionID     string
	OccurredAt    time.Time
	SchemaVersion int
	Data          json.RawMessage
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, handler func(context.Context, EventEnvelope) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
