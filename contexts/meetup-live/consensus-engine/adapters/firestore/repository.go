// Package firestoreadapter persists the engine in Cloud Firestore, the
// store the Overlap app runs on in production. Firestore transactions give
// the read-modify-write atomicity the reconcile path requires; contended
// commits surface as Aborted and map to the domain conflict error.
package firestoreadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	sessionsCollection = "consensusSessions"
	votesCollection    = "votes"
	talliesCollection  = "tallies"
	outboxCollection   = "consensusOutbox"
)

type Repository struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewRepository(client *firestore.Client, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		client: client,
		logger: logger,
	}
}

func (r *Repository) sessionRef(sessionID string) *firestore.DocumentRef {
	return r.client.Collection(sessionsCollection).Doc(strings.TrimSpace(sessionID))
}

func (r *Repository) voteRef(vote entities.Vote) *firestore.DocumentRef {
	return r.sessionRef(vote.SessionID).Collection(votesCollection).Doc(vote.VoterID + "_" + vote.CandidateID)
}

func (r *Repository) tallyRef(sessionID string, candidateID string) *firestore.DocumentRef {
	return r.sessionRef(sessionID).Collection(talliesCollection).Doc(strings.TrimSpace(candidateID))
}

func (r *Repository) SaveSession(ctx context.Context, session entities.Session) error {
	_, err := r.sessionRef(session.SessionID).Set(ctx, sessionDocFromEntity(session))
	if err != nil {
		return r.logError("consensus_firestore_save_session_failed", err, "session_id", session.SessionID)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	snap, err := r.sessionRef(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, r.logError("consensus_firestore_get_session_failed", err, "session_id", sessionID)
	}
	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return entities.Session{}, err
	}
	return doc.toEntity(strings.TrimSpace(sessionID)), nil
}

func (r *Repository) UpdateSession(
	ctx context.Context,
	sessionID string,
	mutate func(*entities.Session) error,
) (entities.Session, error) {
	ref := r.sessionRef(sessionID)
	var updated entities.Session
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}
		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		session := doc.toEntity(strings.TrimSpace(sessionID))
		if err := mutate(&session); err != nil {
			return err
		}
		updated = session
		return tx.Set(ref, sessionDocFromEntity(session))
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) ||
			errors.Is(err, domainerrors.ErrSessionFinished) ||
			errors.Is(err, domainerrors.ErrCandidateNotInQueue) {
			return entities.Session{}, err
		}
		if status.Code(err) == codes.Aborted {
			return entities.Session{}, domainerrors.ErrConflict
		}
		return entities.Session{}, r.logError("consensus_firestore_update_session_failed", err, "session_id", sessionID)
	}
	return updated, nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	ref := r.sessionRef(sessionID)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return domainerrors.ErrSessionNotFound
		}
		return r.logError("consensus_firestore_delete_session_failed", err, "session_id", sessionID)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return r.logError("consensus_firestore_delete_session_failed", err, "session_id", sessionID)
	}
	return nil
}

// ReconcileVote reads the voter's prior decision and the candidate tally
// inside one Firestore transaction, applies the delta, and writes both.
// All reads must happen before writes in a Firestore transaction, so the
// order here is fixed.
func (r *Repository) ReconcileVote(ctx context.Context, vote entities.Vote) (entities.Tally, error) {
	voteRef := r.voteRef(vote)
	tallyRef := r.tallyRef(vote.SessionID, vote.CandidateID)

	var reconciled entities.Tally
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var prior *entities.Decision
		voteSnap, err := tx.Get(voteRef)
		switch {
		case err == nil:
			var doc voteDoc
			if err := voteSnap.DataTo(&doc); err != nil {
				return err
			}
			decision := entities.Decision(doc.Decision)
			prior = &decision
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}

		tally := entities.Tally{SessionID: vote.SessionID, CandidateID: vote.CandidateID}
		tallySnap, err := tx.Get(tallyRef)
		switch {
		case err == nil:
			var doc tallyDoc
			if err := tallySnap.DataTo(&doc); err != nil {
				return err
			}
			tally = doc.toEntity(vote.SessionID, vote.CandidateID)
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}
		if !tally.Consistent() {
			r.logger.Error("tally invariant violated, rebuilding from vote ledger",
				"event", "consensus_firestore_tally_invariant_violated",
				"module", "meetup-live/consensus-engine",
				"layer", "adapter",
				"session_id", vote.SessionID,
				"candidate_id", vote.CandidateID,
			)
			ledger, err := r.candidateVotesTx(tx, vote.SessionID, vote.CandidateID)
			if err != nil {
				return err
			}
			tally = entities.RebuildTally(vote.SessionID, vote.CandidateID, ledger, vote.SubmittedAt)
		}

		tally = entities.ReconcileTally(tally, vote, prior)
		reconciled = tally

		if err := tx.Set(voteRef, voteDocFromEntity(vote)); err != nil {
			return err
		}
		return tx.Set(tallyRef, tallyDocFromEntity(tally))
	})
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return entities.Tally{}, domainerrors.ErrConflict
		}
		return entities.Tally{}, r.logError("consensus_firestore_reconcile_vote_failed", err,
			"session_id", vote.SessionID,
			"candidate_id", vote.CandidateID,
		)
	}
	return reconciled, nil
}

// candidateVotesTx reads a candidate's ledger rows inside the enclosing
// transaction. Used only on the invariant-repair path.
func (r *Repository) candidateVotesTx(tx *firestore.Transaction, sessionID string, candidateID string) ([]entities.Vote, error) {
	iter := tx.Documents(r.sessionRef(sessionID).Collection(votesCollection).Where("candidateId", "==", candidateID))
	defer iter.Stop()

	votes := make([]entities.Vote, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc voteDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		votes = append(votes, doc.toEntity(sessionID))
	}
	return votes, nil
}

func (r *Repository) GetTally(ctx context.Context, sessionID string, candidateID string) (entities.Tally, bool, error) {
	snap, err := r.tallyRef(sessionID, candidateID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entities.Tally{}, false, nil
		}
		return entities.Tally{}, false, r.logError("consensus_firestore_get_tally_failed", err,
			"session_id", sessionID, "candidate_id", candidateID)
	}
	var doc tallyDoc
	if err := snap.DataTo(&doc); err != nil {
		return entities.Tally{}, false, err
	}
	return doc.toEntity(strings.TrimSpace(sessionID), strings.TrimSpace(candidateID)), true, nil
}

func (r *Repository) ListTallies(ctx context.Context, sessionID string) (map[string]entities.Tally, error) {
	iter := r.sessionRef(sessionID).Collection(talliesCollection).Documents(ctx)
	defer iter.Stop()

	tallies := make(map[string]entities.Tally)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, r.logError("consensus_firestore_list_tallies_failed", err, "session_id", sessionID)
		}
		var doc tallyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		tallies[snap.Ref.ID] = doc.toEntity(strings.TrimSpace(sessionID), snap.Ref.ID)
	}
	return tallies, nil
}

func (r *Repository) PurgeSessionData(ctx context.Context, sessionID string) error {
	for _, collection := range []string{votesCollection, talliesCollection} {
		if err := r.deleteCollection(ctx, r.sessionRef(sessionID).Collection(collection)); err != nil {
			return r.logError("consensus_firestore_purge_session_failed", err, "session_id", sessionID)
		}
	}
	return nil
}

func (r *Repository) deleteCollection(ctx context.Context, collection *firestore.CollectionRef) error {
	iter := collection.Documents(ctx)
	defer iter.Stop()

	writer := r.client.BulkWriter(ctx)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := writer.Delete(snap.Ref); err != nil {
			return err
		}
	}
	writer.End()
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	doc, err := outboxDocFromEnvelope(event)
	if err != nil {
		return err
	}
	if _, err := r.client.Collection(outboxCollection).Doc(event.EventID).Set(ctx, doc); err != nil {
		return r.logError("consensus_firestore_append_outbox_failed", err, "event_id", event.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	iter := r.client.Collection(outboxCollection).
		Where("published", "==", false).
		OrderBy("createdAt", firestore.Asc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	pending := make([]ports.OutboxMessage, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, r.logError("consensus_firestore_list_outbox_failed", err)
		}
		var doc outboxDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		pending = append(pending, ports.OutboxMessage{
			OutboxID:  snap.Ref.ID,
			EventType: doc.EventType,
			Payload:   []byte(doc.Payload),
			CreatedAt: doc.CreatedAt,
		})
	}
	return pending, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	_, err := r.client.Collection(outboxCollection).Doc(outboxID).Update(ctx, []firestore.Update{
		{Path: "published", Value: true},
		{Path: "publishedAt", Value: publishedAt},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return r.logError("consensus_firestore_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "meetup-live/consensus-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("consensus firestore operation failed", fields...)
	return err
}

// SystemClock satisfies the clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies the ID port with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
