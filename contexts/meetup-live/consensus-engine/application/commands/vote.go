package commands

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	application "overlap/contexts/meetup-live/consensus-engine/application"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

const (
	defaultReconcileAttempts = 3
	reconcileBackoffBase     = 25 * time.Millisecond
)

// SubmitVoteCommand is the write-model input for one swipe.
type SubmitVoteCommand struct {
	SessionID   string
	VoterID     string
	CandidateID string
	Decision    entities.Decision
}

// SubmitVoteResult carries the post-write tally plus whatever the vote
// triggered downstream: a freshly published banner and/or a cursor advance.
type SubmitVoteResult struct {
	Tally    entities.Tally
	Banner   *entities.Banner
	Advanced bool
}

// VoteUseCase reconciles votes against the tally store transactionally and
// drives the banner/auto-advance follow-ups after each accepted vote.
type VoteUseCase struct {
	Sessions    ports.SessionRepository
	Votes       ports.VoteRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Controller  SessionUseCase
	MaxAttempts int
	Logger      *slog.Logger
}

// SubmitVote records the voter's latest decision on a candidate. The write
// is a delta-based upsert: inside one store transaction the voter's prior
// decision is removed from the tally before the new one is counted, so
// resubmission is idempotent and a vote change moves exactly one count.
// Transaction conflicts are retried with jittered backoff before being
// surfaced as ErrBusy.
func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	if sessionID == "" || voterID == "" || candidateID == "" || !cmd.Decision.Valid() {
		logger.Warn("vote submit validation failed",
			"event", "consensus_vote_validation_failed",
			"module", "meetup-live/consensus-engine",
			"layer", "application",
			"session_id", sessionID,
			"voter_id", voterID,
		)
		return SubmitVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	// Stragglers behind the cursor may still vote on a finished session;
	// only a finalized winner closes the ledger.
	if session.FinalizedCandidate != nil {
		return SubmitVoteResult{}, domainerrors.ErrSessionFinished
	}
	if _, ok := session.CandidateAt(candidateID); !ok {
		return SubmitVoteResult{}, domainerrors.ErrCandidateNotInQueue
	}

	vote := entities.Vote{
		SessionID:   sessionID,
		VoterID:     voterID,
		CandidateID: candidateID,
		Decision:    cmd.Decision,
		SubmittedAt: uc.now(),
	}
	tally, err := uc.reconcileWithRetry(ctx, vote)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if err := uc.appendTallyEvent(ctx, tally, vote.SubmittedAt); err != nil {
		return SubmitVoteResult{}, err
	}
	logger.Info("vote recorded",
		"event", "consensus_vote_recorded",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", sessionID,
		"voter_id", voterID,
		"candidate_id", candidateID,
		"decision", string(cmd.Decision),
		"likes", tally.Likes,
		"passes", tally.Passes,
		"viewers", tally.ViewerCount(),
	)

	result := SubmitVoteResult{Tally: tally}

	// Banner evaluation and auto-advance are advisory follow-ups: the vote
	// itself is durable, and a concurrently reset session must not fail it.
	banner, err := uc.Controller.OnVoteRecorded(ctx, sessionID)
	switch {
	case errors.Is(err, domainerrors.ErrSessionNotFound):
		logger.Warn("banner evaluation skipped, session gone",
			"event", "consensus_banner_eval_skipped",
			"module", "meetup-live/consensus-engine",
			"layer", "application",
			"session_id", sessionID,
		)
		return result, nil
	case err != nil:
		return SubmitVoteResult{}, err
	}
	result.Banner = banner

	advanced, err := uc.Controller.CheckAutoAdvance(ctx, sessionID)
	switch {
	case errors.Is(err, domainerrors.ErrSessionNotFound):
		logger.Warn("auto advance skipped, session gone",
			"event", "consensus_auto_advance_skipped",
			"module", "meetup-live/consensus-engine",
			"layer", "application",
			"session_id", sessionID,
		)
		return result, nil
	case err != nil:
		return SubmitVoteResult{}, err
	}
	result.Advanced = advanced
	return result, nil
}

func (uc VoteUseCase) reconcileWithRetry(ctx context.Context, vote entities.Vote) (entities.Tally, error) {
	logger := application.ResolveLogger(uc.Logger)
	attempts := uc.MaxAttempts
	if attempts <= 0 {
		attempts = defaultReconcileAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		tally, err := uc.Votes.ReconcileVote(ctx, vote)
		if err == nil {
			return tally, nil
		}
		if !errors.Is(err, domainerrors.ErrConflict) {
			return entities.Tally{}, err
		}
		lastErr = err
		logger.Warn("vote reconcile conflict, retrying",
			"event", "consensus_vote_reconcile_conflict",
			"module", "meetup-live/consensus-engine",
			"layer", "application",
			"session_id", vote.SessionID,
			"candidate_id", vote.CandidateID,
			"attempt", attempt+1,
		)
		backoff := reconcileBackoffBase<<attempt + time.Duration(rand.Intn(20))*time.Millisecond
		select {
		case <-ctx.Done():
			return entities.Tally{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	logger.Error("vote reconcile exhausted retries",
		"event", "consensus_vote_reconcile_busy",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", vote.SessionID,
		"candidate_id", vote.CandidateID,
		"error", lastErr.Error(),
	)
	return entities.Tally{}, domainerrors.ErrBusy
}

func (uc VoteUseCase) appendTallyEvent(ctx context.Context, tally entities.Tally, occurredAt time.Time) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEngineEnvelope(eventID, ports.TopicTallyUpdated, tally.SessionID, occurredAt, map[string]any{
		"session_id":   tally.SessionID,
		"candidate_id": tally.CandidateID,
		"likes":        tally.Likes,
		"passes":       tally.Passes,
		"viewers":      tally.ViewerCount(),
		"occurred_at":  occurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
