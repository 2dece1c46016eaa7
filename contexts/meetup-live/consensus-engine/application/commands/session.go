package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "overlap/contexts/meetup-live/consensus-engine/application"
	"overlap/contexts/meetup-live/consensus-engine/domain/consensus"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/domain/scoring"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

const (
	// Minimum quiet period between strong/soft banner replacements.
	bannerDebounceWindow = 15 * time.Second
	// Minimum Wilson-score improvement a strong/soft banner needs to
	// replace the current one.
	bannerMinImprovement = 0.03
)

// InitSessionCommand creates a fresh decision run for a meetup group. The
// caller supplies the candidate ordering; the engine only caps the queue.
type InitSessionCommand struct {
	SessionID        string
	ParticipantCount int
	Candidates       []entities.CandidateRef
}

// RestartSessionCommand resets a session and re-initializes it with a new
// candidate list. ParticipantCount nil keeps the last known value.
type RestartSessionCommand struct {
	SessionID        string
	Candidates       []entities.CandidateRef
	ParticipantCount *int
}

// SessionUseCase owns the session state machine: init, banner publication
// with the debounce gate, exposure-based auto-advance, finalize, reset and
// restart.
type SessionUseCase struct {
	Sessions ports.SessionRepository
	Votes    ports.VoteRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc SessionUseCase) InitSession(ctx context.Context, cmd InitSessionCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.ParticipantCount <= 0 || len(cmd.Candidates) == 0 {
		return entities.Session{}, domainerrors.ErrInvalidSessionInput
	}
	for _, candidate := range cmd.Candidates {
		if strings.TrimSpace(candidate.CandidateID) == "" {
			return entities.Session{}, domainerrors.ErrInvalidSessionInput
		}
	}

	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		generated, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Session{}, err
		}
		sessionID = generated
	}

	// Re-initializing an existing ID starts a fresh run; votes and tallies
	// from the prior run must not leak into the new queue's evaluation.
	if _, err := uc.Sessions.GetSession(ctx, sessionID); err == nil {
		if err := uc.Votes.PurgeSessionData(ctx, sessionID); err != nil {
			return entities.Session{}, err
		}
	} else if !errors.Is(err, domainerrors.ErrSessionNotFound) {
		return entities.Session{}, err
	}

	now := uc.now()
	queue := cmd.Candidates
	if cap := scoring.QueueCap(cmd.ParticipantCount); len(queue) > cap {
		queue = queue[:cap]
	}
	session := entities.Session{
		SessionID:        sessionID,
		ParticipantCount: cmd.ParticipantCount,
		Queue:            append([]entities.CandidateRef(nil), queue...),
		Cursor:           0,
		StartedAt:        now,
	}
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.Session{}, err
	}
	if err := uc.appendSessionEvent(ctx, session, now, map[string]any{"reason": "session_initialized"}); err != nil {
		return entities.Session{}, err
	}

	logger.Info("session initialized",
		"event", "consensus_session_initialized",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", session.SessionID,
		"participant_count", session.ParticipantCount,
		"queue_length", len(session.Queue),
	)
	return session, nil
}

// OnVoteRecorded re-evaluates every tally and, when the evaluator produces
// a banner that clears the debounce/override gate, publishes it on the
// session. Returns the published banner, or nil when nothing changed.
func (uc SessionUseCase) OnVoteRecorded(ctx context.Context, sessionID string) (*entities.Banner, error) {
	logger := application.ResolveLogger(uc.Logger)
	tallies, err := uc.Votes.ListTallies(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var published *entities.Banner
	session, err := uc.Sessions.UpdateSession(ctx, sessionID, func(s *entities.Session) error {
		banner := consensus.Evaluate(s.ParticipantCount, tallies, now)
		if banner == nil {
			return nil
		}
		if !banner.Type.OverridesDebounce() {
			if s.LastBannerUpdateAt != nil && now.Sub(*s.LastBannerUpdateAt) <= bannerDebounceWindow {
				return nil
			}
			if s.CurrentBanner != nil && banner.Score-s.CurrentBanner.Score < bannerMinImprovement {
				return nil
			}
		}
		s.CurrentBanner = banner
		s.LastBannerUpdateAt = &now
		published = banner
		return nil
	})
	if err != nil {
		return nil, err
	}
	if published == nil {
		return nil, nil
	}

	if err := uc.appendSessionEvent(ctx, session, now, map[string]any{
		"reason":       "banner_published",
		"banner_type":  string(published.Type),
		"banner_score": published.Score,
		"candidate_id": published.CandidateID,
	}); err != nil {
		return nil, err
	}
	logger.Info("banner published",
		"event", "consensus_banner_published",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", sessionID,
		"candidate_id", published.CandidateID,
		"banner_type", string(published.Type),
		"banner_score", published.Score,
	)
	return published, nil
}

// CheckAutoAdvance moves the cursor past the active candidate once it has
// reached the minimum exposure count, marking the session finished when the
// queue is exhausted. Safe to call after every vote: repeat calls for the
// same exposure milestone are no-ops.
func (uc SessionUseCase) CheckAutoAdvance(ctx context.Context, sessionID string) (bool, error) {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	active, ok := session.ActiveCandidate()
	if session.Finished || !ok {
		return false, nil
	}
	tally, found, err := uc.Votes.GetTally(ctx, sessionID, active.CandidateID)
	if err != nil {
		return false, err
	}
	if !found || tally.ViewerCount() < scoring.MinExposures(session.ParticipantCount) {
		return false, nil
	}

	observedCursor := session.Cursor
	now := uc.now()
	advanced := false
	updated, err := uc.Sessions.UpdateSession(ctx, sessionID, func(s *entities.Session) error {
		// Another caller may have advanced already; the exposure check was
		// made for observedCursor only.
		if s.Finished || s.Cursor != observedCursor {
			return nil
		}
		s.Cursor++
		if s.Cursor >= len(s.Queue) {
			s.Finished = true
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !advanced {
		return false, nil
	}

	if err := uc.appendSessionEvent(ctx, updated, now, map[string]any{
		"reason": "cursor_advanced",
		"cursor": updated.Cursor,
	}); err != nil {
		return false, err
	}
	logger.Info("cursor advanced",
		"event", "consensus_cursor_advanced",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", sessionID,
		"cursor", updated.Cursor,
		"finished", updated.Finished,
	)
	return true, nil
}

// Finalize locks in a winner. Valid from the active state only.
func (uc SessionUseCase) Finalize(ctx context.Context, sessionID string, candidateID string) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	session, err := uc.Sessions.UpdateSession(ctx, sessionID, func(s *entities.Session) error {
		if s.Finished || s.FinalizedCandidate != nil {
			return domainerrors.ErrSessionFinished
		}
		candidate, ok := s.CandidateAt(strings.TrimSpace(candidateID))
		if !ok {
			return domainerrors.ErrCandidateNotInQueue
		}
		s.FinalizedCandidate = &candidate
		s.FinalizedAt = &now
		s.Finished = true
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	if err := uc.appendSessionEvent(ctx, session, now, map[string]any{
		"reason":       "session_finalized",
		"candidate_id": strings.TrimSpace(candidateID),
	}); err != nil {
		return entities.Session{}, err
	}
	logger.Info("session finalized",
		"event", "consensus_session_finalized",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", sessionID,
		"candidate_id", strings.TrimSpace(candidateID),
	)
	return session, nil
}

// ResetSession deletes the session together with all of its votes and
// tallies, returning the meetup to the pre-init state.
func (uc SessionUseCase) ResetSession(ctx context.Context, sessionID string) error {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.Votes.PurgeSessionData(ctx, sessionID); err != nil {
		return err
	}
	if err := uc.Sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if err := uc.appendSessionEvent(ctx, session, uc.now(), map[string]any{"reason": "session_reset"}); err != nil {
		return err
	}
	logger.Info("session reset",
		"event", "consensus_session_reset",
		"module", "meetup-live/consensus-engine",
		"layer", "application",
		"session_id", sessionID,
	)
	return nil
}

// RestartSession is ResetSession followed by InitSession with a fresh
// candidate list.
func (uc SessionUseCase) RestartSession(ctx context.Context, cmd RestartSessionCommand) (entities.Session, error) {
	previous, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(cmd.SessionID))
	if err != nil {
		return entities.Session{}, err
	}
	participantCount := previous.ParticipantCount
	if cmd.ParticipantCount != nil {
		participantCount = *cmd.ParticipantCount
	}
	if err := uc.ResetSession(ctx, previous.SessionID); err != nil {
		return entities.Session{}, err
	}
	return uc.InitSession(ctx, InitSessionCommand{
		SessionID:        previous.SessionID,
		ParticipantCount: participantCount,
		Candidates:       cmd.Candidates,
	})
}

func (uc SessionUseCase) appendSessionEvent(
	ctx context.Context,
	session entities.Session,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"session_id":        session.SessionID,
		"participant_count": session.ParticipantCount,
		"cursor":            session.Cursor,
		"finished":          session.Finished,
		"occurred_at":       occurredAt.UTC().Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	envelope, err := newEngineEnvelope(eventID, ports.TopicSessionUpdated, session.SessionID, occurredAt, payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc SessionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
