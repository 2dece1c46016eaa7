package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type voteKey struct {
	sessionID   string
	voterID     string
	candidateID string
}

type tallyKey struct {
	sessionID   string
	candidateID string
}

// Store is the in-memory adapter used by tests and single-process wiring.
// The mutex is the transaction boundary: every ReconcileVote and
// UpdateSession runs its whole read-modify-write cycle under it.
type Store struct {
	mu sync.RWMutex

	sessions map[string]entities.Session
	votes    map[voteKey]entities.Vote
	tallies  map[tallyKey]entities.Tally
	outbox   map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]entities.Session),
		votes:    make(map[voteKey]entities.Vote),
		tallies:  make(map[tallyKey]entities.Tally),
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *Store) SaveSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[strings.TrimSpace(session.SessionID)] = cloneSession(session)
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *Store) UpdateSession(
	_ context.Context,
	sessionID string,
	mutate func(*entities.Session) error,
) (entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	working := cloneSession(session)
	if err := mutate(&working); err != nil {
		return entities.Session{}, err
	}
	s.sessions[strings.TrimSpace(sessionID)] = cloneSession(working)
	return working, nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[strings.TrimSpace(sessionID)]; !ok {
		return domainerrors.ErrSessionNotFound
	}
	delete(s.sessions, strings.TrimSpace(sessionID))
	return nil
}

func (s *Store) ReconcileVote(_ context.Context, vote entities.Vote) (entities.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vk := voteKey{vote.SessionID, vote.VoterID, vote.CandidateID}
	tk := tallyKey{vote.SessionID, vote.CandidateID}

	var prior *entities.Decision
	if existing, ok := s.votes[vk]; ok {
		decision := existing.Decision
		prior = &decision
	}

	tally := s.tallies[tk]
	if !tally.Consistent() {
		tally = entities.RebuildTally(vote.SessionID, vote.CandidateID, s.sessionVotesLocked(vote.SessionID), vote.SubmittedAt)
	}
	tally = entities.ReconcileTally(tally, vote, prior)

	s.votes[vk] = vote
	s.tallies[tk] = cloneTally(tally)
	return cloneTally(tally), nil
}

func (s *Store) GetTally(_ context.Context, sessionID string, candidateID string) (entities.Tally, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tally, ok := s.tallies[tallyKey{strings.TrimSpace(sessionID), strings.TrimSpace(candidateID)}]
	if !ok {
		return entities.Tally{}, false, nil
	}
	return cloneTally(tally), true, nil
}

func (s *Store) ListTallies(_ context.Context, sessionID string) (map[string]entities.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID = strings.TrimSpace(sessionID)
	tallies := make(map[string]entities.Tally)
	for key, tally := range s.tallies {
		if key.sessionID == sessionID {
			tallies[key.candidateID] = cloneTally(tally)
		}
	}
	return tallies, nil
}

func (s *Store) PurgeSessionData(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID = strings.TrimSpace(sessionID)
	for key := range s.votes {
		if key.sessionID == sessionID {
			delete(s.votes, key)
		}
	}
	for key := range s.tallies {
		if key.sessionID == sessionID {
			delete(s.tallies, key)
		}
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[event.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:  event.EventID,
			EventType: event.EventType,
			Payload:   payload,
			CreatedAt: event.OccurredAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if !record.published {
			pending = append(pending, record.message)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].OutboxID < pending[j].OutboxID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) sessionVotesLocked(sessionID string) []entities.Vote {
	votes := make([]entities.Vote, 0)
	for key, vote := range s.votes {
		if key.sessionID == sessionID {
			votes = append(votes, vote)
		}
	}
	return votes
}

func cloneSession(session entities.Session) entities.Session {
	clone := session
	clone.Queue = append([]entities.CandidateRef(nil), session.Queue...)
	if session.CurrentBanner != nil {
		banner := *session.CurrentBanner
		clone.CurrentBanner = &banner
	}
	if session.LastBannerUpdateAt != nil {
		at := *session.LastBannerUpdateAt
		clone.LastBannerUpdateAt = &at
	}
	if session.FinalizedCandidate != nil {
		candidate := *session.FinalizedCandidate
		clone.FinalizedCandidate = &candidate
	}
	if session.FinalizedAt != nil {
		at := *session.FinalizedAt
		clone.FinalizedAt = &at
	}
	return clone
}

func cloneTally(tally entities.Tally) entities.Tally {
	clone := tally
	clone.Viewers = append([]string(nil), tally.Viewers...)
	return clone
}
