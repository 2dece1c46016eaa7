package queries

import (
	"context"
	"sort"
	"strings"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	"overlap/contexts/meetup-live/consensus-engine/domain/scoring"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

// Standing is one row of the end-of-session ranking: every candidate with
// at least one viewer, ordered by Wilson lower bound.
type Standing struct {
	Candidate  entities.CandidateRef
	Likes      int
	Passes     int
	Viewers    int
	Score      float64
	Percentage float64
}

type SessionUseCase struct {
	Sessions ports.SessionRepository
	Votes    ports.VoteRepository
}

func (uc SessionUseCase) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	return uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
}

func (uc SessionUseCase) ListTallies(ctx context.Context, sessionID string) (map[string]entities.Tally, error) {
	return uc.Votes.ListTallies(ctx, strings.TrimSpace(sessionID))
}

// FinalStandings ranks all voted-on candidates by conservative approval,
// for the results screen once a session winds down.
func (uc SessionUseCase) FinalStandings(ctx context.Context, sessionID string) ([]Standing, error) {
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	tallies, err := uc.Votes.ListTallies(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}

	standings := make([]Standing, 0, len(tallies))
	for candidateID, tally := range tallies {
		if tally.ViewerCount() == 0 {
			continue
		}
		candidate, ok := session.CandidateAt(candidateID)
		if !ok {
			candidate = entities.CandidateRef{CandidateID: candidateID}
		}
		total := tally.Likes + tally.Passes
		standing := Standing{
			Candidate: candidate,
			Likes:     tally.Likes,
			Passes:    tally.Passes,
			Viewers:   tally.ViewerCount(),
		}
		if total > 0 {
			standing.Score = scoring.WilsonLowerBound(tally.Likes, total, 0.90)
			standing.Percentage = float64(tally.Likes) / float64(total) * 100
		}
		standings = append(standings, standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score == standings[j].Score {
			return standings[i].Candidate.CandidateID < standings[j].Candidate.CandidateID
		}
		return standings[i].Score > standings[j].Score
	})
	return standings, nil
}

// ShouldReset is the advisory predicate the caller consults before reusing
// a session for a new browse category: a finished session, or a category
// switch after swiping has begun, warrants a restart.
func ShouldReset(session entities.Session, newCategory string, currentCategory string) bool {
	if session.Finished {
		return true
	}
	return !strings.EqualFold(strings.TrimSpace(newCategory), strings.TrimSpace(currentCategory)) && session.Cursor > 0
}
