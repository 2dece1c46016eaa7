package entities

import "time"

// CandidateRef is one activity/place in a session's voting queue. Ordering
// and discovery are caller concerns; the engine treats the queue as opaque
// ordered data.
type CandidateRef struct {
	CandidateID string
	Name        string
	Category    string
}

type BannerType string

const (
	BannerTypeSoft          BannerType = "soft"
	BannerTypeStrong        BannerType = "strong"
	BannerTypeNearUnanimous BannerType = "near-unanimous"
	BannerTypeGreatMatch    BannerType = "great-match"
	BannerTypeUnanimous     BannerType = "unanimous"
)

// OverridesDebounce reports whether a banner of this type is published
// immediately, bypassing the flicker gate.
func (t BannerType) OverridesDebounce() bool {
	switch t {
	case BannerTypeUnanimous, BannerTypeGreatMatch, BannerTypeNearUnanimous:
		return true
	default:
		return false
	}
}

// Banner is the single currently-broadcast recommendation signal for the
// group. It is ephemeral: replaced or cleared, never persisted on its own
// beyond Session.CurrentBanner.
type Banner struct {
	CandidateID      string
	Type             BannerType
	Score            float64
	Likes            int
	Viewers          int
	ParticipantCount int
	ComputedAt       time.Time
}

// Session is one meetup group decision run. Mutated only through the
// session use case; the queue is immutable for the session's lifetime.
type Session struct {
	SessionID          string
	ParticipantCount   int
	Queue              []CandidateRef
	Cursor             int
	CurrentBanner      *Banner
	LastBannerUpdateAt *time.Time
	FinalizedCandidate *CandidateRef
	FinalizedAt        *time.Time
	StartedAt          time.Time
	Finished           bool
}

// Active reports whether the session still accepts state transitions.
func (s Session) Active() bool {
	return !s.Finished && s.FinalizedCandidate == nil
}

// CandidateAt returns the queue entry with the given ID.
func (s Session) CandidateAt(candidateID string) (CandidateRef, bool) {
	for _, candidate := range s.Queue {
		if candidate.CandidateID == candidateID {
			return candidate, true
		}
	}
	return CandidateRef{}, false
}

// ActiveCandidate returns the queue entry under the exposure cursor.
func (s Session) ActiveCandidate() (CandidateRef, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return CandidateRef{}, false
	}
	return s.Queue[s.Cursor], true
}
