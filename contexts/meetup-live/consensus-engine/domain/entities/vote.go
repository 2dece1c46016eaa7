package entities

import (
	"sort"
	"time"
)

type Decision string

const (
	DecisionLike Decision = "like"
	DecisionPass Decision = "pass"
)

func (d Decision) Valid() bool {
	return d == DecisionLike || d == DecisionPass
}

// Vote is the authoritative record of one voter's latest decision on one
// candidate. Keyed by (session, voter, candidate); resubmission replaces the
// prior row, it never adds a second count.
type Vote struct {
	SessionID   string
	VoterID     string
	CandidateID string
	Decision    Decision
	SubmittedAt time.Time
}

// Tally is the derived aggregate for one candidate. It is a cache over the
// vote ledger and may only be mutated through ReconcileTally inside a store
// transaction.
type Tally struct {
	SessionID   string
	CandidateID string
	Likes       int
	Passes      int
	Viewers     []string
	UpdatedAt   time.Time
}

func (t Tally) ViewerCount() int {
	return len(t.Viewers)
}

func (t Tally) HasViewer(voterID string) bool {
	for _, viewer := range t.Viewers {
		if viewer == voterID {
			return true
		}
	}
	return false
}

// Consistent reports the viewer invariant: every counted vote belongs to
// exactly one distinct viewer.
func (t Tally) Consistent() bool {
	return len(t.Viewers) == t.Likes+t.Passes
}

// ReconcileTally applies a vote to a tally delta-wise: the effect of the
// voter's prior decision, if any, is removed before the new decision is
// counted. Calling it twice with the same prior/next pair is a no-op on the
// counts, which is what makes vote resubmission and vote changes safe.
func ReconcileTally(tally Tally, vote Vote, prior *Decision) Tally {
	if prior != nil {
		switch *prior {
		case DecisionLike:
			tally.Likes--
		case DecisionPass:
			tally.Passes--
		}
	}
	switch vote.Decision {
	case DecisionLike:
		tally.Likes++
	case DecisionPass:
		tally.Passes++
	}
	if !tally.HasViewer(vote.VoterID) {
		tally.Viewers = append(tally.Viewers, vote.VoterID)
		sort.Strings(tally.Viewers)
	}
	tally.SessionID = vote.SessionID
	tally.CandidateID = vote.CandidateID
	tally.UpdatedAt = vote.SubmittedAt
	return tally
}

// RebuildTally recomputes a candidate's tally from its vote ledger rows.
// Used when a stored tally fails the viewer invariant on read.
func RebuildTally(sessionID string, candidateID string, votes []Vote, now time.Time) Tally {
	tally := Tally{
		SessionID:   sessionID,
		CandidateID: candidateID,
		UpdatedAt:   now,
	}
	for _, vote := range votes {
		if vote.CandidateID != candidateID {
			continue
		}
		switch vote.Decision {
		case DecisionLike:
			tally.Likes++
		case DecisionPass:
			tally.Passes++
		default:
			continue
		}
		if !tally.HasViewer(vote.VoterID) {
			tally.Viewers = append(tally.Viewers, vote.VoterID)
		}
	}
	sort.Strings(tally.Viewers)
	return tally
}
