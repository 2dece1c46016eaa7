package consensus

import (
	"testing"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	"overlap/contexts/meetup-live/consensus-engine/domain/scoring"
)

func tally(candidateID string, likes, passes int) entities.Tally {
	viewers := make([]string, 0, likes+passes)
	for i := 0; i < likes+passes; i++ {
		viewers = append(viewers, string(rune('a'+i)))
	}
	return entities.Tally{
		SessionID:   "session-1",
		CandidateID: candidateID,
		Likes:       likes,
		Passes:      passes,
		Viewers:     viewers,
	}
}

func TestEvaluateNothingQualifies(t *testing.T) {
	now := time.Now().UTC()
	if banner := Evaluate(4, nil, now); banner != nil {
		t.Fatalf("expected nil banner for empty tallies, got %+v", banner)
	}
	// One like from one viewer is below every exposure floor.
	banner := Evaluate(4, map[string]entities.Tally{"c1": tally("c1", 1, 0)}, now)
	if banner != nil {
		t.Fatalf("expected nil banner below exposure floors, got %+v", banner)
	}
}

func TestEvaluateUnanimous(t *testing.T) {
	now := time.Now().UTC()
	banner := Evaluate(4, map[string]entities.Tally{
		"c1": tally("c1", 4, 0),
		"c2": tally("c2", 3, 1),
	}, now)
	if banner == nil || banner.Type != entities.BannerTypeUnanimous {
		t.Fatalf("expected unanimous banner, got %+v", banner)
	}
	if banner.CandidateID != "c1" || banner.Score != 1.0 {
		t.Fatalf("unexpected unanimous banner %+v", banner)
	}
}

func TestEvaluateGreatMatch(t *testing.T) {
	now := time.Now().UTC()
	// 3 of 4 participants liked it: table says 3 likes qualify at n=4.
	banner := Evaluate(4, map[string]entities.Tally{
		"c1": tally("c1", 3, 1),
	}, now)
	if banner == nil || banner.Type != entities.BannerTypeGreatMatch {
		t.Fatalf("expected great-match banner, got %+v", banner)
	}
	if banner.Score != 0.75 {
		t.Fatalf("expected score 0.75, got %f", banner.Score)
	}
}

func TestEvaluateGreatMatchPreemptsNearUnanimous(t *testing.T) {
	now := time.Now().UTC()
	// 9 clean likes of 10 satisfy both tiers; the great-match tier sits
	// higher in the priority order and must win.
	banner := Evaluate(10, map[string]entities.Tally{
		"c1": tally("c1", 9, 0),
	}, now)
	if banner == nil || banner.Type != entities.BannerTypeGreatMatch {
		t.Fatalf("expected great-match banner, got %+v", banner)
	}
}

func TestEvaluateStrong(t *testing.T) {
	now := time.Now().UTC()
	// n=20: 12/12 approvals stay below the 15-like great-match bar but the
	// Wilson lower bound clears 0.70 with enough viewers.
	banner := Evaluate(20, map[string]entities.Tally{
		"c1": tally("c1", 12, 0),
	}, now)
	if banner == nil || banner.Type != entities.BannerTypeStrong {
		t.Fatalf("expected strong banner, got %+v", banner)
	}
	want := scoring.WilsonLowerBound(12, 12, 0.90)
	if banner.Score != want {
		t.Fatalf("expected wilson score %f, got %f", want, banner.Score)
	}
}

func TestEvaluateSoft(t *testing.T) {
	now := time.Now().UTC()
	// 12 likes 2 passes over 14 viewers at n=20 lands between the soft and
	// strong floors.
	banner := Evaluate(20, map[string]entities.Tally{
		"c1": tally("c1", 12, 2),
	}, now)
	if banner == nil || banner.Type != entities.BannerTypeSoft {
		t.Fatalf("expected soft banner, got %+v", banner)
	}
	score := banner.Score
	if score < 0.60 || score >= 0.70 {
		t.Fatalf("soft score out of band: %f", score)
	}
}

func TestEvaluateTierPriorityOverScore(t *testing.T) {
	now := time.Now().UTC()
	// c2 qualifies as a great match but c1 sits in the higher tier.
	banner := Evaluate(4, map[string]entities.Tally{
		"c1": tally("c1", 4, 0),
		"c2": tally("c2", 3, 0),
	}, now)
	if banner == nil || banner.CandidateID != "c1" || banner.Type != entities.BannerTypeUnanimous {
		t.Fatalf("expected unanimous c1 to win, got %+v", banner)
	}
}

func TestEvaluateTieBreaksWithinTier(t *testing.T) {
	now := time.Now().UTC()
	// Identical great-match tallies: the lexically smaller ID must win so
	// repeated evaluations stay stable.
	banner := Evaluate(4, map[string]entities.Tally{
		"c2": tally("c2", 3, 1),
		"c1": tally("c1", 3, 1),
	}, now)
	if banner == nil || banner.CandidateID != "c1" {
		t.Fatalf("expected deterministic tie-break on c1, got %+v", banner)
	}
}
