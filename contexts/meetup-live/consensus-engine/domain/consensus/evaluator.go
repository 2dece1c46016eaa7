// Package consensus turns a session's tallies into at most one
// recommendation banner. Evaluation is pure: storage and debounce policy
// live in the application layer.
package consensus

import (
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	"overlap/contexts/meetup-live/consensus-engine/domain/scoring"
)

const (
	wilsonConfidence = 0.90
	strongFloor      = 0.70
	softFloor        = 0.60
)

// Evaluate scans all tallies and selects the single best banner using the
// tier priority unanimous > great-match > near-unanimous > strong > soft.
// The first tier with any qualifying candidate wins; within a tier the
// higher score wins, ties broken by likes and then candidate ID so the
// result is deterministic. Returns nil when nothing qualifies.
func Evaluate(participantCount int, tallies map[string]entities.Tally, now time.Time) *entities.Banner {
	type qualifier func(entities.Tally) (float64, bool)

	unanimous := func(t entities.Tally) (float64, bool) {
		if t.Likes == participantCount && t.ViewerCount() == participantCount {
			return 1.0, true
		}
		return 0, false
	}
	greatMatch := func(t entities.Tally) (float64, bool) {
		if t.ViewerCount() < scoring.GreatMatchMinViewers(participantCount) {
			return 0, false
		}
		if t.Likes < scoring.GreatMatchRequiredLikes(participantCount) || t.Likes >= participantCount {
			return 0, false
		}
		return float64(t.Likes) / float64(participantCount), true
	}
	nearUnanimous := func(t entities.Tally) (float64, bool) {
		threshold := scoring.NearUnanimousThreshold(participantCount)
		if t.Passes == 0 && t.Likes >= threshold && t.ViewerCount() >= threshold {
			return float64(t.Likes) / float64(participantCount), true
		}
		return 0, false
	}
	wilson := func(t entities.Tally) (float64, bool) {
		total := t.Likes + t.Passes
		if t.ViewerCount() < scoring.MinExposures(participantCount) || total == 0 {
			return 0, false
		}
		return scoring.WilsonLowerBound(t.Likes, total, wilsonConfidence), true
	}
	strong := func(t entities.Tally) (float64, bool) {
		score, ok := wilson(t)
		if !ok || score < strongFloor || t.ViewerCount() < scoring.StrongThreshold(participantCount) {
			return 0, false
		}
		return score, true
	}
	soft := func(t entities.Tally) (float64, bool) {
		score, ok := wilson(t)
		if !ok || score < softFloor || score >= strongFloor {
			return 0, false
		}
		return score, true
	}

	tiers := []struct {
		bannerType entities.BannerType
		qualifies  qualifier
	}{
		{entities.BannerTypeUnanimous, unanimous},
		{entities.BannerTypeGreatMatch, greatMatch},
		{entities.BannerTypeNearUnanimous, nearUnanimous},
		{entities.BannerTypeStrong, strong},
		{entities.BannerTypeSoft, soft},
	}

	for _, tier := range tiers {
		var best *entities.Banner
		for _, tally := range tallies {
			score, ok := tier.qualifies(tally)
			if !ok {
				continue
			}
			candidate := &entities.Banner{
				CandidateID:      tally.CandidateID,
				Type:             tier.bannerType,
				Score:            score,
				Likes:            tally.Likes,
				Viewers:          tally.ViewerCount(),
				ParticipantCount: participantCount,
				ComputedAt:       now,
			}
			if best == nil || betterWithinTier(candidate, best) {
				best = candidate
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

func betterWithinTier(a, b *entities.Banner) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Likes != b.Likes {
		return a.Likes > b.Likes
	}
	return a.CandidateID < b.CandidateID
}
