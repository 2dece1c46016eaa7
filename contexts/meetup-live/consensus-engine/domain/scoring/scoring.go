// Package scoring holds the pure threshold math behind the live
// recommendation banner. All functions are deterministic and side-effect
// free so every group-size threshold is testable on its own.
package scoring

import "math"

// greatMatchRequiredLikes maps known group sizes to the like count that
// qualifies as a great match. Sizes outside the table fall back to
// ceil(0.75*n).
var greatMatchRequiredLikes = map[int]int{
	4:  3,
	5:  4,
	6:  5,
	7:  5,
	8:  6,
	9:  7,
	10: 8,
	12: 9,
	15: 11,
	20: 15,
}

// WilsonLowerBound returns the lower bound of the Wilson score interval for
// positive out of total trials. confidence 0.95 maps to z=1.96, anything
// else to z=1.645 (90%). Zero trials score zero.
func WilsonLowerBound(positive, total int, confidence float64) float64 {
	if total == 0 {
		return 0
	}
	z := 1.645
	if confidence == 0.95 {
		z = 1.96
	}
	n := float64(total)
	p := float64(positive) / n
	denominator := 1 + (z*z)/n
	centre := (p + (z*z)/(2*n)) / denominator
	margin := (z / denominator) * math.Sqrt((p*(1-p)+(z*z)/(4*n))/n)
	return math.Max(0, centre-margin)
}

// MinExposures is the distinct-viewer count a candidate needs before the
// queue cursor may advance past it and before Wilson-based tiers apply.
func MinExposures(participantCount int) int {
	return clamp(ceilRatio(0.6, participantCount)+2, 3, 8)
}

// StrongThreshold is the viewer count required for a strong banner.
func StrongThreshold(participantCount int) int {
	threshold := ceilRatio(0.8, participantCount)
	if threshold > 10 {
		return 10
	}
	return threshold
}

// GreatMatchRequiredLikes returns the like count that qualifies as a great
// match for the given group size.
func GreatMatchRequiredLikes(participantCount int) int {
	if required, ok := greatMatchRequiredLikes[participantCount]; ok {
		return required
	}
	return ceilRatio(0.75, participantCount)
}

// GreatMatchMinViewers is the exposure floor for the great-match tier.
func GreatMatchMinViewers(participantCount int) int {
	floor := ceilRatio(0.6, participantCount)
	if floor < 3 {
		return 3
	}
	return floor
}

// NearUnanimousThreshold is the like and viewer floor for the
// near-unanimous tier.
func NearUnanimousThreshold(participantCount int) int {
	return ceilRatio(0.9, participantCount)
}

// QueueCap bounds the session queue length: clamp(2n+6, 10, 30).
func QueueCap(participantCount int) int {
	return clamp(2*participantCount+6, 10, 30)
}

func ceilRatio(ratio float64, n int) int {
	return int(math.Ceil(ratio * float64(n)))
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
