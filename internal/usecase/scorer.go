package usecase

import (
	"math"
	"time"

	"trackattr/internal/domain"
)

const (
	// maxConfidence caps every score; the system never reports certainty.
	maxConfidence = 98.5

	// crossPlatformBonusPerSource and crossPlatformBonusCap reward
	// corroboration across independent platform sources.
	crossPlatformBonusPerSource = 5.0
	crossPlatformBonusCap       = 15.0

	// stalePenaltyShare is the largest fraction of a source rate the recency
	// factor can shave off a touchpoint in the second half of its window.
	stalePenaltyShare = 0.15
)

// sourceBaseRates ranks touchpoint sources by evidence quality.
// Payment-confirmed conversions beat ad interactions, which beat organic.
var sourceBaseRates = map[domain.Platform]float64{
	domain.PlatformSquare:   96.8,
	domain.PlatformStripe:   95.2,
	domain.PlatformFacebook: 80.0,
	domain.PlatformGoogle:   78.0,
	domain.SourceOrganic:    45.0,
}

const defaultBaseRate = 60.0

// ConfidenceScorer turns a match into a 0-100 confidence figure. Pure
// function of the match and window; adding a touchpoint from a new source
// never lowers the result.
type ConfidenceScorer struct {
	window time.Duration
}

func NewConfidenceScorer(window time.Duration) *ConfidenceScorer {
	return &ConfidenceScorer{window: window}
}

// Score combines the weighted source-quality average, the strongest single
// touchpoint, and a cross-platform corroboration bonus. An unattributed match
// scores exactly 0, never a default.
func (s *ConfidenceScorer) Score(match domain.AttributionMatch) float64 {
	if len(match.Touchpoints) == 0 {
		return 0
	}

	weighted := 0.0
	strongest := 0.0
	for _, wt := range match.Touchpoints {
		effective := s.effectiveRate(wt.Touchpoint, match.Conversion.OccurredAt)
		weighted += wt.Weight * effective
		strongest = math.Max(strongest, effective)
	}

	// The strongest touchpoint floors the base so weak corroborating signals
	// can only add confidence, never dilute payment-confirmed evidence.
	base := math.Max(weighted, strongest)

	bonus := 0.0
	if distinct := match.DistinctSources(); distinct >= 2 {
		bonus = math.Min(crossPlatformBonusPerSource*float64(distinct-1), crossPlatformBonusCap)
	}

	return math.Min(base+bonus, maxConfidence)
}

// effectiveRate applies a recency factor to the source base rate: full value
// through half the attribution window, then a linear slide down to an 85%
// floor at the window edge.
func (s *ConfidenceScorer) effectiveRate(tp domain.Touchpoint, conversionAt time.Time) float64 {
	rate, ok := sourceBaseRates[tp.Source]
	if !ok {
		rate = defaultBaseRate
	}

	if s.window <= 0 {
		return rate
	}

	age := conversionAt.Sub(tp.OccurredAt)
	half := s.window / 2
	if age <= half {
		return rate
	}

	over := math.Min(float64(age-half)/float64(s.window-half), 1)
	return rate * (1 - stalePenaltyShare*over)
}
