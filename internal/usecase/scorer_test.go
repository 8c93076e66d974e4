package usecase

import (
	"testing"
	"time"

	"trackattr/internal/domain"
)

const scorerWindow = 168 * time.Hour

func weightedMatch(conversionAt time.Time, touchpoints ...domain.WeightedTouchpoint) domain.AttributionMatch {
	return domain.AttributionMatch{
		Conversion:  testConversion(conversionAt),
		Touchpoints: touchpoints,
		Status:      domain.MatchAttributed,
	}
}

func TestScoreEmptyMatch(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)

	match := domain.AttributionMatch{Status: domain.MatchUnattributed}
	if got := s.Score(match); got != 0 {
		t.Errorf("unattributed match scored %f, want 0", got)
	}
}

func TestScoreBounds(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)
	now := time.Now()

	cases := [][]domain.WeightedTouchpoint{
		{{Touchpoint: testTouchpoint(domain.SourceOrganic, now.Add(-time.Hour)), Weight: 1}},
		{{Touchpoint: testTouchpoint(domain.PlatformSquare, now.Add(-time.Hour)), Weight: 1}},
		{
			{Touchpoint: testTouchpoint(domain.PlatformSquare, now.Add(-time.Hour)), Weight: 0.25},
			{Touchpoint: testTouchpoint(domain.PlatformStripe, now.Add(-2*time.Hour)), Weight: 0.25},
			{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-3*time.Hour)), Weight: 0.25},
			{Touchpoint: testTouchpoint(domain.PlatformGoogle, now.Add(-4*time.Hour)), Weight: 0.25},
		},
	}

	for i, tps := range cases {
		got := s.Score(weightedMatch(now, tps...))
		if got < 0 || got > 98.5 {
			t.Errorf("case %d: score %f outside [0, 98.5]", i, got)
		}
	}
}

func TestScoreCap(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)
	now := time.Now()

	// Four fresh sources: strongest base 96.8 plus capped bonus must clamp.
	match := weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformSquare, now.Add(-time.Hour)), Weight: 0.25},
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformStripe, now.Add(-time.Hour)), Weight: 0.25},
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-time.Hour)), Weight: 0.25},
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformGoogle, now.Add(-time.Hour)), Weight: 0.25},
	)

	if got := s.Score(match); got != 98.5 {
		t.Errorf("score %f, want capped 98.5", got)
	}
}

func TestScoreCrossPlatformMonotonic(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)
	now := time.Now()

	single := weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-time.Hour)), Weight: 1},
	)
	// Same facebook touchpoint plus a weaker organic one from another source.
	corroborated := weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-time.Hour)), Weight: 0.6},
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.SourceOrganic, now.Add(-2*time.Hour)), Weight: 0.4},
	)

	one := s.Score(single)
	two := s.Score(corroborated)
	if two < one {
		t.Errorf("adding a second source lowered the score: %f -> %f", one, two)
	}
}

func TestScoreStalenessPenalty(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)
	now := time.Now()

	fresh := s.Score(weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-time.Hour)), Weight: 1},
	))
	stale := s.Score(weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformFacebook, now.Add(-167*time.Hour)), Weight: 1},
	))

	if stale >= fresh {
		t.Errorf("stale touchpoint scored %f, fresh scored %f; staleness should cost", stale, fresh)
	}
	// The penalty never exceeds 15% of the base rate.
	if stale < fresh*0.85-1e-9 {
		t.Errorf("staleness penalty too deep: %f vs %f", stale, fresh)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewConfidenceScorer(scorerWindow)
	now := time.Now()
	match := weightedMatch(now,
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformGoogle, now.Add(-100*time.Hour)), Weight: 0.5},
		domain.WeightedTouchpoint{Touchpoint: testTouchpoint(domain.PlatformSquare, now.Add(-3*time.Hour)), Weight: 0.5},
	)

	if s.Score(match) != s.Score(match) {
		t.Error("identical match scored differently on repeat")
	}
}
