package usecase

import (
	"math"
	"sort"
	"time"

	"trackattr/internal/domain"

	"github.com/google/uuid"
)

// timeDecayHalfLife halves a touchpoint's raw weight for every day of
// distance from the conversion under the time_decay model.
const timeDecayHalfLife = 24 * time.Hour

// Matcher produces weighted touchpoint sets for conversions. Pure over its
// inputs: identical (conversion, touchpoints) always yield identical weights.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match reconciles a conversion with its candidate touchpoints under the
// given model. Zero touchpoints yield an unattributed match with confidence 0
// left for the scorer to confirm; no synthetic touchpoints are fabricated.
func (m *Matcher) Match(conversion domain.ConversionEvent, touchpoints []domain.Touchpoint, model domain.AttributionModel) domain.AttributionMatch {
	match := domain.AttributionMatch{
		MatchID:    uuid.New().String(),
		Conversion: conversion,
		ModelUsed:  model,
		MatchedAt:  time.Now(),
	}

	if len(touchpoints) == 0 {
		match.Status = domain.MatchUnattributed
		return match
	}

	ordered := make([]domain.Touchpoint, len(touchpoints))
	copy(ordered, touchpoints)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	raw := rawWeights(conversion, ordered, model)
	normalized := normalize(raw)

	match.Status = domain.MatchAttributed
	match.Touchpoints = make([]domain.WeightedTouchpoint, 0, len(ordered))
	for i, tp := range ordered {
		// First/last touch zero out the rest; only credited touchpoints
		// appear in the match, keeping every listed weight in (0,1].
		if normalized[i] <= 0 {
			continue
		}
		match.Touchpoints = append(match.Touchpoints, domain.WeightedTouchpoint{Touchpoint: tp, Weight: normalized[i]})
	}

	return match
}

// rawWeights computes unnormalized weights for touchpoints already ordered by
// occurred_at ascending. Weights depend only on timestamps, so equal
// timestamps always split weight equally.
func rawWeights(conversion domain.ConversionEvent, ordered []domain.Touchpoint, model domain.AttributionModel) []float64 {
	weights := make([]float64, len(ordered))

	switch model {
	case domain.ModelFirstTouch:
		earliest := ordered[0].OccurredAt
		for i, tp := range ordered {
			if tp.OccurredAt.Equal(earliest) {
				weights[i] = 1
			}
		}

	case domain.ModelLastTouch:
		latest := ordered[len(ordered)-1].OccurredAt
		for i, tp := range ordered {
			if tp.OccurredAt.Equal(latest) {
				weights[i] = 1
			}
		}

	case domain.ModelTimeDecay:
		for i, tp := range ordered {
			distance := conversion.OccurredAt.Sub(tp.OccurredAt)
			weights[i] = math.Exp2(-distance.Hours() / timeDecayHalfLife.Hours())
		}

	case domain.ModelLinear:
		for i := range ordered {
			weights[i] = 1
		}

	default:
		// ml_enhanced and anything unrecognized: linear with a recency bonus.
		// More recent touchpoints earn up to double the base weight.
		span := conversion.OccurredAt.Sub(ordered[0].OccurredAt)
		for i, tp := range ordered {
			if span <= 0 {
				weights[i] = 1
				continue
			}
			distance := conversion.OccurredAt.Sub(tp.OccurredAt)
			weights[i] = 1 + (1 - distance.Seconds()/span.Seconds())
		}
	}

	return weights
}

// normalize scales weights to sum exactly to 1.0.
func normalize(raw []float64) []float64 {
	total := 0.0
	for _, w := range raw {
		total += w
	}
	if total <= 0 {
		// Degenerate raw weights, split equally.
		equal := 1.0 / float64(len(raw))
		out := make([]float64, len(raw))
		for i := range out {
			out[i] = equal
		}
		return out
	}

	out := make([]float64, len(raw))
	for i, w := range raw {
		out[i] = w / total
	}
	return out
}
