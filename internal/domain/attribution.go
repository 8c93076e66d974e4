package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AttributionModel string

const (
	ModelFirstTouch AttributionModel = "first_touch"
	ModelLastTouch  AttributionModel = "last_touch"
	ModelLinear     AttributionModel = "linear"
	ModelTimeDecay  AttributionModel = "time_decay"
	ModelMLEnhanced AttributionModel = "ml_enhanced"
)

func (m AttributionModel) Valid() bool {
	switch m {
	case ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay, ModelMLEnhanced:
		return true
	}
	return false
}

type MatchStatus string

const (
	MatchAttributed   MatchStatus = "matched"
	MatchUnattributed MatchStatus = "unattributed"
)

// ConversionEvent is a booking being attributed.
type ConversionEvent struct {
	IdentifierHash string          `json:"identifier_hash"`
	BusinessID     string          `json:"business_id"`
	BookingID      string          `json:"booking_id"`
	BookingValue   decimal.Decimal `json:"booking_value"`
	Platform       Platform        `json:"platform"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func (c ConversionEvent) Validate() error {
	if c.IdentifierHash == "" {
		return fmt.Errorf("%w: conversion missing identifier hash", ErrInvalidInput)
	}
	if c.BookingID == "" {
		return fmt.Errorf("%w: conversion missing booking id", ErrInvalidInput)
	}
	if !c.BookingValue.IsPositive() {
		return fmt.Errorf("%w: booking value must be greater than 0", ErrInvalidInput)
	}
	return nil
}

// WeightedTouchpoint pairs a touchpoint with its attribution weight in (0,1].
type WeightedTouchpoint struct {
	Touchpoint Touchpoint `json:"touchpoint"`
	Weight     float64    `json:"weight"`
}

// AttributionMatch is the reconciliation result for one conversion. Weights
// sum to 1.0 unless the match is unattributed, in which case the touchpoint
// list is empty and the confidence score is 0.
type AttributionMatch struct {
	MatchID         string               `json:"match_id"`
	Conversion      ConversionEvent      `json:"conversion"`
	Touchpoints     []WeightedTouchpoint `json:"touchpoints"`
	ConfidenceScore float64              `json:"confidence_score"`
	ModelUsed       AttributionModel     `json:"model_used"`
	Status          MatchStatus          `json:"status"`
	MatchedAt       time.Time            `json:"matched_at"`
}

// DistinctSources counts the distinct touchpoint sources in the match.
func (m AttributionMatch) DistinctSources() int {
	seen := make(map[Platform]struct{}, len(m.Touchpoints))
	for _, wt := range m.Touchpoints {
		seen[wt.Touchpoint.Source] = struct{}{}
	}
	return len(seen)
}
