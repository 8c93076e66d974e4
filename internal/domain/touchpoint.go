package domain

import (
	"fmt"
	"time"
)

type InteractionType string

const (
	InteractionAdClick      InteractionType = "ad_click"
	InteractionAdView       InteractionType = "ad_view"
	InteractionOrganicVisit InteractionType = "organic_visit"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionAdClick, InteractionAdView, InteractionOrganicVisit:
		return true
	}
	return false
}

// LowConfidence reports whether the interaction type qualifies for the
// extended attribution window.
func (t InteractionType) LowConfidence() bool {
	return t == InteractionAdView || t == InteractionOrganicVisit
}

// Touchpoint is one recorded ad interaction tied to a hashed user identity.
type Touchpoint struct {
	IdentifierHash  string          `json:"identifier_hash"`
	BusinessID      string          `json:"business_id"`
	Source          Platform        `json:"source"`
	CampaignID      string          `json:"campaign_id,omitempty"`
	InteractionType InteractionType `json:"interaction_type"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

func (t Touchpoint) Validate(now time.Time) error {
	if t.IdentifierHash == "" {
		return fmt.Errorf("%w: touchpoint missing identifier hash", ErrInvalidInput)
	}
	if !t.Source.Valid() {
		return fmt.Errorf("%w: unknown touchpoint source %q", ErrInvalidInput, t.Source)
	}
	if !t.InteractionType.Valid() {
		return fmt.Errorf("%w: unknown interaction type %q", ErrInvalidInput, t.InteractionType)
	}
	if t.OccurredAt.After(now) {
		return fmt.Errorf("%w: touchpoint timestamp is in the future", ErrInvalidInput)
	}
	return nil
}

// Key identifies a touchpoint for idempotent recording.
func (t Touchpoint) Key() string {
	return t.IdentifierHash + "|" + string(t.Source) + "|" + t.OccurredAt.UTC().Format(time.RFC3339Nano)
}
