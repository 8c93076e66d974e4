package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Platform string

const (
	PlatformFacebook Platform = "facebook_ads"
	PlatformGoogle   Platform = "google_ads"
	PlatformSquare   Platform = "square_payments"
	PlatformStripe   Platform = "stripe_payments"

	// SourceOrganic appears on touchpoints only, never on platform fetches.
	SourceOrganic Platform = "organic"
)

// AllPlatforms lists the integrations a dashboard report covers.
func AllPlatforms() []Platform {
	return []Platform{PlatformFacebook, PlatformGoogle, PlatformSquare, PlatformStripe}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformGoogle, PlatformSquare, PlatformStripe, SourceOrganic:
		return true
	}
	return false
}

// IsPaymentPlatform reports whether conversions from this platform are
// payment-confirmed rather than inferred from ad interactions.
func (p Platform) IsPaymentPlatform() bool {
	return p == PlatformSquare || p == PlatformStripe
}

type FetchStatus string

const (
	FetchLive     FetchStatus = "live"
	FetchFallback FetchStatus = "fallback"
	FetchError    FetchStatus = "error"
)

// CampaignStat is one campaign row inside a normalized platform record.
type CampaignStat struct {
	CampaignID        string          `json:"campaign_id,omitempty"`
	Name              string          `json:"name"`
	Spend             decimal.Decimal `json:"spend"`
	Clicks            int             `json:"clicks"`
	Conversions       int             `json:"conversions"`
	CostPerConversion decimal.Decimal `json:"cost_per_conversion"`
}

// PlatformSummary rolls up one platform fetch. Ad platforms report spend,
// payment platforms report revenue; both count conversions.
type PlatformSummary struct {
	TotalSpend            decimal.Decimal `json:"total_spend"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	TotalConversions      int             `json:"total_conversions"`
	AttributionConfidence float64         `json:"attribution_confidence"`
}

// PlatformRecord is one normalized fetch result from an external platform.
// Immutable once constructed; fetch_status=fallback means every numeric field
// comes from the platform's fixed canned dataset.
type PlatformRecord struct {
	Source      Platform        `json:"source"`
	FetchStatus FetchStatus     `json:"fetch_status"`
	Campaigns   []CampaignStat  `json:"campaigns"`
	Summary     PlatformSummary `json:"summary"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// DateRange is the closed interval a platform fetch covers.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

const maxDateRange = 90 * 24 * time.Hour

func (r DateRange) Validate() error {
	if r.To.Before(r.From) {
		return fmt.Errorf("%w: date range end precedes start", ErrInvalidInput)
	}
	if r.To.Sub(r.From) > maxDateRange {
		return fmt.Errorf("%w: date range exceeds 90 days", ErrInvalidInput)
	}
	return nil
}

// LastDays returns the closed range covering the last n days up to now.
func LastDays(n int, now time.Time) DateRange {
	return DateRange{From: now.AddDate(0, 0, -n), To: now}
}
