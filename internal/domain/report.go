package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type IntegrationStatus string

const (
	IntegrationFull     IntegrationStatus = "fully_integrated"
	IntegrationPartial  IntegrationStatus = "partially_integrated"
	IntegrationTokens   IntegrationStatus = "tokens_configured"
	IntegrationDemoMode IntegrationStatus = "demo_mode"
)

// PlatformBreakdown summarizes one platform inside a dashboard report.
type PlatformBreakdown struct {
	Status      FetchStatus     `json:"status"`
	Spend       decimal.Decimal `json:"spend"`
	Conversions int             `json:"conversions"`
	Confidence  float64         `json:"confidence"`
}

// DashboardReport is the read-only rollup of platform records and matches.
// RecoveredRevenue is an estimate (matched conversion value times a fixed
// recovery rate), not a measured figure.
type DashboardReport struct {
	BusinessID              string                         `json:"business_id"`
	GeneratedAt             time.Time                      `json:"generated_at"`
	IntegrationStatus       IntegrationStatus              `json:"integration_status"`
	TotalSpend              decimal.Decimal                `json:"total_spend"`
	TotalConversions        int                            `json:"total_conversions"`
	MatchedConversions      int                            `json:"matched_conversions"`
	UnattributedConversions int                            `json:"unattributed_conversions"`
	TotalMatchedValue       decimal.Decimal                `json:"total_matched_value"`
	RecoveredRevenue        decimal.Decimal                `json:"recovered_revenue"`
	RecoveryRate            float64                        `json:"recovery_rate"`
	AttributionAccuracy     float64                        `json:"attribution_accuracy"`
	Platforms               map[Platform]PlatformBreakdown `json:"platform_breakdown"`
}

// CampaignPerformance is one campaign row in the performance report.
type CampaignPerformance struct {
	CampaignID    string          `json:"campaign_id,omitempty"`
	Name          string          `json:"name"`
	Platform      Platform        `json:"platform"`
	Spend         decimal.Decimal `json:"spend"`
	Clicks        int             `json:"clicks"`
	Conversions   int             `json:"conversions"`
	CPA           decimal.Decimal `json:"cpa"`
	RecoveryValue decimal.Decimal `json:"recovery_value"`
}

type CampaignPerformanceReport struct {
	BusinessID       string                `json:"business_id"`
	GeneratedAt      time.Time             `json:"generated_at"`
	Campaigns        []CampaignPerformance `json:"campaigns"`
	TotalSpend       decimal.Decimal       `json:"total_spend"`
	TotalConversions int                   `json:"total_conversions"`
}

// CampaignRecommendation is a deterministic optimization suggestion derived
// from observed campaign stats.
type CampaignRecommendation struct {
	CampaignID string `json:"campaign_id"`
	Action     string `json:"action"`
	Detail     string `json:"detail"`
}

type OptimizationReport struct {
	OptimizationID  string                   `json:"optimization_id"`
	BusinessID      string                   `json:"business_id"`
	Goal            string                   `json:"optimization_goal"`
	GeneratedAt     time.Time                `json:"generated_at"`
	Recommendations []CampaignRecommendation `json:"recommendations"`
}

// ModelInfo describes one attribution model in the public catalog.
type ModelInfo struct {
	ID          AttributionModel `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	UseCases    []string         `json:"use_cases"`
}

// IntegrationState is one platform's credential/connection status.
type IntegrationState struct {
	Platform   Platform `json:"platform"`
	Configured bool     `json:"configured"`
	Status     string   `json:"status"`
}
