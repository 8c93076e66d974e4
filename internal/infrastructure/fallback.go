package infrastructure

import (
	"time"

	"trackattr/internal/domain"

	"github.com/shopspring/decimal"
)

// Baseline confidence attached to fallback data only. Live records get a
// computed confidence instead.
var fallbackConfidence = map[domain.Platform]float64{
	domain.PlatformFacebook: 92.5,
	domain.PlatformGoogle:   89.3,
	domain.PlatformSquare:   96.8,
	domain.PlatformStripe:   95.2,
}

// FallbackRecord returns the fixed canned dataset for a platform. The numbers
// never derive from live state, so degraded integrations stay deterministic.
func FallbackRecord(platform domain.Platform, now time.Time) domain.PlatformRecord {
	record := domain.PlatformRecord{
		Source:      platform,
		FetchStatus: domain.FetchFallback,
		FetchedAt:   now,
	}

	switch platform {
	case domain.PlatformFacebook:
		record.Campaigns = []domain.CampaignStat{
			{
				Name:              "Facebook Lead Generation Q4",
				Spend:             decimal.NewFromFloat(1847.32),
				Clicks:            234,
				Conversions:       23,
				CostPerConversion: decimal.NewFromFloat(80.32),
			},
		}
		record.Summary = domain.PlatformSummary{
			TotalSpend:            decimal.NewFromFloat(1847.32),
			TotalConversions:      23,
			AttributionConfidence: fallbackConfidence[platform],
		}

	case domain.PlatformGoogle:
		record.Campaigns = []domain.CampaignStat{
			{
				Name:              "Google Search - Appointments Near Me",
				Spend:             decimal.NewFromFloat(1342.15),
				Clicks:            189,
				Conversions:       31,
				CostPerConversion: decimal.NewFromFloat(43.29),
			},
		}
		record.Summary = domain.PlatformSummary{
			TotalSpend:            decimal.NewFromFloat(1342.15),
			TotalConversions:      31,
			AttributionConfidence: fallbackConfidence[platform],
		}

	case domain.PlatformSquare:
		record.Summary = domain.PlatformSummary{
			TotalRevenue:          decimal.NewFromFloat(300.50),
			TotalConversions:      3,
			AttributionConfidence: fallbackConfidence[platform],
		}

	case domain.PlatformStripe:
		record.Summary = domain.PlatformSummary{
			TotalRevenue:          decimal.NewFromFloat(225.00),
			TotalConversions:      2,
			AttributionConfidence: fallbackConfidence[platform],
		}
	}

	return record
}
