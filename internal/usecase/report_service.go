package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// reportLookback bounds how far back the dashboard rolls matches up.
const reportLookback = 30 * 24 * time.Hour

// fetchDays is the date range each platform fetch covers.
const fetchDays = 7

// ReportService aggregates platform records and attribution matches into
// read-only reports. Platform fetches run concurrently, each one time-boxed
// and falling back independently; one platform's outage never blocks another.
type ReportService struct {
	client       domain.PlatformClient
	credentials  domain.CredentialStore
	attributions domain.AttributionStore
	cache        domain.KeyValueStore
	flight       singleflight.Group
	logger       *logger.Logger
	metrics      *metrics.Metrics
	fetchTimeout time.Duration
	cacheTTL     time.Duration
	recoveryRate float64
}

func NewReportService(
	client domain.PlatformClient,
	credentials domain.CredentialStore,
	attributions domain.AttributionStore,
	cache domain.KeyValueStore,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	fetchTimeout, cacheTTL time.Duration,
	recoveryRate float64,
) *ReportService {
	return &ReportService{
		client:       client,
		credentials:  credentials,
		attributions: attributions,
		cache:        cache,
		logger:       logger,
		metrics:      metrics,
		fetchTimeout: fetchTimeout,
		cacheTTL:     cacheTTL,
		recoveryRate: recoveryRate,
	}
}

// FetchPlatformRecords pulls all four platforms concurrently. Each fetch gets
// its own timeout; results arrive in any order and completed fetches survive
// a caller-level cancellation.
func (s *ReportService) FetchPlatformRecords(ctx context.Context, businessID string, dateRange domain.DateRange) []domain.PlatformRecord {
	platforms := domain.AllPlatforms()
	records := make([]domain.PlatformRecord, len(platforms))

	var wg sync.WaitGroup
	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform domain.Platform) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			token, _ := s.credentials.AccessToken(fetchCtx, businessID, platform)
			records[i] = s.client.Fetch(fetchCtx, platform, token, dateRange)
		}(i, platform)
	}
	wg.Wait()

	return records
}

// Dashboard returns the cached dashboard report, regenerating at most once
// per key at a time.
func (s *ReportService) Dashboard(ctx context.Context, businessID string) (*domain.DashboardReport, error) {
	key := "dashboard:" + businessID

	if cached, ok := s.cache.Get(key); ok {
		if report, ok := cached.(*domain.DashboardReport); ok {
			s.metrics.RecordCacheRequest("dashboard", "hit")
			return report, nil
		}
	}
	s.metrics.RecordCacheRequest("dashboard", "miss")

	result, err, _ := s.flight.Do(key, func() (any, error) {
		report, err := s.buildDashboard(ctx, businessID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, report, s.cacheTTL)
		return report, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.DashboardReport), nil
}

func (s *ReportService) buildDashboard(ctx context.Context, businessID string) (*domain.DashboardReport, error) {
	now := time.Now()
	records := s.FetchPlatformRecords(ctx, businessID, domain.LastDays(fetchDays, now))

	matches, err := s.attributions.MatchesSince(ctx, businessID, now.Add(-reportLookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}

	report := &domain.DashboardReport{
		BusinessID:        businessID,
		GeneratedAt:       now,
		IntegrationStatus: s.classifyIntegration(ctx, businessID, records),
		TotalSpend:        decimal.Zero,
		TotalMatchedValue: decimal.Zero,
		RecoveredRevenue:  decimal.Zero,
		RecoveryRate:      s.recoveryRate,
		Platforms:         make(map[domain.Platform]domain.PlatformBreakdown, len(records)),
	}

	confidenceSum := 0.0
	for _, record := range records {
		report.TotalSpend = report.TotalSpend.Add(record.Summary.TotalSpend)
		report.TotalConversions += record.Summary.TotalConversions
		confidenceSum += record.Summary.AttributionConfidence

		report.Platforms[record.Source] = domain.PlatformBreakdown{
			Status:      record.FetchStatus,
			Spend:       record.Summary.TotalSpend,
			Conversions: record.Summary.TotalConversions,
			Confidence:  record.Summary.AttributionConfidence,
		}
	}
	if len(records) > 0 {
		report.AttributionAccuracy = confidenceSum / float64(len(records))
	}

	for _, match := range matches {
		if match.Status == domain.MatchAttributed {
			report.MatchedConversions++
			report.TotalMatchedValue = report.TotalMatchedValue.Add(match.Conversion.BookingValue)
		} else {
			report.UnattributedConversions++
		}
	}

	// Estimate, not a measured figure: matched value scaled by the
	// configured recovery rate.
	report.RecoveredRevenue = report.TotalMatchedValue.Mul(decimal.NewFromFloat(s.recoveryRate)).Round(2)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"business_id":        businessID,
		"integration_status": report.IntegrationStatus,
		"matched":            report.MatchedConversions,
		"unattributed":       report.UnattributedConversions,
	}).Info("Generated dashboard report")

	return report, nil
}

// classifyIntegration grades data quality from live-fetch share:
// >=75% live is fully integrated, >=25% partially, any credential with no
// live fetch means tokens are configured but failing, else demo mode.
func (s *ReportService) classifyIntegration(ctx context.Context, businessID string, records []domain.PlatformRecord) domain.IntegrationStatus {
	if len(records) == 0 {
		return domain.IntegrationDemoMode
	}

	live := 0
	for _, record := range records {
		if record.FetchStatus == domain.FetchLive {
			live++
		}
	}

	share := float64(live) / float64(len(records))
	switch {
	case share >= 0.75:
		return domain.IntegrationFull
	case share >= 0.25:
		return domain.IntegrationPartial
	}

	for _, platform := range domain.AllPlatforms() {
		if _, ok := s.credentials.AccessToken(ctx, businessID, platform); ok {
			return domain.IntegrationTokens
		}
	}
	return domain.IntegrationDemoMode
}

// CampaignPerformance flattens campaign stats across platforms, ranked by
// spend descending.
func (s *ReportService) CampaignPerformance(ctx context.Context, businessID string) (*domain.CampaignPerformanceReport, error) {
	key := "campaigns:" + businessID

	if cached, ok := s.cache.Get(key); ok {
		if report, ok := cached.(*domain.CampaignPerformanceReport); ok {
			s.metrics.RecordCacheRequest("campaigns", "hit")
			return report, nil
		}
	}
	s.metrics.RecordCacheRequest("campaigns", "miss")

	result, err, _ := s.flight.Do(key, func() (any, error) {
		report := s.buildCampaignPerformance(ctx, businessID)
		s.cache.Set(key, report, s.cacheTTL)
		return report, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.CampaignPerformanceReport), nil
}

func (s *ReportService) buildCampaignPerformance(ctx context.Context, businessID string) *domain.CampaignPerformanceReport {
	now := time.Now()
	records := s.FetchPlatformRecords(ctx, businessID, domain.LastDays(fetchDays, now))

	report := &domain.CampaignPerformanceReport{
		BusinessID:  businessID,
		GeneratedAt: now,
		TotalSpend:  decimal.Zero,
	}

	recovery := decimal.NewFromFloat(s.recoveryRate)
	for _, record := range records {
		for _, campaign := range record.Campaigns {
			report.Campaigns = append(report.Campaigns, domain.CampaignPerformance{
				CampaignID:    campaign.CampaignID,
				Name:          campaign.Name,
				Platform:      record.Source,
				Spend:         campaign.Spend,
				Clicks:        campaign.Clicks,
				Conversions:   campaign.Conversions,
				CPA:           campaign.CostPerConversion,
				RecoveryValue: campaign.Spend.Mul(recovery).Round(2),
			})
		}
		report.TotalSpend = report.TotalSpend.Add(record.Summary.TotalSpend)
		report.TotalConversions += record.Summary.TotalConversions
	}

	sort.SliceStable(report.Campaigns, func(i, j int) bool {
		return report.Campaigns[i].Spend.GreaterThan(report.Campaigns[j].Spend)
	})

	return report
}

var validOptimizationGoals = map[string]bool{
	"conversions":          true,
	"revenue":              true,
	"roas":                 true,
	"cost_per_acquisition": true,
}

// OptimizeCampaigns derives recommendations from observed campaign stats.
// Deterministic: the same inputs always produce the same suggestions.
func (s *ReportService) OptimizeCampaigns(ctx context.Context, businessID, goal string, campaignIDs []string) (*domain.OptimizationReport, error) {
	if !validOptimizationGoals[goal] {
		return nil, fmt.Errorf("%w: invalid optimization goal %q", domain.ErrInvalidInput, goal)
	}
	if len(campaignIDs) == 0 {
		return nil, fmt.Errorf("%w: no campaign ids given", domain.ErrInvalidInput)
	}

	performance := s.buildCampaignPerformance(ctx, businessID)

	byID := make(map[string]domain.CampaignPerformance, len(performance.Campaigns))
	cpaSum := decimal.Zero
	withConversions := 0
	for _, campaign := range performance.Campaigns {
		byID[campaign.CampaignID] = campaign
		if campaign.Conversions > 0 {
			cpaSum = cpaSum.Add(campaign.CPA)
			withConversions++
		}
	}

	avgCPA := decimal.Zero
	if withConversions > 0 {
		avgCPA = cpaSum.Div(decimal.NewFromInt(int64(withConversions)))
	}

	report := &domain.OptimizationReport{
		OptimizationID: "opt-" + uuid.New().String(),
		BusinessID:     businessID,
		Goal:           goal,
		GeneratedAt:    time.Now(),
	}

	for _, id := range campaignIDs {
		campaign, ok := byID[id]
		if !ok {
			report.Recommendations = append(report.Recommendations, domain.CampaignRecommendation{
				CampaignID: id,
				Action:     "no_data",
				Detail:     "no performance data for this campaign in the current window",
			})
			continue
		}

		switch {
		case campaign.Conversions == 0:
			report.Recommendations = append(report.Recommendations, domain.CampaignRecommendation{
				CampaignID: id,
				Action:     "pause_campaign",
				Detail:     fmt.Sprintf("no conversions against %s spend", campaign.Spend.StringFixed(2)),
			})
		case avgCPA.IsPositive() && campaign.CPA.LessThan(avgCPA):
			report.Recommendations = append(report.Recommendations, domain.CampaignRecommendation{
				CampaignID: id,
				Action:     "increase_budget",
				Detail:     fmt.Sprintf("CPA %s beats the account average %s", campaign.CPA.StringFixed(2), avgCPA.StringFixed(2)),
			})
		default:
			report.Recommendations = append(report.Recommendations, domain.CampaignRecommendation{
				CampaignID: id,
				Action:     "optimize_targeting",
				Detail:     fmt.Sprintf("CPA %s is at or above the account average %s", campaign.CPA.StringFixed(2), avgCPA.StringFixed(2)),
			})
		}
	}

	return report, nil
}

// IntegrationStates reports credential status per platform.
func (s *ReportService) IntegrationStates(ctx context.Context, businessID string) []domain.IntegrationState {
	states := make([]domain.IntegrationState, 0, len(domain.AllPlatforms()))
	for _, platform := range domain.AllPlatforms() {
		_, configured := s.credentials.AccessToken(ctx, businessID, platform)
		status := "setup_required"
		if configured {
			status = "connected"
		}
		states = append(states, domain.IntegrationState{
			Platform:   platform,
			Configured: configured,
			Status:     status,
		})
	}
	return states
}

// AttributionModels returns the public model catalog.
func (s *ReportService) AttributionModels() []domain.ModelInfo {
	return []domain.ModelInfo{
		{
			ID:          domain.ModelFirstTouch,
			Name:        "First-Touch Attribution",
			Description: "Credits the first interaction with full conversion value",
			UseCases:    []string{"Brand awareness campaigns", "Top-of-funnel marketing"},
		},
		{
			ID:          domain.ModelLastTouch,
			Name:        "Last-Touch Attribution",
			Description: "Credits the last interaction before conversion",
			UseCases:    []string{"Bottom-funnel campaigns", "Direct response marketing"},
		},
		{
			ID:          domain.ModelLinear,
			Name:        "Linear Attribution",
			Description: "Distributes credit equally across all touchpoints",
			UseCases:    []string{"Multi-channel campaigns", "Customer journey analysis"},
		},
		{
			ID:          domain.ModelTimeDecay,
			Name:        "Time-Decay Attribution",
			Description: "More recent interactions receive higher attribution",
			UseCases:    []string{"Long sales cycles", "Nurture campaigns"},
		},
		{
			ID:          domain.ModelMLEnhanced,
			Name:        "ML-Enhanced Attribution",
			Description: "Recency-weighted linear model reserved for future learned weighting",
			UseCases:    []string{"Complex attribution scenarios", "Cross-device tracking"},
		},
	}
}
