package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trackattr/internal/domain"
	"trackattr/internal/infrastructure"

	"github.com/shopspring/decimal"
)

// stubPlatformClient returns a live record when a token is present and the
// platform's fallback dataset otherwise.
type stubPlatformClient struct {
	mu        sync.Mutex
	calls     int
	campaigns map[domain.Platform][]domain.CampaignStat
}

func (s *stubPlatformClient) Fetch(ctx context.Context, platform domain.Platform, token string, dateRange domain.DateRange) domain.PlatformRecord {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if token == "" {
		return infrastructure.FallbackRecord(platform, time.Now())
	}

	record := domain.PlatformRecord{
		Source:      platform,
		FetchStatus: domain.FetchLive,
		Campaigns:   s.campaigns[platform],
		Summary: domain.PlatformSummary{
			TotalSpend:            decimal.NewFromInt(100),
			TotalConversions:      5,
			AttributionConfidence: 90,
		},
		FetchedAt: time.Now(),
	}
	for _, c := range record.Campaigns {
		record.Summary.TotalSpend = record.Summary.TotalSpend.Add(c.Spend)
	}
	return record
}

func (s *stubPlatformClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubCredentialStore struct {
	tokens map[domain.Platform]string
}

func (s *stubCredentialStore) AccessToken(ctx context.Context, businessID string, platform domain.Platform) (string, bool) {
	token, ok := s.tokens[platform]
	return token, ok
}

func newTestReportService(client domain.PlatformClient, creds domain.CredentialStore, attributions domain.AttributionStore) *ReportService {
	if attributions == nil {
		attributions = infrastructure.NewAttributionStore(testLog)
	}
	return NewReportService(
		client,
		creds,
		attributions,
		infrastructure.NewKVStore(),
		testLog,
		testMetrics,
		time.Second,
		30*time.Second,
		0.28,
	)
}

func tokensFor(platforms ...domain.Platform) *stubCredentialStore {
	tokens := make(map[domain.Platform]string)
	for _, p := range platforms {
		tokens[p] = "token"
	}
	return &stubCredentialStore{tokens: tokens}
}

func TestDashboardDemoMode(t *testing.T) {
	client := &stubPlatformClient{}
	svc := newTestReportService(client, tokensFor(), nil)

	report, err := svc.Dashboard(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.IntegrationStatus != domain.IntegrationDemoMode {
		t.Errorf("status %s, want demo_mode", report.IntegrationStatus)
	}
	if len(report.Platforms) != 4 {
		t.Errorf("platform breakdown has %d entries, want 4", len(report.Platforms))
	}
	for platform, breakdown := range report.Platforms {
		if breakdown.Status != domain.FetchFallback {
			t.Errorf("%s: status %s, want fallback", platform, breakdown.Status)
		}
	}
	if client.callCount() != 4 {
		t.Errorf("fetches %d, want 4", client.callCount())
	}
}

func TestDashboardFullyIntegrated(t *testing.T) {
	client := &stubPlatformClient{}
	svc := newTestReportService(client, tokensFor(domain.AllPlatforms()...), nil)

	report, err := svc.Dashboard(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.IntegrationStatus != domain.IntegrationFull {
		t.Errorf("status %s, want fully_integrated", report.IntegrationStatus)
	}
	if !report.TotalSpend.Equal(decimal.NewFromInt(400)) {
		t.Errorf("total spend %s, want 400", report.TotalSpend)
	}
	if report.TotalConversions != 20 {
		t.Errorf("total conversions %d, want 20", report.TotalConversions)
	}
}

func TestDashboardPartiallyIntegrated(t *testing.T) {
	client := &stubPlatformClient{}
	svc := newTestReportService(client, tokensFor(domain.PlatformFacebook, domain.PlatformGoogle), nil)

	report, err := svc.Dashboard(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.IntegrationStatus != domain.IntegrationPartial {
		t.Errorf("status %s, want partially_integrated", report.IntegrationStatus)
	}
}

// slowPlatformClient hangs on one platform until the per-fetch context
// expires, then degrades to fallback the way the real client does.
type slowPlatformClient struct {
	inner domain.PlatformClient
	slow  domain.Platform
}

func (s *slowPlatformClient) Fetch(ctx context.Context, platform domain.Platform, token string, dateRange domain.DateRange) domain.PlatformRecord {
	if platform == s.slow {
		<-ctx.Done()
		return infrastructure.FallbackRecord(platform, time.Now())
	}
	return s.inner.Fetch(ctx, platform, token, dateRange)
}

func TestDashboardToleratesSlowPlatform(t *testing.T) {
	client := &slowPlatformClient{inner: &stubPlatformClient{}, slow: domain.PlatformStripe}
	svc := NewReportService(
		client,
		tokensFor(domain.AllPlatforms()...),
		infrastructure.NewAttributionStore(testLog),
		infrastructure.NewKVStore(),
		testLog,
		testMetrics,
		50*time.Millisecond,
		30*time.Second,
		0.28,
	)

	start := time.Now()
	report, err := svc.Dashboard(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("dashboard blocked on slow platform for %v", elapsed)
	}

	if report.Platforms[domain.PlatformStripe].Status != domain.FetchFallback {
		t.Errorf("slow platform status %s, want fallback", report.Platforms[domain.PlatformStripe].Status)
	}
	for _, p := range []domain.Platform{domain.PlatformFacebook, domain.PlatformGoogle, domain.PlatformSquare} {
		if report.Platforms[p].Status != domain.FetchLive {
			t.Errorf("%s status %s, want live", p, report.Platforms[p].Status)
		}
	}
	// 3 of 4 live clears the fully-integrated threshold.
	if report.IntegrationStatus != domain.IntegrationFull {
		t.Errorf("status %s, want fully_integrated", report.IntegrationStatus)
	}
}

func TestDashboardRecoveredRevenue(t *testing.T) {
	client := &stubPlatformClient{}
	attributions := infrastructure.NewAttributionStore(testLog)
	svc := newTestReportService(client, tokensFor(), attributions)
	ctx := context.Background()

	conv := domain.ConversionEvent{
		IdentifierHash: "hash-1",
		BusinessID:     "biz-1",
		BookingID:      "book-1",
		BookingValue:   decimal.NewFromInt(100),
		Platform:       domain.PlatformSquare,
		OccurredAt:     time.Now(),
	}
	if err := attributions.SaveMatch(ctx, domain.AttributionMatch{
		MatchID:    "m-1",
		Conversion: conv,
		Status:     domain.MatchAttributed,
		MatchedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("save match: %v", err)
	}
	if err := attributions.SaveMatch(ctx, domain.AttributionMatch{
		MatchID:    "m-2",
		Conversion: conv,
		Status:     domain.MatchUnattributed,
		MatchedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("save match: %v", err)
	}

	report, err := svc.Dashboard(ctx, "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.MatchedConversions != 1 || report.UnattributedConversions != 1 {
		t.Errorf("counts matched=%d unattributed=%d, want 1/1",
			report.MatchedConversions, report.UnattributedConversions)
	}
	if !report.TotalMatchedValue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("matched value %s, want 100", report.TotalMatchedValue)
	}
	if !report.RecoveredRevenue.Equal(decimal.RequireFromString("28")) {
		t.Errorf("recovered revenue %s, want 28", report.RecoveredRevenue)
	}
}

func TestDashboardCached(t *testing.T) {
	client := &stubPlatformClient{}
	svc := newTestReportService(client, tokensFor(), nil)
	ctx := context.Background()

	if _, err := svc.Dashboard(ctx, "biz-1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	first := client.callCount()

	if _, err := svc.Dashboard(ctx, "biz-1"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if client.callCount() != first {
		t.Errorf("cached dashboard refetched platforms: %d -> %d", first, client.callCount())
	}
}

func TestOptimizeCampaignsInvalidGoal(t *testing.T) {
	svc := newTestReportService(&stubPlatformClient{}, tokensFor(), nil)

	_, err := svc.OptimizeCampaigns(context.Background(), "biz-1", "world_domination", []string{"c-1"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}

	_, err = svc.OptimizeCampaigns(context.Background(), "biz-1", "conversions", nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty campaign list: got %v, want ErrInvalidInput", err)
	}
}

func TestOptimizeCampaignsRecommendations(t *testing.T) {
	client := &stubPlatformClient{
		campaigns: map[domain.Platform][]domain.CampaignStat{
			domain.PlatformFacebook: {
				{CampaignID: "c-cheap", Name: "Cheap", Spend: decimal.NewFromInt(100), Conversions: 10, CostPerConversion: decimal.NewFromInt(10)},
				{CampaignID: "c-dead", Name: "Dead", Spend: decimal.NewFromInt(200), Conversions: 0},
				{CampaignID: "c-pricey", Name: "Pricey", Spend: decimal.NewFromInt(300), Conversions: 2, CostPerConversion: decimal.NewFromInt(150)},
			},
		},
	}
	svc := newTestReportService(client, tokensFor(domain.PlatformFacebook), nil)

	report, err := svc.OptimizeCampaigns(context.Background(), "biz-1", "conversions",
		[]string{"c-cheap", "c-dead", "c-pricey", "c-ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actions := make(map[string]string, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		actions[rec.CampaignID] = rec.Action
	}

	if actions["c-dead"] != "pause_campaign" {
		t.Errorf("c-dead action %q, want pause_campaign", actions["c-dead"])
	}
	if actions["c-cheap"] != "increase_budget" {
		t.Errorf("c-cheap action %q, want increase_budget", actions["c-cheap"])
	}
	if actions["c-pricey"] != "optimize_targeting" {
		t.Errorf("c-pricey action %q, want optimize_targeting", actions["c-pricey"])
	}
	if actions["c-ghost"] != "no_data" {
		t.Errorf("c-ghost action %q, want no_data", actions["c-ghost"])
	}
}

func TestOptimizeCampaignsDeterministic(t *testing.T) {
	client := &stubPlatformClient{
		campaigns: map[domain.Platform][]domain.CampaignStat{
			domain.PlatformGoogle: {
				{CampaignID: "c-1", Spend: decimal.NewFromInt(50), Conversions: 5, CostPerConversion: decimal.NewFromInt(10)},
			},
		},
	}
	svc := newTestReportService(client, tokensFor(domain.PlatformGoogle), nil)
	ctx := context.Background()

	first, err := svc.OptimizeCampaigns(ctx, "biz-1", "revenue", []string{"c-1"})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.OptimizeCampaigns(ctx, "biz-1", "revenue", []string{"c-1"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Recommendations[0].Action != second.Recommendations[0].Action {
		t.Errorf("recommendations differ between runs: %s vs %s",
			first.Recommendations[0].Action, second.Recommendations[0].Action)
	}
}

func TestAttributionModelsCatalog(t *testing.T) {
	svc := newTestReportService(&stubPlatformClient{}, tokensFor(), nil)

	models := svc.AttributionModels()
	if len(models) != 5 {
		t.Fatalf("catalog has %d models, want 5", len(models))
	}
	for _, m := range models {
		if !m.ID.Valid() {
			t.Errorf("catalog lists invalid model %q", m.ID)
		}
	}
}

func TestIntegrationStates(t *testing.T) {
	svc := newTestReportService(&stubPlatformClient{}, tokensFor(domain.PlatformStripe), nil)

	states := svc.IntegrationStates(context.Background(), "biz-1")
	if len(states) != 4 {
		t.Fatalf("states %d, want 4", len(states))
	}
	for _, state := range states {
		want := state.Platform == domain.PlatformStripe
		if state.Configured != want {
			t.Errorf("%s configured=%v, want %v", state.Platform, state.Configured, want)
		}
	}
}
