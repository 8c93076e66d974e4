package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Platform-native monetary units normalize through fixed decimal exponents:
// cents-based APIs (Square, Stripe) shift by -2, micro-unit APIs (Google)
// shift by -6. Never binary floating point.
const (
	centsExponent  = -2
	microsExponent = -6
)

// Endpoints configures the base URL per platform so tests can point the
// client at local servers.
type Endpoints struct {
	Facebook string
	Google   string
	Square   string
	Stripe   string

	GoogleDeveloperToken string
}

// HTTPClient implements domain.PlatformClient against the four live platform
// APIs. Every failure path substitutes the platform's fixed fallback record;
// callers never see an error. Single attempt per fetch, no retries.
type HTTPClient struct {
	client      *http.Client
	endpoints   Endpoints
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
}

func NewHTTPClient(endpoints Endpoints, timeout time.Duration, ratePerSecond int, logger *logger.Logger, metrics *metrics.Metrics) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoints:   endpoints,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), 10),
	}
}

// Fetch normalizes one platform's data for the date range. Missing
// credentials short-circuit to fallback without a network call.
func (c *HTTPClient) Fetch(ctx context.Context, platform domain.Platform, token string, dateRange domain.DateRange) domain.PlatformRecord {
	now := time.Now()

	if token == "" {
		c.logger.WithContext(ctx).WithError(domain.ErrCredentialMissing).WithField("platform", platform).Debug("Using fallback data")
		c.metrics.RecordPlatformFallback(string(platform), "credential_missing")
		return FallbackRecord(platform, now)
	}

	if err := dateRange.Validate(); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("platform", platform).Warn("Invalid date range, using fallback data")
		c.metrics.RecordPlatformFallback(string(platform), "invalid_range")
		return FallbackRecord(platform, now)
	}

	start := time.Now()
	record, err := c.fetchLive(ctx, platform, token, dateRange)
	duration := time.Since(start)

	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("platform", platform).Warn("Platform fetch failed, using fallback data")
		c.metrics.RecordPlatformFetch(string(platform), "failed", duration)
		c.metrics.RecordPlatformFallback(string(platform), "fetch_failed")
		return FallbackRecord(platform, now)
	}

	c.metrics.RecordPlatformFetch(string(platform), "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":    platform,
		"duration":    duration,
		"campaigns":   len(record.Campaigns),
		"conversions": record.Summary.TotalConversions,
	}).Info("Successfully fetched platform data")

	return record
}

func (c *HTTPClient) fetchLive(ctx context.Context, platform domain.Platform, token string, dateRange domain.DateRange) (domain.PlatformRecord, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordPlatformFailure(string(platform), "rate_limit")
		return domain.PlatformRecord{}, fmt.Errorf("rate limit exceeded: %w", err)
	}

	switch platform {
	case domain.PlatformFacebook:
		return c.fetchFacebook(ctx, token, dateRange)
	case domain.PlatformGoogle:
		return c.fetchGoogle(ctx, token, dateRange)
	case domain.PlatformSquare:
		return c.fetchSquare(ctx, token, dateRange)
	case domain.PlatformStripe:
		return c.fetchStripe(ctx, token, dateRange)
	}
	return domain.PlatformRecord{}, fmt.Errorf("unknown platform %q", platform)
}

// Facebook Marketing API insights response. The Graph API reports numeric
// insight values as JSON strings.
type facebookInsights struct {
	Data []struct {
		CampaignID   string `json:"campaign_id"`
		CampaignName string `json:"campaign_name"`
		Spend        string `json:"spend"`
		Clicks       string `json:"clicks"`
		Actions      []struct {
			ActionType string `json:"action_type"`
			Value      string `json:"value"`
		} `json:"actions"`
	} `json:"data"`
}

func (c *HTTPClient) fetchFacebook(ctx context.Context, token string, dateRange domain.DateRange) (domain.PlatformRecord, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": dateRange.From.Format("2006-01-02"),
		"until": dateRange.To.Format("2006-01-02"),
	})
	if err != nil {
		return domain.PlatformRecord{}, fmt.Errorf("failed to encode time range: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "campaign_id,campaign_name,spend,impressions,clicks,actions")
	params.Set("level", "campaign")
	params.Set("time_range", string(timeRange))

	body, err := c.get(ctx, domain.PlatformFacebook, c.endpoints.Facebook+"/act_me/insights?"+params.Encode(), nil)
	if err != nil {
		return domain.PlatformRecord{}, err
	}

	var insights facebookInsights
	if err := json.Unmarshal(body, &insights); err != nil {
		c.metrics.RecordPlatformFailure(string(domain.PlatformFacebook), "json_parse")
		return domain.PlatformRecord{}, fmt.Errorf("failed to parse facebook insights: %w", err)
	}

	campaigns := make([]domain.CampaignStat, 0, len(insights.Data))
	totalSpend := decimal.Zero
	totalConversions := 0
	converting := 0

	for _, row := range insights.Data {
		spend, err := decimal.NewFromString(row.Spend)
		if err != nil {
			c.metrics.RecordPlatformFailure(string(domain.PlatformFacebook), "spend_parse")
			return domain.PlatformRecord{}, fmt.Errorf("unparseable facebook spend %q: %w", row.Spend, err)
		}
		clicks, _ := strconv.Atoi(row.Clicks)

		conversions := 0
		for _, action := range row.Actions {
			switch action.ActionType {
			case "purchase", "lead", "complete_registration":
				if v, err := strconv.Atoi(action.Value); err == nil {
					conversions += v
				}
			}
		}

		campaigns = append(campaigns, domain.CampaignStat{
			CampaignID:        row.CampaignID,
			Name:              row.CampaignName,
			Spend:             spend,
			Clicks:            clicks,
			Conversions:       conversions,
			CostPerConversion: costPerConversion(spend, conversions),
		})

		totalSpend = totalSpend.Add(spend)
		totalConversions += conversions
		if conversions > 0 {
			converting++
		}
	}

	return domain.PlatformRecord{
		Source:      domain.PlatformFacebook,
		FetchStatus: domain.FetchLive,
		Campaigns:   campaigns,
		Summary: domain.PlatformSummary{
			TotalSpend:            totalSpend,
			TotalConversions:      totalConversions,
			AttributionConfidence: liveConfidence(converting, len(campaigns)),
		},
		FetchedAt: time.Now(),
	}, nil
}

// Google Ads searchStream response. int64 metrics arrive as JSON strings.
type googleSearchStream struct {
	Results []struct {
		Campaign struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"campaign"`
		Metrics struct {
			CostMicros  json.Number `json:"costMicros"`
			Clicks      json.Number `json:"clicks"`
			Conversions float64     `json:"conversions"`
		} `json:"metrics"`
	} `json:"results"`
}

func (c *HTTPClient) fetchGoogle(ctx context.Context, token string, dateRange domain.DateRange) (domain.PlatformRecord, error) {
	query := fmt.Sprintf(
		"SELECT campaign.id, campaign.name, metrics.cost_micros, metrics.clicks, metrics.conversions "+
			"FROM campaign WHERE segments.date BETWEEN '%s' AND '%s' AND campaign.status = 'ENABLED'",
		dateRange.From.Format("2006-01-02"), dateRange.To.Format("2006-01-02"),
	)

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return domain.PlatformRecord{}, fmt.Errorf("failed to encode query: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}
	if c.endpoints.GoogleDeveloperToken != "" {
		headers["developer-token"] = c.endpoints.GoogleDeveloperToken
	}

	body, err := c.post(ctx, domain.PlatformGoogle, c.endpoints.Google+"/customers/me/googleAds:searchStream", payload, headers)
	if err != nil {
		return domain.PlatformRecord{}, err
	}

	var stream googleSearchStream
	if err := json.Unmarshal(body, &stream); err != nil {
		c.metrics.RecordPlatformFailure(string(domain.PlatformGoogle), "json_parse")
		return domain.PlatformRecord{}, fmt.Errorf("failed to parse google ads response: %w", err)
	}

	campaigns := make([]domain.CampaignStat, 0, len(stream.Results))
	totalSpend := decimal.Zero
	totalConversions := 0
	converting := 0

	for _, result := range stream.Results {
		micros, err := result.Metrics.CostMicros.Int64()
		if err != nil {
			c.metrics.RecordPlatformFailure(string(domain.PlatformGoogle), "cost_parse")
			return domain.PlatformRecord{}, fmt.Errorf("unparseable cost_micros %q: %w", result.Metrics.CostMicros, err)
		}
		spend := decimal.New(micros, microsExponent)

		clicks64, _ := result.Metrics.Clicks.Int64()
		conversions := int(math.Round(result.Metrics.Conversions))

		campaigns = append(campaigns, domain.CampaignStat{
			CampaignID:        result.Campaign.ID.String(),
			Name:              result.Campaign.Name,
			Spend:             spend,
			Clicks:            int(clicks64),
			Conversions:       conversions,
			CostPerConversion: costPerConversion(spend, conversions),
		})

		totalSpend = totalSpend.Add(spend)
		totalConversions += conversions
		if conversions > 0 {
			converting++
		}
	}

	return domain.PlatformRecord{
		Source:      domain.PlatformGoogle,
		FetchStatus: domain.FetchLive,
		Campaigns:   campaigns,
		Summary: domain.PlatformSummary{
			TotalSpend:            totalSpend,
			TotalConversions:      totalConversions,
			AttributionConfidence: liveConfidence(converting, len(campaigns)),
		},
		FetchedAt: time.Now(),
	}, nil
}

// Square Payments API response. Amounts are integer cents.
type squarePayments struct {
	Payments []struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		AmountMoney struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"amount_money"`
	} `json:"payments"`
}

func (c *HTTPClient) fetchSquare(ctx context.Context, token string, dateRange domain.DateRange) (domain.PlatformRecord, error) {
	params := url.Values{}
	params.Set("begin_time", dateRange.From.UTC().Format(time.RFC3339))
	params.Set("end_time", dateRange.To.UTC().Format(time.RFC3339))
	params.Set("limit", "100")

	headers := map[string]string{
		"Authorization":  "Bearer " + token,
		"Square-Version": "2023-10-18",
	}

	body, err := c.get(ctx, domain.PlatformSquare, c.endpoints.Square+"/payments?"+params.Encode(), headers)
	if err != nil {
		return domain.PlatformRecord{}, err
	}

	var payments squarePayments
	if err := json.Unmarshal(body, &payments); err != nil {
		c.metrics.RecordPlatformFailure(string(domain.PlatformSquare), "json_parse")
		return domain.PlatformRecord{}, fmt.Errorf("failed to parse square payments: %w", err)
	}

	totalRevenue := decimal.Zero
	completed := 0

	for _, payment := range payments.Payments {
		if payment.Status != "COMPLETED" {
			continue
		}
		totalRevenue = totalRevenue.Add(decimal.New(payment.AmountMoney.Amount, centsExponent))
		completed++
	}

	return domain.PlatformRecord{
		Source:      domain.PlatformSquare,
		FetchStatus: domain.FetchLive,
		Summary: domain.PlatformSummary{
			TotalRevenue:          totalRevenue,
			TotalConversions:      completed,
			AttributionConfidence: liveConfidence(completed, len(payments.Payments)),
		},
		FetchedAt: time.Now(),
	}, nil
}

// Stripe charges response. Amounts are integer cents.
type stripeCharges struct {
	Data []struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (c *HTTPClient) fetchStripe(ctx context.Context, token string, dateRange domain.DateRange) (domain.PlatformRecord, error) {
	params := url.Values{}
	params.Set("created[gte]", strconv.FormatInt(dateRange.From.Unix(), 10))
	params.Set("created[lte]", strconv.FormatInt(dateRange.To.Unix(), 10))
	params.Set("limit", "100")

	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}

	body, err := c.get(ctx, domain.PlatformStripe, c.endpoints.Stripe+"/charges?"+params.Encode(), headers)
	if err != nil {
		return domain.PlatformRecord{}, err
	}

	var charges stripeCharges
	if err := json.Unmarshal(body, &charges); err != nil {
		c.metrics.RecordPlatformFailure(string(domain.PlatformStripe), "json_parse")
		return domain.PlatformRecord{}, fmt.Errorf("failed to parse stripe charges: %w", err)
	}

	totalRevenue := decimal.Zero
	succeeded := 0

	for _, charge := range charges.Data {
		if charge.Status != "succeeded" {
			continue
		}
		totalRevenue = totalRevenue.Add(decimal.New(charge.Amount, centsExponent))
		succeeded++
	}

	return domain.PlatformRecord{
		Source:      domain.PlatformStripe,
		FetchStatus: domain.FetchLive,
		Summary: domain.PlatformSummary{
			TotalRevenue:          totalRevenue,
			TotalConversions:      succeeded,
			AttributionConfidence: liveConfidence(succeeded, len(charges.Data)),
		},
		FetchedAt: time.Now(),
	}, nil
}

func (c *HTTPClient) get(ctx context.Context, platform domain.Platform, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, platform, http.MethodGet, url, nil, headers)
}

func (c *HTTPClient) post(ctx context.Context, platform domain.Platform, url string, payload []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, platform, http.MethodPost, url, payload, headers)
}

func (c *HTTPClient) do(ctx context.Context, platform domain.Platform, method, requestURL string, payload []byte, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		c.metrics.RecordPlatformFailure(string(platform), "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordPlatformFailure(string(platform), "network_error")
		return nil, fmt.Errorf("failed to fetch %s data: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.metrics.RecordPlatformFailure(string(platform), "auth_error")
		return nil, fmt.Errorf("%s API rejected credentials with status %d", platform, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordPlatformFailure(string(platform), fmt.Sprintf("status_%d", resp.StatusCode))
		return nil, fmt.Errorf("%s API returned status %d", platform, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordPlatformFailure(string(platform), "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

func costPerConversion(spend decimal.Decimal, conversions int) decimal.Decimal {
	if conversions <= 0 {
		return decimal.Zero
	}
	return spend.Div(decimal.NewFromInt(int64(conversions))).Round(2)
}

// liveConfidence derives a confidence score from the share of qualified rows
// (converting campaigns, completed payments) in a live response.
func liveConfidence(qualified, total int) float64 {
	if total == 0 {
		return 50.0
	}
	score := 55.0 + 43.5*float64(qualified)/float64(total)
	return math.Min(score, 98.5)
}
