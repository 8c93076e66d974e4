package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackattr/internal/domain"

	"github.com/shopspring/decimal"
)

func testDateRange() domain.DateRange {
	now := time.Now()
	return domain.DateRange{From: now.AddDate(0, 0, -7), To: now}
}

func newTestClient(endpoints Endpoints) *HTTPClient {
	return NewHTTPClient(endpoints, 2*time.Second, 100, testLog, testMetrics)
}

func TestFetchMissingTokenUsesFallback(t *testing.T) {
	// No server configured at all; an empty token must short-circuit before
	// any network call.
	client := newTestClient(Endpoints{})

	record := client.Fetch(context.Background(), domain.PlatformFacebook, "", testDateRange())

	if record.FetchStatus != domain.FetchFallback {
		t.Errorf("status %s, want fallback", record.FetchStatus)
	}
	if record.Summary.AttributionConfidence != 92.5 {
		t.Errorf("fallback confidence %f, want 92.5", record.Summary.AttributionConfidence)
	}
}

func TestFetchInvalidRangeUsesFallback(t *testing.T) {
	client := newTestClient(Endpoints{})

	now := time.Now()
	backwards := domain.DateRange{From: now, To: now.AddDate(0, 0, -7)}
	record := client.Fetch(context.Background(), domain.PlatformGoogle, "token", backwards)

	if record.FetchStatus != domain.FetchFallback {
		t.Errorf("status %s, want fallback", record.FetchStatus)
	}
}

func TestFetchServerErrorUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Stripe: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformStripe, "token", testDateRange())

	if record.FetchStatus != domain.FetchFallback {
		t.Errorf("status %s, want fallback", record.FetchStatus)
	}
	if !record.Summary.TotalRevenue.Equal(decimal.RequireFromString("225")) {
		t.Errorf("fallback revenue %s, want 225", record.Summary.TotalRevenue)
	}
}

func TestFetchFacebookParsesStringNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "fb-token" {
			t.Errorf("access_token %q, want fb-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"campaign_id":"123",
			"campaign_name":"Lead Gen",
			"spend":"1847.32",
			"clicks":"234",
			"actions":[
				{"action_type":"purchase","value":"20"},
				{"action_type":"lead","value":"3"},
				{"action_type":"link_click","value":"99"}
			]
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Facebook: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformFacebook, "fb-token", testDateRange())

	if record.FetchStatus != domain.FetchLive {
		t.Fatalf("status %s, want live", record.FetchStatus)
	}
	if len(record.Campaigns) != 1 {
		t.Fatalf("campaigns %d, want 1", len(record.Campaigns))
	}

	campaign := record.Campaigns[0]
	if !campaign.Spend.Equal(decimal.RequireFromString("1847.32")) {
		t.Errorf("spend %s, want 1847.32", campaign.Spend)
	}
	if campaign.Clicks != 234 {
		t.Errorf("clicks %d, want 234", campaign.Clicks)
	}
	// Only purchase, lead, and complete_registration actions count.
	if campaign.Conversions != 23 {
		t.Errorf("conversions %d, want 23", campaign.Conversions)
	}
	if !record.Summary.TotalSpend.Equal(decimal.RequireFromString("1847.32")) {
		t.Errorf("total spend %s, want 1847.32", record.Summary.TotalSpend)
	}
}

func TestFetchGoogleConvertsMicros(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer g-token" {
			t.Errorf("authorization %q, want Bearer g-token", got)
		}
		if got := r.Header.Get("developer-token"); got != "dev-token" {
			t.Errorf("developer-token %q, want dev-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{
			"campaign":{"id":"456","name":"Search Campaign"},
			"metrics":{"costMicros":"1342150000","clicks":"189","conversions":31.2}
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Google: server.URL, GoogleDeveloperToken: "dev-token"})
	record := client.Fetch(context.Background(), domain.PlatformGoogle, "g-token", testDateRange())

	if record.FetchStatus != domain.FetchLive {
		t.Fatalf("status %s, want live", record.FetchStatus)
	}
	if len(record.Campaigns) != 1 {
		t.Fatalf("campaigns %d, want 1", len(record.Campaigns))
	}

	campaign := record.Campaigns[0]
	if !campaign.Spend.Equal(decimal.RequireFromString("1342.15")) {
		t.Errorf("spend %s, want 1342.15 from micros", campaign.Spend)
	}
	if campaign.Conversions != 31 {
		t.Errorf("conversions %d, want 31 (rounded)", campaign.Conversions)
	}
}

func TestFetchSquareCountsCompletedOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payments":[
			{"id":"p1","status":"COMPLETED","amount_money":{"amount":10050,"currency":"USD"}},
			{"id":"p2","status":"COMPLETED","amount_money":{"amount":20000,"currency":"USD"}},
			{"id":"p3","status":"FAILED","amount_money":{"amount":99999,"currency":"USD"}}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Square: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformSquare, "sq-token", testDateRange())

	if record.FetchStatus != domain.FetchLive {
		t.Fatalf("status %s, want live", record.FetchStatus)
	}
	if !record.Summary.TotalRevenue.Equal(decimal.RequireFromString("300.50")) {
		t.Errorf("revenue %s, want 300.50 from cents", record.Summary.TotalRevenue)
	}
	if record.Summary.TotalConversions != 2 {
		t.Errorf("conversions %d, want 2 completed payments", record.Summary.TotalConversions)
	}
}

func TestFetchStripeCountsSucceededOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"ch1","amount":12500,"status":"succeeded","currency":"usd"},
			{"id":"ch2","amount":10000,"status":"succeeded","currency":"usd"},
			{"id":"ch3","amount":5000,"status":"failed","currency":"usd"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Stripe: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformStripe, "sk-token", testDateRange())

	if record.FetchStatus != domain.FetchLive {
		t.Fatalf("status %s, want live", record.FetchStatus)
	}
	if !record.Summary.TotalRevenue.Equal(decimal.RequireFromString("225")) {
		t.Errorf("revenue %s, want 225.00 from cents", record.Summary.TotalRevenue)
	}
	if record.Summary.TotalConversions != 2 {
		t.Errorf("conversions %d, want 2 succeeded charges", record.Summary.TotalConversions)
	}
}

func TestFetchAuthErrorUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Facebook: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformFacebook, "expired-token", testDateRange())

	if record.FetchStatus != domain.FetchFallback {
		t.Errorf("status %s, want fallback after auth rejection", record.FetchStatus)
	}
}

func TestFetchMalformedJSONUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := newTestClient(Endpoints{Square: server.URL})
	record := client.Fetch(context.Background(), domain.PlatformSquare, "sq-token", testDateRange())

	if record.FetchStatus != domain.FetchFallback {
		t.Errorf("status %s, want fallback after parse failure", record.FetchStatus)
	}
}
