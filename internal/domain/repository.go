package domain

import (
	"context"
	"time"
)

// TouchpointStore owns touchpoint lifetime and is the sole mutator of it.
// Query results are ordered by occurred_at ascending and never include
// entries older than the window, even if a purge sweep has not run yet.
type TouchpointStore interface {
	Record(ctx context.Context, tp Touchpoint) error
	Query(ctx context.Context, identifierHash string, window time.Duration, now time.Time) ([]Touchpoint, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// AttributionStore persists conversions and their reconciliation results.
type AttributionStore interface {
	SaveConversion(ctx context.Context, ev ConversionEvent) error
	SaveMatch(ctx context.Context, match AttributionMatch) error
	MatchesSince(ctx context.Context, businessID string, since time.Time) ([]AttributionMatch, error)
}

// CredentialStore resolves platform access tokens per business.
type CredentialStore interface {
	AccessToken(ctx context.Context, businessID string, platform Platform) (string, bool)
}

// PlatformClient fetches and normalizes one platform's data. Implementations
// never surface transport or auth errors; any failure yields the platform's
// fixed fallback record.
type PlatformClient interface {
	Fetch(ctx context.Context, platform Platform, token string, dateRange DateRange) PlatformRecord
}

// KeyValueStore is the injected TTL store backing the report cache.
type KeyValueStore interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}
