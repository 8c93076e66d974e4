package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"

	_ "modernc.org/sqlite"
)

// sqliteTimeFormat is fixed-width so that lexicographic comparison of the
// stored TEXT columns agrees with chronological order. RFC3339Nano would
// drop trailing fractional zeros and break windowing at sub-second
// precision.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists touchpoints, conversions and matches. It implements
// both domain.TouchpointStore and domain.AttributionStore; the
// (identifier_hash, occurred_at) index backs the matcher's windowed query.
type SQLiteStore struct {
	sql    *sql.DB
	maxAge time.Duration
	logger *logger.Logger
}

func OpenSQLiteStore(path string, maxAge time.Duration, logger *logger.Logger) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS touchpoints (
  id               INTEGER PRIMARY KEY,
  identifier_hash  TEXT NOT NULL,
  business_id      TEXT NOT NULL,
  source           TEXT NOT NULL,
  campaign_id      TEXT,
  interaction_type TEXT NOT NULL,
  occurred_at      TEXT NOT NULL,
  UNIQUE(identifier_hash, source, occurred_at)
);
CREATE INDEX IF NOT EXISTS idx_touchpoints_identity ON touchpoints(identifier_hash, occurred_at);
CREATE TABLE IF NOT EXISTS conversions (
  id               INTEGER PRIMARY KEY,
  booking_id       TEXT NOT NULL UNIQUE,
  identifier_hash  TEXT NOT NULL,
  business_id      TEXT NOT NULL,
  booking_value    TEXT NOT NULL,
  platform         TEXT NOT NULL,
  occurred_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_identity ON conversions(identifier_hash, occurred_at);
CREATE TABLE IF NOT EXISTS matches (
  id               INTEGER PRIMARY KEY,
  match_id         TEXT NOT NULL UNIQUE,
  business_id      TEXT NOT NULL,
  booking_id       TEXT NOT NULL,
  confidence_score REAL NOT NULL,
  model_used       TEXT NOT NULL,
  status           TEXT NOT NULL,
  matched_at       TEXT NOT NULL,
  payload          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_business ON matches(business_id, matched_at);
	`); err != nil {
		return nil, err
	}
	return &SQLiteStore{sql: db, maxAge: maxAge, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

func (s *SQLiteStore) Record(ctx context.Context, tp domain.Touchpoint) error {
	if err := tp.Validate(time.Now()); err != nil {
		return err
	}

	_, err := s.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO touchpoints(identifier_hash, business_id, source, campaign_id, interaction_type, occurred_at)
		 VALUES(?,?,?,?,?,?)`,
		tp.IdentifierHash, tp.BusinessID, string(tp.Source), tp.CampaignID, string(tp.InteractionType),
		tp.OccurredAt.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert touchpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, identifierHash string, window time.Duration, now time.Time) ([]domain.Touchpoint, error) {
	cutoff := now.Add(-window).UTC().Format(sqliteTimeFormat)
	upper := now.UTC().Format(sqliteTimeFormat)

	rows, err := s.sql.QueryContext(ctx,
		`SELECT identifier_hash, business_id, source, campaign_id, interaction_type, occurred_at
		 FROM touchpoints
		 WHERE identifier_hash = ? AND occurred_at >= ? AND occurred_at <= ?
		 ORDER BY occurred_at ASC, source ASC`,
		identifierHash, cutoff, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to query touchpoints: %w", err)
	}
	defer rows.Close()

	var result []domain.Touchpoint
	for rows.Next() {
		var (
			tp         domain.Touchpoint
			source     string
			itype      string
			campaignID sql.NullString
			occurredAt string
		)
		if err := rows.Scan(&tp.IdentifierHash, &tp.BusinessID, &source, &campaignID, &itype, &occurredAt); err != nil {
			return nil, err
		}
		tp.Source = domain.Platform(source)
		tp.InteractionType = domain.InteractionType(itype)
		tp.CampaignID = campaignID.String
		tp.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt occurred_at %q: %w", occurredAt, err)
		}
		result = append(result, tp)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.maxAge).UTC().Format(sqliteTimeFormat)

	res, err := s.sql.ExecContext(ctx, `DELETE FROM touchpoints WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge touchpoints: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.logger.WithContext(ctx).WithField("count", affected).Info("Purged expired touchpoints")
	}
	return int(affected), nil
}

func (s *SQLiteStore) SaveConversion(ctx context.Context, ev domain.ConversionEvent) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversions(booking_id, identifier_hash, business_id, booking_value, platform, occurred_at)
		 VALUES(?,?,?,?,?,?)`,
		ev.BookingID, ev.IdentifierHash, ev.BusinessID, ev.BookingValue.String(), string(ev.Platform),
		ev.OccurredAt.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveMatch(ctx context.Context, match domain.AttributionMatch) error {
	payload, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to encode match: %w", err)
	}

	_, err = s.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO matches(match_id, business_id, booking_id, confidence_score, model_used, status, matched_at, payload)
		 VALUES(?,?,?,?,?,?,?,?)`,
		match.MatchID, match.Conversion.BusinessID, match.Conversion.BookingID,
		match.ConfidenceScore, string(match.ModelUsed), string(match.Status),
		match.MatchedAt.UTC().Format(sqliteTimeFormat), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MatchesSince(ctx context.Context, businessID string, since time.Time) ([]domain.AttributionMatch, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT payload FROM matches WHERE business_id = ? AND matched_at >= ? ORDER BY matched_at ASC`,
		businessID, since.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var result []domain.AttributionMatch
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var match domain.AttributionMatch
		if err := json.Unmarshal([]byte(payload), &match); err != nil {
			return nil, fmt.Errorf("corrupt match payload: %w", err)
		}
		result = append(result, match)
	}
	return result, rows.Err()
}
