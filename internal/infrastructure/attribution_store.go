package infrastructure

import (
	"context"
	"sync"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"
)

// implements domain.AttributionStore in memory
type AttributionStore struct {
	conversions []domain.ConversionEvent
	matches     []domain.AttributionMatch
	mutex       sync.RWMutex
	logger      *logger.Logger
}

func NewAttributionStore(logger *logger.Logger) *AttributionStore {
	return &AttributionStore{logger: logger}
}

func (s *AttributionStore) SaveConversion(ctx context.Context, ev domain.ConversionEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.conversions = append(s.conversions, ev)
	s.logger.WithContext(ctx).WithField("booking_id", ev.BookingID).Debug("Stored conversion event")
	return nil
}

func (s *AttributionStore) SaveMatch(ctx context.Context, match domain.AttributionMatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.matches = append(s.matches, match)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id":   match.MatchID,
		"booking_id": match.Conversion.BookingID,
		"status":     match.Status,
	}).Debug("Stored attribution match")
	return nil
}

func (s *AttributionStore) MatchesSince(ctx context.Context, businessID string, since time.Time) ([]domain.AttributionMatch, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []domain.AttributionMatch
	for _, match := range s.matches {
		if match.Conversion.BusinessID != businessID {
			continue
		}
		if match.MatchedAt.Before(since) {
			continue
		}
		result = append(result, match)
	}

	return result, nil
}
