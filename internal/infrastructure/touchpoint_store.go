package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"
)

// implements domain.TouchpointStore in memory
type TouchpointStore struct {
	data   map[string][]domain.Touchpoint
	seen   map[string]struct{}
	maxAge time.Duration
	mutex  sync.RWMutex
	logger *logger.Logger
}

// NewTouchpointStore creates an in-memory touchpoint store. maxAge bounds how
// long any entry may survive before a purge sweep removes it; queries apply
// their own window on top and are authoritative.
func NewTouchpointStore(maxAge time.Duration, logger *logger.Logger) *TouchpointStore {
	return &TouchpointStore{
		data:   make(map[string][]domain.Touchpoint),
		seen:   make(map[string]struct{}),
		maxAge: maxAge,
		logger: logger,
	}
}

// Record stores a touchpoint. Duplicate (identifier_hash, source, occurred_at)
// entries are dropped silently, so webhook redeliveries are idempotent.
func (s *TouchpointStore) Record(ctx context.Context, tp domain.Touchpoint) error {
	if err := tp.Validate(time.Now()); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := tp.Key()
	if _, dup := s.seen[key]; dup {
		s.logger.WithContext(ctx).WithField("identifier_hash", tp.IdentifierHash).Debug("Duplicate touchpoint ignored")
		return nil
	}
	s.seen[key] = struct{}{}
	s.data[tp.IdentifierHash] = append(s.data[tp.IdentifierHash], tp)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"identifier_hash":  tp.IdentifierHash,
		"source":           tp.Source,
		"interaction_type": tp.InteractionType,
	}).Debug("Recorded touchpoint")

	return nil
}

// Query returns touchpoints for the identifier within [now-window, now],
// ordered by occurred_at ascending. Expired entries are filtered here even if
// no purge sweep has removed them yet.
func (s *TouchpointStore) Query(ctx context.Context, identifierHash string, window time.Duration, now time.Time) ([]domain.Touchpoint, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := now.Add(-window)

	var result []domain.Touchpoint
	for _, tp := range s.data[identifierHash] {
		if tp.OccurredAt.Before(cutoff) || tp.OccurredAt.After(now) {
			continue
		}
		result = append(result, tp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].Source < result[j].Source
		}
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, nil
}

// PurgeExpired eagerly removes entries older than the store's max age and
// returns how many were dropped.
func (s *TouchpointStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.maxAge)
	purged := 0

	for hash, touchpoints := range s.data {
		kept := touchpoints[:0]
		for _, tp := range touchpoints {
			if tp.OccurredAt.Before(cutoff) {
				delete(s.seen, tp.Key())
				purged++
				continue
			}
			kept = append(kept, tp)
		}
		if len(kept) == 0 {
			delete(s.data, hash)
			continue
		}
		s.data[hash] = kept
	}

	if purged > 0 {
		s.logger.WithContext(ctx).WithField("count", purged).Info("Purged expired touchpoints")
	}

	return purged, nil
}
