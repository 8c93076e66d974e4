package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"trackattr/internal/domain"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InteractionRequest is an ad-interaction tracking call. UserIdentifier is
// raw PII (email or phone) hashed before anything is stored.
type InteractionRequest struct {
	BusinessID      string                 `json:"business_id" binding:"required"`
	UserIdentifier  string                 `json:"user_identifier" binding:"required"`
	Source          domain.Platform        `json:"source" binding:"required"`
	CampaignID      string                 `json:"campaign_id"`
	InteractionType domain.InteractionType `json:"interaction_type" binding:"required"`
	OccurredAt      *time.Time             `json:"timestamp"`
}

// BookingRequest is a conversion tracking call.
type BookingRequest struct {
	BusinessID     string                  `json:"business_id" binding:"required"`
	BookingID      string                  `json:"booking_id" binding:"required"`
	UserIdentifier string                  `json:"user_identifier" binding:"required"`
	BookingValue   decimal.Decimal         `json:"booking_value"`
	Platform       domain.Platform         `json:"platform" binding:"required"`
	Model          domain.AttributionModel `json:"model"`
	OccurredAt     *time.Time              `json:"timestamp"`
}

// InteractionResult confirms a recorded touchpoint.
type InteractionResult struct {
	InteractionID  string          `json:"interaction_id"`
	IdentifierHash string          `json:"identifier_hash"`
	Source         domain.Platform `json:"source"`
	OccurredAt     time.Time       `json:"occurred_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// AttributionService orchestrates touchpoint recording and conversion
// matching. The matcher and scorer stay pure; all shared state lives in the
// injected stores.
type AttributionService struct {
	touchpoints    domain.TouchpointStore
	attributions   domain.AttributionStore
	hasher         *IdentityHasher
	matcher        *Matcher
	scorer         *ConfidenceScorer
	logger         *logger.Logger
	metrics        *metrics.Metrics
	window         time.Duration
	extendedWindow time.Duration
	defaultModel   domain.AttributionModel
	webhookSecret  string
}

func NewAttributionService(
	touchpoints domain.TouchpointStore,
	attributions domain.AttributionStore,
	hasher *IdentityHasher,
	matcher *Matcher,
	scorer *ConfidenceScorer,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	window, extendedWindow time.Duration,
	defaultModel domain.AttributionModel,
	webhookSecret string,
) *AttributionService {
	return &AttributionService{
		touchpoints:    touchpoints,
		attributions:   attributions,
		hasher:         hasher,
		matcher:        matcher,
		scorer:         scorer,
		logger:         logger,
		metrics:        metrics,
		window:         window,
		extendedWindow: extendedWindow,
		defaultModel:   defaultModel,
		webhookSecret:  webhookSecret,
	}
}

// TrackInteraction hashes the identity and records the touchpoint.
func (s *AttributionService) TrackInteraction(ctx context.Context, req InteractionRequest) (*InteractionResult, error) {
	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	tp := domain.Touchpoint{
		IdentifierHash:  s.hasher.Hash(req.UserIdentifier),
		BusinessID:      req.BusinessID,
		Source:          req.Source,
		CampaignID:      req.CampaignID,
		InteractionType: req.InteractionType,
		OccurredAt:      occurredAt,
	}

	if err := s.touchpoints.Record(ctx, tp); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Rejected interaction")
		return nil, err
	}

	s.metrics.RecordTouchpoint(string(tp.Source), string(tp.InteractionType))

	window := s.window
	if tp.InteractionType.LowConfidence() {
		window = s.extendedWindow
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"business_id":      req.BusinessID,
		"source":           tp.Source,
		"interaction_type": tp.InteractionType,
	}).Info("Tracked interaction")

	return &InteractionResult{
		InteractionID:  "int-" + uuid.New().String(),
		IdentifierHash: tp.IdentifierHash,
		Source:         tp.Source,
		OccurredAt:     occurredAt,
		ExpiresAt:      occurredAt.Add(window),
	}, nil
}

// TrackBooking validates the conversion, reconciles it against recorded
// touchpoints, scores the match, and persists both. Zero matching touchpoints
// is not an error; the caller receives a valid unattributed result.
func (s *AttributionService) TrackBooking(ctx context.Context, req BookingRequest) (*domain.AttributionMatch, error) {
	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	conversion := domain.ConversionEvent{
		IdentifierHash: s.hasher.Hash(req.UserIdentifier),
		BusinessID:     req.BusinessID,
		BookingID:      req.BookingID,
		BookingValue:   req.BookingValue,
		Platform:       req.Platform,
		OccurredAt:     occurredAt,
	}

	if err := conversion.Validate(); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("booking_id", req.BookingID).Warn("Rejected booking")
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unknown attribution model %q", domain.ErrInvalidInput, model)
	}

	// Query with the extended window, then trim entries that only qualify
	// under it back to the default window unless their interaction type earns
	// the extension.
	candidates, err := s.touchpoints.Query(ctx, conversion.IdentifierHash, s.extendedWindow, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query touchpoints: %w", err)
	}
	eligible := s.eligibleTouchpoints(candidates, occurredAt)

	match := s.matcher.Match(conversion, eligible, model)
	match.ConfidenceScore = s.scorer.Score(match)

	if err := s.attributions.SaveConversion(ctx, conversion); err != nil {
		return nil, fmt.Errorf("failed to persist conversion: %w", err)
	}
	if err := s.attributions.SaveMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to persist match: %w", err)
	}

	s.metrics.RecordMatch(string(match.ModelUsed), string(match.Status), match.ConfidenceScore)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"booking_id":  req.BookingID,
		"status":      match.Status,
		"touchpoints": len(match.Touchpoints),
		"confidence":  match.ConfidenceScore,
		"model":       match.ModelUsed,
	}).Info("Tracked booking")

	return &match, nil
}

// eligibleTouchpoints applies the per-interaction-type window: everything
// qualifies within the default window, low-confidence interaction types
// stretch to the extended window.
func (s *AttributionService) eligibleTouchpoints(candidates []domain.Touchpoint, now time.Time) []domain.Touchpoint {
	var eligible []domain.Touchpoint
	for _, tp := range candidates {
		age := now.Sub(tp.OccurredAt)
		if age <= s.window {
			eligible = append(eligible, tp)
			continue
		}
		if tp.InteractionType.LowConfidence() && age <= s.extendedWindow {
			eligible = append(eligible, tp)
		}
	}
	return eligible
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature over the raw
// payload against the shared secret. Constant-time comparison.
func (s *AttributionService) VerifyWebhookSignature(payload []byte, signature string) bool {
	if s.webhookSecret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// RunPurgeLoop sweeps expired touchpoints until the context is cancelled.
func (s *AttributionService) RunPurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purged, err := s.touchpoints.PurgeExpired(ctx, now)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).Error("Purge sweep failed")
				continue
			}
			s.metrics.RecordTouchpointsPurged(purged)
		}
	}
}
