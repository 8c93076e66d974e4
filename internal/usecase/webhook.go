package usecase

import (
	"encoding/json"
	"fmt"
	"time"

	"trackattr/internal/domain"

	"github.com/shopspring/decimal"
)

// webhookPayload is the normalized shape payment platforms post after a
// completed payment. Amounts arrive in minor units (cents).
type webhookPayload struct {
	BusinessID         string     `json:"business_id"`
	PaymentID          string     `json:"payment_id"`
	CustomerIdentifier string     `json:"customer_identifier"`
	AmountCents        int64      `json:"amount_cents"`
	OccurredAt         *time.Time `json:"occurred_at"`
}

// ParseWebhookBooking decodes a verified payment webhook into a booking
// request. Cents convert to exact decimal; no floats touch the amount.
func ParseWebhookBooking(platform domain.Platform, payload []byte) (BookingRequest, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return BookingRequest{}, fmt.Errorf("%w: malformed webhook payload: %v", domain.ErrInvalidInput, err)
	}

	if p.BusinessID == "" || p.PaymentID == "" || p.CustomerIdentifier == "" {
		return BookingRequest{}, fmt.Errorf("%w: webhook payload missing business_id, payment_id, or customer_identifier", domain.ErrInvalidInput)
	}

	return BookingRequest{
		BusinessID:     p.BusinessID,
		BookingID:      p.PaymentID,
		UserIdentifier: p.CustomerIdentifier,
		BookingValue:   decimal.New(p.AmountCents, -2),
		Platform:       platform,
		OccurredAt:     p.OccurredAt,
	}, nil
}
