package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// IdentityHasher derives privacy-safe, stable user keys from raw PII. The
// same salt must be used on the ad-interaction side and the booking side or
// matching breaks; it is process-wide configuration, never per-call random.
type IdentityHasher struct {
	salt string
}

func NewIdentityHasher(salt string) *IdentityHasher {
	return &IdentityHasher{salt: salt}
}

// Hash returns a hex SHA-256 of the normalized identifier plus salt.
// Deterministic and one-way; raw PII is never stored.
func (h *IdentityHasher) Hash(raw string) string {
	normalized := normalizeIdentifier(raw)
	sum := sha256.Sum256([]byte(normalized + h.salt))
	return hex.EncodeToString(sum[:])
}

// normalizeIdentifier collapses equivalent formats of the same identifier to
// one canonical form: emails are trimmed and lower-cased, phone numbers are
// stripped to digits only. Anything else is trimmed and lower-cased.
func normalizeIdentifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.Contains(trimmed, "@") {
		return strings.ToLower(trimmed)
	}
	if digits, ok := phoneDigits(trimmed); ok {
		return digits
	}
	return strings.ToLower(trimmed)
}

// phoneDigits strips phone formatting. The input counts as a phone number
// only when nothing but digits and common separators remain.
func phoneDigits(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' || r == '-' || r == '(' || r == ')' || r == '.' || r == ' ':
			// separator, dropped
		default:
			return "", false
		}
	}
	if b.Len() < 7 {
		return "", false
	}
	return b.String(), true
}
