package domain

import "errors"

var (
	// ErrInvalidInput marks caller mistakes (bad booking value, malformed
	// identifier, oversized date range). The only error class besides
	// ErrSignatureInvalid that surfaces as a request failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSignatureInvalid rejects a webhook whose HMAC does not verify.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrCredentialMissing is handled locally by substituting fallback data.
	ErrCredentialMissing = errors.New("platform credential missing")
)
