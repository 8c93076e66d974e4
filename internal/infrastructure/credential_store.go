package infrastructure

import (
	"context"
	"sync"

	"trackattr/internal/domain"
)

// EnvCredentialStore implements domain.CredentialStore from statically
// configured tokens. An OAuth-backed implementation would satisfy the same
// interface once token exchange lands.
type EnvCredentialStore struct {
	tokens map[domain.Platform]string
	mutex  sync.RWMutex
}

func NewEnvCredentialStore(facebook, google, square, stripe string) *EnvCredentialStore {
	tokens := make(map[domain.Platform]string)
	if facebook != "" {
		tokens[domain.PlatformFacebook] = facebook
	}
	if google != "" {
		tokens[domain.PlatformGoogle] = google
	}
	if square != "" {
		tokens[domain.PlatformSquare] = square
	}
	if stripe != "" {
		tokens[domain.PlatformStripe] = stripe
	}
	return &EnvCredentialStore{tokens: tokens}
}

// AccessToken returns the configured token for a platform. The business ID is
// accepted for interface compatibility; tokens are process-wide here.
func (s *EnvCredentialStore) AccessToken(ctx context.Context, businessID string, platform domain.Platform) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	token, ok := s.tokens[platform]
	return token, ok
}

// SetToken overrides a platform token, used by tests and the OAuth callback
// path.
func (s *EnvCredentialStore) SetToken(platform domain.Platform, token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if token == "" {
		delete(s.tokens, platform)
		return
	}
	s.tokens[platform] = token
}
