package session

import (
	"context"
	"sync"
	"time"

	"palantir/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the access/refresh credential pair issued by the backend at
// login. Either field may be empty; an empty access token means requests
// go out unauthenticated.
type Tokens struct {
	Access  string
	Refresh string
}

// Store persists the session between gateway restarts.
type Store interface {
	Save(ctx context.Context, tokens Tokens, user *domain.User) error
	Load(ctx context.Context) (Tokens, *domain.User, error)
	Delete(ctx context.Context) error
}

// Session is the single process-wide authentication state against the
// backend. It is always injected, never looked up ambiently, so tests
// can run against throwaway instances.
type Session struct {
	mu     sync.RWMutex
	tokens Tokens
	user   *domain.User
}

func New() *Session {
	return &Session{}
}

// Set replaces the whole session, as happens at login.
func (s *Session) Set(tokens Tokens, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.user = user
}

// SetAccess replaces only the access token, as happens after a refresh.
// The refresh token and cached user survive.
func (s *Session) SetAccess(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = access
}

// Clear wipes the session, as happens at logout or when a refresh is
// definitively rejected.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.user = nil
}

// Current returns the token pair as of this instant.
func (s *Session) Current() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// User returns the cached user record, or nil when logged out.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser updates the cached user record without touching the tokens.
func (s *Session) SetUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Authenticated reports whether an access token is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// AccessExpiry peeks at the access token's exp claim without verifying
// the signature. The token is minted and verified by the backend; we
// only read the expiry for logging. Returns false for tokens that are
// absent, malformed, or carry no expiry.
func (s *Session) AccessExpiry() (time.Time, bool) {
	s.mu.RLock()
	access := s.tokens.Access
	s.mu.RUnlock()

	if access == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
