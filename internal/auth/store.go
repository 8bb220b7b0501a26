package auth

import (
	"errors"
	"os"
	"sync"
	"time"

	"pharmacy-dashboard/models"
)

// Store holds the dashboard's credential and profile state. It is the single
// source the API client and the tracking stream read the bearer token from.
// The token is persisted to disk so a restarted dashboard resumes its session.
type Store struct {
	mu        sync.RWMutex
	tokenPath string
	token     string
	pharmacy  *models.Pharmacy
	onLogout  []func()
}

// NewStore creates a credential store persisting the token at tokenPath.
func NewStore(tokenPath string) *Store {
	return &Store{tokenPath: tokenPath}
}

// Restore loads a previously persisted token from disk. A missing file is not
// an error; an expired token is discarded.
func (s *Store) Restore() error {
	b, err := os.ReadFile(s.tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	tok := string(b)
	if c, err := InspectToken(tok); err == nil && c.Expired(time.Now()) {
		_ = os.Remove(s.tokenPath)
		return nil
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// Login stores the token and profile returned by a successful login and
// persists the token.
func (s *Store) Login(token string, pharmacy *models.Pharmacy) error {
	s.mu.Lock()
	s.token = token
	s.pharmacy = pharmacy
	s.mu.Unlock()
	return os.WriteFile(s.tokenPath, []byte(token), 0o600)
}

// Logout clears all credential state, removes the persisted token and
// invokes registered logout callbacks.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.pharmacy = nil
	cbs := make([]func(), len(s.onLogout))
	copy(cbs, s.onLogout)
	s.mu.Unlock()
	_ = os.Remove(s.tokenPath)
	for _, cb := range cbs {
		cb()
	}
}

// OnLogout registers a callback invoked after Logout clears the state.
func (s *Store) OnLogout(cb func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, cb)
	s.mu.Unlock()
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Pharmacy returns the cached pharmacy profile (may be nil).
func (s *Store) Pharmacy() *models.Pharmacy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pharmacy
}

// SetPharmacy replaces the cached pharmacy profile.
func (s *Store) SetPharmacy(p *models.Pharmacy) {
	s.mu.Lock()
	s.pharmacy = p
	s.mu.Unlock()
}

// ProfileComplete reports whether the cached profile has all onboarding
// fields filled in. False when no profile is cached.
func (s *Store) ProfileComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pharmacy != nil && s.pharmacy.ProfileComplete()
}
