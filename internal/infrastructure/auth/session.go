// Package auth holds the operator session and the client for the backend's
// login and logout endpoints.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the logged in operator. The zero value is an empty session.
type Session struct {
	mu       sync.RWMutex
	user     string
	token    string
	loggedIn time.Time
	now      func() time.Time
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{now: time.Now}
}

// SessionInfo is a snapshot of the session state
type SessionInfo struct {
	User      string     `json:"user"`
	Active    bool       `json:"active"`
	LoggedIn  time.Time  `json:"logged_in_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Set records a successful login
func (s *Session) Set(user, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
	s.loggedIn = s.clock()
}

// Clear forgets the operator and token
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = ""
	s.token = ""
	s.loggedIn = time.Time{}
}

// User returns the logged in user name, empty when nobody is logged in
func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the bearer token issued at login
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsActive reports whether an operator is logged in and the token, when it
// is a JWT carrying an exp claim, has not expired. Opaque tokens stay active
// until logout.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == "" {
		return false
	}
	exp := tokenExpiry(s.token)
	return exp == nil || s.clock().Before(*exp)
}

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	user, token, loggedIn := s.user, s.token, s.loggedIn
	s.mu.RUnlock()

	return SessionInfo{
		User:      user,
		Active:    s.IsActive(),
		LoggedIn:  loggedIn,
		ExpiresAt: tokenExpiry(token),
	}
}

func (s *Session) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// tokenExpiry reads the exp claim without verifying the signature. The
// backend owns the key; the station only needs to know when to ask the
// operator to log in again.
func tokenExpiry(token string) *time.Time {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
