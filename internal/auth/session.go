// Package auth is the single source of truth for who is logged in.
// It keeps the bearer token in storage and the profile of its owner
// in memory.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cicconee/nugulmap/internal/nugul"
	"github.com/cicconee/nugulmap/internal/storage"
)

// API is the interface that wraps the remote calls a Session needs.
//
// ValidateToken reports whether the server accepts the token. It
// never fails.
//
// CurrentUser returns the profile behind the token, or nil.
//
// AuthorizationURL returns where a browser starts a social login.
type API interface {
	ValidateToken(ctx context.Context, token string) bool
	CurrentUser(ctx context.Context, token string) *nugul.UserProfile
	AuthorizationURL(provider string, redirectURI string) (string, error)
}

// Session holds the current bearer token and user. It is safe for
// concurrent use.
type Session struct {
	API    API
	Store  storage.Store
	Logger *slog.Logger

	// RedirectURI is where the API sends the browser after a
	// social login.
	RedirectURI string

	mu             sync.RWMutex
	token          string
	user           *nugul.UserProfile
	initialized    bool
	authenticating bool
	message        string
}

func New(api API, store storage.Store, redirectURI string, logger *slog.Logger) *Session {
	return &Session{
		API:         api,
		Store:       store,
		RedirectURI: redirectURI,
		Logger:      logger,
	}
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

// Init restores a persisted token. Without one the session settles
// as logged out. With one, the token becomes current and the profile
// is resolved.
func (s *Session) Init(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
	}()

	token, ok, err := s.Store.Get(ctx, storage.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("failed reading access token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user := s.API.CurrentUser(ctx, token)
	s.setUser(token, user)

	s.logger().Info("session restored", "logged_in", true, "profile", user != nil)
	return nil
}

// SaveToken trims raw, validates it with the API and, when valid,
// persists it and resolves its profile. An empty token is rejected
// without a request. A token the API rejects is never stored and
// leaves the current session untouched.
//
// The error is only set when the token was valid but could not be
// written to storage.
func (s *Session) SaveToken(ctx context.Context, raw string) (bool, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return false, nil
	}

	if !s.API.ValidateToken(ctx, token) {
		s.logger().Info("rejected token that failed validation")
		return false, nil
	}

	if err := s.Store.Set(ctx, storage.AccessTokenKey, token); err != nil {
		return false, fmt.Errorf("failed writing access token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	s.setUser(token, s.API.CurrentUser(ctx, token))
	return true, nil
}

// ClearToken logs out: the stored token, the in-memory token, the
// user and any message are cleared. The in-memory state is cleared
// even when storage fails.
func (s *Session) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.message = ""
	s.mu.Unlock()

	if err := s.Store.Remove(ctx, storage.AccessTokenKey); err != nil {
		return fmt.Errorf("failed removing access token: %w", err)
	}

	return nil
}

// RefreshUser resolves the profile of the current token again, or
// clears the user when there is no token.
func (s *Session) RefreshUser(ctx context.Context) {
	token := s.Token()
	if token == "" {
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		return
	}

	s.setUser(token, s.API.CurrentUser(ctx, token))
}

// setUser stores user unless the token changed while it was being
// resolved.
func (s *Session) setUser(token string, user *nugul.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		return
	}
	s.user = user
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *nugul.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}

	u := *s.user
	return &u
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Message returns the last user-facing login message.
func (s *Session) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.message
}

func (s *Session) ClearMessage() {
	s.mu.Lock()
	s.message = ""
	s.mu.Unlock()
}

// Status is a copy of the session for rendering.
type Status struct {
	LoggedIn       bool               `json:"isLoggedIn"`
	Loading        bool               `json:"isLoading"`
	Authenticating bool               `json:"isAuthenticating"`
	User           *nugul.UserProfile `json:"user"`
	Message        string             `json:"authMessage,omitempty"`
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		LoggedIn:       s.token != "",
		Loading:        !s.initialized,
		Authenticating: s.authenticating,
		Message:        s.message,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}

	return st
}
