package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
)

const minPasswordLength = 6

// Listener is notified of every change applied to a [SessionStore].
type Listener func(event models.AuthEvent, session *models.Session)

// SessionStore holds the current session and mirrors the identity provider.
//
// Writes come from Bootstrap and from provider events; each applied write is announced to listeners
// synchronously, in the order the writes were applied.
type SessionStore struct {
	provider services.IdentityProvider
	logger   *log.Logger

	emitMu sync.Mutex

	mu          sync.Mutex
	session     *models.Session
	version     uint64
	err         error
	closed      bool
	listeners   []Listener
	unsubscribe func()
}

// NewSessionStore creates a store subscribed to provider's change notifications.
func NewSessionStore(provider services.IdentityProvider, logger *log.Logger) *SessionStore {
	s := &SessionStore{provider: provider, logger: logger}
	s.unsubscribe = provider.OnAuthStateChange(s.OnIdentityChanged)
	return s
}

// Listen registers fn for every applied change.
func (s *SessionStore) Listen(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.listeners = append(s.listeners, fn)
	}
}

// Session returns a copy of the current session, nil when signed out.
func (s *SessionStore) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Err returns the bootstrap failure, if any. It always wraps [shared.ErrBootstrap].
func (s *SessionStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// write replaces the session and notifies listeners. When guard is non-nil the write only happens if
// guard reports true while the state lock is held.
func (s *SessionStore) write(event models.AuthEvent, session *models.Session, guard func() bool) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed || (guard != nil && !guard()) {
		s.mu.Unlock()
		return false
	}
	s.session = session.Clone()
	s.version++
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(event, session.Clone())
	}
	return true
}

// Bootstrap reads the persisted session once. It never fails: a provider error leaves the session
// untouched and is recorded for [SessionStore.Err].
//
// A provider event applied while the read was in flight is newer than the read and wins.
func (s *SessionStore) Bootstrap(ctx context.Context) *models.Session {
	s.mu.Lock()
	started := s.version
	s.mu.Unlock()

	session, err := s.provider.GetSession(ctx)
	if err != nil {
		s.logger.Warn("session bootstrap failed", "error", err)
		s.mu.Lock()
		s.err = fmt.Errorf("%w: %w", shared.ErrBootstrap, err)
		s.mu.Unlock()
		return s.Session()
	}

	applied := s.write(models.EventInitialSession, session, func() bool { return s.version == started })
	if !applied {
		s.logger.Debug("bootstrap result superseded by a newer change")
	}
	return s.Session()
}

// OnIdentityChanged applies a provider notification. Replaying the same change is harmless.
func (s *SessionStore) OnIdentityChanged(event models.AuthEvent, session *models.Session) {
	s.logger.Debug("identity changed", "event", event, "signed_in", session != nil)
	s.write(event, session, nil)
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", shared.ErrIdentity)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: %w", shared.ErrIdentity, shared.ErrWeakPassword)
	}
	return nil
}

func identityErr(err error) error {
	if errors.Is(err, shared.ErrIdentity) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrIdentity, err)
}

// adopt applies a session returned directly by the provider in case its notification hasn't arrived.
func (s *SessionStore) adopt(session *models.Session) {
	if session == nil {
		return
	}
	s.write(models.EventSignedIn, session, func() bool { return !s.session.Same(session) })
}

// SignUp registers an account. With email confirmation enabled no session results.
func (s *SessionStore) SignUp(ctx context.Context, email, password, name string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	session, err := s.provider.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(name))
	if err != nil {
		return identityErr(err)
	}
	s.adopt(session)
	return nil
}

// SignIn authenticates with email and password.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	session, err := s.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return identityErr(err)
	}
	s.adopt(session)
	return nil
}

// SignOut ends the session at the provider. The local session is cleared even when the provider fails.
func (s *SessionStore) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	if err != nil {
		s.logger.Warn("provider sign out failed, clearing local session", "error", err)
	}

	s.write(models.EventSignedOut, nil, func() bool { return s.session != nil })

	if err != nil {
		return identityErr(err)
	}
	return nil
}

// Close unsubscribes from the provider and drops every later write.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = nil
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
