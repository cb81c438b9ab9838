// GoTrue (Supabase Auth) client
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultRefreshMargin = time.Minute
	defaultRefreshTick   = 15 * time.Second
)

// SessionStorage persists the current session across process runs.
type SessionStorage interface {
	Save(key string, session *models.Session) error
	Load(key string) (*models.Session, error)
	Clear(key string) error
}

// IdentityConfig configures an [IdentityService].
type IdentityConfig struct {
	URL           string
	AnonKey       string
	StorageKey    string
	RefreshMargin time.Duration
	RefreshTick   time.Duration
}

// IdentityService talks to a GoTrue-compatible identity provider and owns the current session.
//
// Changes are announced to subscribers in the order they are applied.
type IdentityService struct {
	cfg        IdentityConfig
	httpClient *http.Client
	storage    SessionStorage
	logger     *log.Logger
	now        func() time.Time

	mu        sync.Mutex
	session   *models.Session
	loaded    bool
	listeners map[int]func(models.AuthEvent, *models.Session)
	order     []int
	nextID    int

	emitMu sync.Mutex
}

// NewIdentityService creates an identity client. storage may be nil for an in-memory session.
func NewIdentityService(cfg IdentityConfig, client *http.Client, storage SessionStorage, logger *log.Logger) *IdentityService {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = "lenavs-auth"
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = defaultRefreshMargin
	}
	if cfg.RefreshTick <= 0 {
		cfg.RefreshTick = defaultRefreshTick
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &IdentityService{
		cfg:        cfg,
		httpClient: client,
		storage:    storage,
		logger:     logger,
		now:        time.Now,
		listeners:  map[int]func(models.AuthEvent, *models.Session){},
	}
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

// accessClaims are the parts of a GoTrue access token the client reads.
type accessClaims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// IdentityError is a rejection from the identity provider.
type IdentityError struct {
	StatusCode int
	Message    string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity provider (status %d): %s", e.StatusCode, e.Message)
}

func (e *IdentityError) Unwrap() error {
	return shared.ErrIdentity
}

// ClaimsFromToken decodes the identity claims of an access token without verifying its signature.
//
// The backend verifies tokens; the client only needs the subject, email and expiry.
func ClaimsFromToken(token string) (models.Identity, time.Time, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return models.Identity{}, time.Time{}, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return models.Identity{ID: claims.Subject, Email: claims.Email, Name: claims.UserMetadata.Name}, expiry, nil
}

func (s *IdentityService) toSession(gs gotrueSession) *models.Session {
	session := &models.Session{
		AccessToken:  gs.AccessToken,
		RefreshToken: gs.RefreshToken,
		TokenType:    gs.TokenType,
		User: models.Identity{
			ID:    gs.User.ID,
			Email: gs.User.Email,
			Name:  gs.User.UserMetadata.Name,
		},
	}

	switch {
	case gs.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(gs.ExpiresAt, 0)
	case gs.ExpiresIn > 0:
		session.ExpiresAt = s.now().Add(time.Duration(gs.ExpiresIn) * time.Second)
	}

	if session.ExpiresAt.IsZero() || session.User.ID == "" {
		if identity, expiry, err := ClaimsFromToken(gs.AccessToken); err == nil {
			if session.ExpiresAt.IsZero() {
				session.ExpiresAt = expiry
			}
			if session.User.ID == "" {
				session.User = identity
			}
		} else {
			s.logger.Debug("access token claims unreadable", "error", err)
		}
	}

	return session
}

func (s *IdentityService) do(ctx context.Context, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", s.cfg.AnonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &IdentityError{StatusCode: resp.StatusCode, Message: gotrueMessage(data, resp.StatusCode)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func gotrueMessage(body []byte, status int) string {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return http.StatusText(status)
}

// OnAuthStateChange subscribes fn to session changes and returns its unsubscribe function.
func (s *IdentityService) OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// apply replaces the session, persists it and notifies subscribers. Calls are serialized so subscribers see
// changes in the order they were applied.
func (s *IdentityService) apply(event models.AuthEvent, session *models.Session) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.session = session.Clone()
	s.loaded = true
	fns := make([]func(models.AuthEvent, *models.Session), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	if s.storage != nil {
		var err error
		if session == nil {
			err = s.storage.Clear(s.cfg.StorageKey)
		} else {
			err = s.storage.Save(s.cfg.StorageKey, session)
		}
		if err != nil {
			s.logger.Warn("failed to persist session", "event", event, "error", err)
		}
	}

	s.logger.Debug("auth state change", "event", event, "signed_in", session != nil)
	for _, fn := range fns {
		fn(event, session.Clone())
	}
}

func (s *IdentityService) current() (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone(), s.loaded
}

// GetSession returns the current session, loading it from storage on first use and refreshing it when it is
// about to expire. A nil session with a nil error means nobody is signed in.
func (s *IdentityService) GetSession(ctx context.Context) (*models.Session, error) {
	session, loaded := s.current()
	if !loaded {
		if s.storage != nil {
			stored, err := s.storage.Load(s.cfg.StorageKey)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrIdentity, err)
			}
			session = stored
		}
		s.mu.Lock()
		if !s.loaded {
			s.session = session.Clone()
			s.loaded = true
		} else {
			session = s.session.Clone()
		}
		s.mu.Unlock()
	}

	if session == nil || !session.ExpiresWithin(s.now(), s.cfg.RefreshMargin) {
		return session, nil
	}

	refreshed, err := s.RefreshSession(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrServiceUnavailable) && !session.ExpiresWithin(s.now(), 0) {
			return session, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// SignUp registers a new account. When the provider requires email confirmation no session is returned.
func (s *IdentityService) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}

	var gs gotrueSession
	if err := s.do(ctx, "/auth/v1/signup", body, "", &gs); err != nil {
		return nil, err
	}

	if gs.AccessToken == "" {
		s.logger.Info("sign up pending confirmation", "email", email)
		return nil, nil
	}

	session := s.toSession(gs)
	s.apply(models.EventSignedIn, session)
	return session.Clone(), nil
}

// SignInWithPassword exchanges credentials for a session.
func (s *IdentityService) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var gs gotrueSession
	if err := s.do(ctx, "/auth/v1/token?grant_type=password", body, "", &gs); err != nil {
		return nil, err
	}

	session := s.toSession(gs)
	s.apply(models.EventSignedIn, session)
	return session.Clone(), nil
}

// RefreshSession trades the refresh token for a new session.
//
// A rejected refresh token signs the user out.
func (s *IdentityService) RefreshSession(ctx context.Context) (*models.Session, error) {
	current, _ := s.current()
	if current == nil || current.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	var gs gotrueSession
	body := map[string]string{"refresh_token": current.RefreshToken}
	if err := s.do(ctx, "/auth/v1/token?grant_type=refresh_token", body, "", &gs); err != nil {
		var idErr *IdentityError
		if errors.As(err, &idErr) && idErr.StatusCode >= 400 && idErr.StatusCode < 500 {
			s.logger.Warn("refresh token rejected, signing out", "status", idErr.StatusCode)
			s.apply(models.EventSignedOut, nil)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	session := s.toSession(gs)
	s.apply(models.EventTokenRefreshed, session)
	return session.Clone(), nil
}

// SignOut revokes the session remotely and always clears it locally.
func (s *IdentityService) SignOut(ctx context.Context) error {
	current, _ := s.current()

	var err error
	if current != nil {
		err = s.do(ctx, "/auth/v1/logout", nil, current.AccessToken, nil)
		var idErr *IdentityError
		if errors.As(err, &idErr) && (idErr.StatusCode == http.StatusUnauthorized || idErr.StatusCode == http.StatusNotFound) {
			err = nil
		}
	}

	s.apply(models.EventSignedOut, nil)
	return err
}

// StartAutoRefresh renews the session in the background shortly before it expires, until ctx is done.
func (s *IdentityService) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.RefreshTick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				session, _ := s.current()
				if session == nil || !session.ExpiresWithin(s.now(), s.cfg.RefreshMargin) {
					continue
				}
				if _, err := s.RefreshSession(ctx); err != nil {
					s.logger.Warn("auto refresh failed", "error", err)
				}
			}
		}
	}()
}
