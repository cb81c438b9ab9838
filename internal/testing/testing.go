// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lenavs/internal/models"
)

// FakeIdentity is a scriptable identity provider.
//
// Zero value is usable: no stored session, every call succeeds. Set Gate to hold GetSession until the test
// closes or sends on it.
type FakeIdentity struct {
	mu        sync.Mutex
	listeners map[int]func(models.AuthEvent, *models.Session)
	nextID    int

	Stored     *models.Session
	GetErr     error
	SignInErr  error
	SignUpErr  error
	SignOutErr error
	Gate       chan struct{}

	SignOutCalls int
}

func (f *FakeIdentity) GetSession(ctx context.Context) (*models.Session, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Stored.Clone(), nil
}

func (f *FakeIdentity) OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = map[int]func(models.AuthEvent, *models.Session){}
	}
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Listeners reports how many subscriptions are live.
func (f *FakeIdentity) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// Emit delivers an event to every subscriber synchronously.
func (f *FakeIdentity) Emit(event models.AuthEvent, session *models.Session) {
	f.mu.Lock()
	fns := make([]func(models.AuthEvent, *models.Session), 0, len(f.listeners))
	for i := 0; i < f.nextID; i++ {
		if fn, ok := f.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(event, session.Clone())
	}
}

func (f *FakeIdentity) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	s := NewSession("token-"+email, email)
	s.User.Name = name
	f.setStored(s)
	f.Emit(models.EventSignedIn, s)
	return s.Clone(), nil
}

func (f *FakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	s := NewSession("token-"+email, email)
	f.setStored(s)
	f.Emit(models.EventSignedIn, s)
	return s.Clone(), nil
}

func (f *FakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	err := f.SignOutErr
	if err == nil {
		f.Stored = nil
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	f.Emit(models.EventSignedOut, nil)
	return nil
}

func (f *FakeIdentity) setStored(s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stored = s.Clone()
}

// NewSession builds a session that expires in an hour.
func NewSession(token, email string) *models.Session {
	return &models.Session{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.Identity{ID: "user-" + email, Email: email},
	}
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
