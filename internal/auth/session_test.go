package auth

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
	tu "github.com/desertthunder/lenavs/internal/testing"
)

func discard() *log.Logger {
	return log.New(io.Discard)
}

func TestSessionStore(t *testing.T) {
	t.Run("Bootstrap", func(t *testing.T) {
		t.Run("Recovers Persisted Session", func(t *testing.T) {
			provider := &tu.FakeIdentity{Stored: tu.NewSession("t1", "a@b.com")}
			store := NewSessionStore(provider, discard())

			session := store.Bootstrap(context.Background())
			if session == nil || session.AccessToken != "t1" {
				t.Fatalf("expected persisted session, got %+v", session)
			}
			if store.Err() != nil {
				t.Errorf("expected no error, got %v", store.Err())
			}
		})

		t.Run("No Persisted Session", func(t *testing.T) {
			store := NewSessionStore(&tu.FakeIdentity{}, discard())
			if session := store.Bootstrap(context.Background()); session != nil {
				t.Errorf("expected nil session, got %+v", session)
			}
		})

		t.Run("Failure Is Recorded Not Returned", func(t *testing.T) {
			provider := &tu.FakeIdentity{GetErr: errors.New("network down")}
			store := NewSessionStore(provider, discard())

			if session := store.Bootstrap(context.Background()); session != nil {
				t.Errorf("expected nil session, got %+v", session)
			}
			if !errors.Is(store.Err(), shared.ErrBootstrap) {
				t.Errorf("expected ErrBootstrap, got %v", store.Err())
			}
		})

		t.Run("Event During Bootstrap Wins", func(t *testing.T) {
			gate := make(chan struct{})
			entered := make(chan struct{})
			provider := &tu.FakeIdentity{Stored: tu.NewSession("stale", "a@b.com"), Gate: gate}
			store := NewSessionStore(&gatedIdentity{FakeIdentity: provider, entered: entered}, discard())

			done := make(chan *models.Session)
			go func() { done <- store.Bootstrap(context.Background()) }()

			<-entered
			provider.Emit(models.EventSignedIn, tu.NewSession("fresh", "a@b.com"))
			close(gate)

			session := <-done
			if session == nil || session.AccessToken != "fresh" {
				t.Errorf("expected event session to win, got %+v", session)
			}
		})

		t.Run("Notifies Listeners", func(t *testing.T) {
			provider := &tu.FakeIdentity{Stored: tu.NewSession("t1", "a@b.com")}
			store := NewSessionStore(provider, discard())

			var got models.AuthEvent
			store.Listen(func(e models.AuthEvent, s *models.Session) { got = e })
			store.Bootstrap(context.Background())

			if got != models.EventInitialSession {
				t.Errorf("expected INITIAL_SESSION, got %q", got)
			}
		})
	})

	t.Run("OnIdentityChanged", func(t *testing.T) {
		t.Run("Last Event Wins", func(t *testing.T) {
			provider := &tu.FakeIdentity{}
			store := NewSessionStore(provider, discard())

			sequences := [][]*models.Session{
				{tu.NewSession("a", "a@b.com"), nil, tu.NewSession("b", "a@b.com")},
				{tu.NewSession("a", "a@b.com"), tu.NewSession("b", "a@b.com"), nil},
				{nil, nil, tu.NewSession("c", "a@b.com")},
			}

			for _, seq := range sequences {
				for _, s := range seq {
					provider.Emit(models.EventTokenRefreshed, s)
				}
				last := seq[len(seq)-1]
				if !store.Session().Same(last) {
					t.Errorf("expected last event payload %+v, got %+v", last, store.Session())
				}
			}
		})

		t.Run("Idempotent", func(t *testing.T) {
			store := NewSessionStore(&tu.FakeIdentity{}, discard())
			s := tu.NewSession("a", "a@b.com")

			store.OnIdentityChanged(models.EventSignedIn, s)
			store.OnIdentityChanged(models.EventSignedIn, s)

			if !store.Session().Same(s) {
				t.Errorf("expected session %+v, got %+v", s, store.Session())
			}
		})

		t.Run("Listeners See Changes In Order", func(t *testing.T) {
			provider := &tu.FakeIdentity{}
			store := NewSessionStore(provider, discard())

			var tokens []string
			store.Listen(func(e models.AuthEvent, s *models.Session) {
				if s == nil {
					tokens = append(tokens, "-")
					return
				}
				tokens = append(tokens, s.AccessToken)
			})

			provider.Emit(models.EventSignedIn, tu.NewSession("a", "a@b.com"))
			provider.Emit(models.EventTokenRefreshed, tu.NewSession("b", "a@b.com"))
			provider.Emit(models.EventSignedOut, nil)

			expected := []string{"a", "b", "-"}
			if len(tokens) != len(expected) {
				t.Fatalf("expected %v, got %v", expected, tokens)
			}
			for i := range expected {
				if tokens[i] != expected[i] {
					t.Errorf("expected %v, got %v", expected, tokens)
				}
			}
		})

		t.Run("Listener Copies Are Isolated", func(t *testing.T) {
			provider := &tu.FakeIdentity{}
			store := NewSessionStore(provider, discard())
			store.Listen(func(e models.AuthEvent, s *models.Session) { s.AccessToken = "mutated" })

			provider.Emit(models.EventSignedIn, tu.NewSession("a", "a@b.com"))
			if store.Session().AccessToken != "a" {
				t.Error("listener mutation leaked into the store")
			}
		})
	})

	t.Run("SignIn", func(t *testing.T) {
		t.Run("Success Via Event", func(t *testing.T) {
			store := NewSessionStore(&tu.FakeIdentity{}, discard())
			if err := store.SignIn(context.Background(), "a@b.com", "secret1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if store.Session() == nil {
				t.Error("expected session after sign in")
			}
		})

		t.Run("Success Via Return Value Only", func(t *testing.T) {
			store := NewSessionStore(&silentIdentity{FakeIdentity: &tu.FakeIdentity{}}, discard())
			if err := store.SignIn(context.Background(), "a@b.com", "secret1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if store.Session() == nil {
				t.Error("expected session from the return value")
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			provider := &tu.FakeIdentity{SignInErr: errors.New("Invalid login credentials")}
			store := NewSessionStore(provider, discard())

			err := store.SignIn(context.Background(), "a@b.com", "secret1")
			if !errors.Is(err, shared.ErrIdentity) {
				t.Fatalf("expected ErrIdentity, got %v", err)
			}
			if err.Error() != "identity provider error: Invalid login credentials" {
				t.Errorf("expected provider message, got %q", err.Error())
			}
			if store.Session() != nil {
				t.Error("expected no session")
			}
		})

		t.Run("Fast Fail", func(t *testing.T) {
			tests := []struct {
				name     string
				email    string
				password string
				weak     bool
			}{
				{"empty email", "  ", "secret1", false},
				{"short password", "a@b.com", "12345", true},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					provider := &tu.FakeIdentity{SignInErr: errors.New("should not be called")}
					store := NewSessionStore(provider, discard())

					err := store.SignIn(context.Background(), tt.email, tt.password)
					if !errors.Is(err, shared.ErrIdentity) {
						t.Fatalf("expected ErrIdentity, got %v", err)
					}
					if errors.Is(err, shared.ErrWeakPassword) != tt.weak {
						t.Errorf("weak password mismatch for %v", err)
					}
					if errors.Is(err, provider.SignInErr) {
						t.Error("provider should not be called")
					}
				})
			}
		})
	})

	t.Run("SignUp", func(t *testing.T) {
		t.Run("Pending Confirmation Leaves No Session", func(t *testing.T) {
			store := NewSessionStore(&pendingIdentity{FakeIdentity: &tu.FakeIdentity{}}, discard())
			if err := store.SignUp(context.Background(), "a@b.com", "secret1", "Ana"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if store.Session() != nil {
				t.Error("expected no session until confirmation")
			}
		})

		t.Run("Live Session", func(t *testing.T) {
			store := NewSessionStore(&tu.FakeIdentity{}, discard())
			if err := store.SignUp(context.Background(), "a@b.com", "secret1", "Ana"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s := store.Session(); s == nil || s.User.Name != "Ana" {
				t.Errorf("expected session for Ana, got %+v", s)
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			provider := &tu.FakeIdentity{SignUpErr: errors.New("User already registered")}
			store := NewSessionStore(provider, discard())

			if err := store.SignUp(context.Background(), "a@b.com", "secret1", "Ana"); !errors.Is(err, shared.ErrIdentity) {
				t.Errorf("expected ErrIdentity, got %v", err)
			}
		})
	})

	t.Run("SignOut", func(t *testing.T) {
		t.Run("Provider Failure Still Clears", func(t *testing.T) {
			provider := &tu.FakeIdentity{Stored: tu.NewSession("a", "a@b.com"), SignOutErr: errors.New("offline")}
			store := NewSessionStore(provider, discard())
			store.Bootstrap(context.Background())

			err := store.SignOut(context.Background())
			if !errors.Is(err, shared.ErrIdentity) {
				t.Errorf("expected ErrIdentity, got %v", err)
			}
			if store.Session() != nil {
				t.Error("expected local session to be cleared")
			}
		})

		t.Run("Single Notification", func(t *testing.T) {
			provider := &tu.FakeIdentity{Stored: tu.NewSession("a", "a@b.com")}
			store := NewSessionStore(provider, discard())
			store.Bootstrap(context.Background())

			signedOut := 0
			store.Listen(func(e models.AuthEvent, s *models.Session) {
				if e == models.EventSignedOut {
					signedOut++
				}
			})

			if err := store.SignOut(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if signedOut != 1 {
				t.Errorf("expected one SIGNED_OUT notification, got %d", signedOut)
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		provider := &tu.FakeIdentity{}
		store := NewSessionStore(provider, discard())
		if provider.Listeners() != 1 {
			t.Fatalf("expected one subscription, got %d", provider.Listeners())
		}

		store.Close()
		store.Close()

		if provider.Listeners() != 0 {
			t.Errorf("expected subscription to be removed, got %d", provider.Listeners())
		}
		store.OnIdentityChanged(models.EventSignedIn, tu.NewSession("a", "a@b.com"))
		if store.Session() != nil {
			t.Error("expected no writes after close")
		}
	})
}

// silentIdentity returns sessions from SignInWithPassword without emitting an event.
type silentIdentity struct {
	*tu.FakeIdentity
}

func (s *silentIdentity) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return tu.NewSession("silent", email), nil
}

// pendingIdentity models sign-up with email confirmation enabled.
type pendingIdentity struct {
	*tu.FakeIdentity
}

func (p *pendingIdentity) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	return nil, nil
}

// gatedIdentity signals when GetSession has been entered.
type gatedIdentity struct {
	*tu.FakeIdentity
	entered chan struct{}
}

func (g *gatedIdentity) GetSession(ctx context.Context) (*models.Session, error) {
	close(g.entered)
	return g.FakeIdentity.GetSession(ctx)
}
