package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/lenavs/internal/shared"
)

func TestSession(t *testing.T) {
	t.Run("Token", func(t *testing.T) {
		expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		s := &Session{AccessToken: "access", RefreshToken: "refresh", TokenType: "bearer", ExpiresAt: expiry}

		tok := s.Token()
		if tok.AccessToken != "access" {
			t.Errorf("expected access token 'access', got %q", tok.AccessToken)
		}
		if tok.TokenType != "Bearer" {
			t.Errorf("expected token type 'Bearer', got %q", tok.TokenType)
		}
		if !tok.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
		}
	})

	t.Run("Nil Token", func(t *testing.T) {
		var s *Session
		if s.Token() != nil {
			t.Error("nil session should produce nil token")
		}
	})

	t.Run("ExpiresWithin", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		tests := []struct {
			name     string
			session  *Session
			margin   time.Duration
			expected bool
		}{
			{"nil session", nil, time.Minute, true},
			{"no expiry", &Session{}, time.Hour, false},
			{"far future", &Session{ExpiresAt: now.Add(time.Hour)}, time.Minute, false},
			{"inside margin", &Session{ExpiresAt: now.Add(30 * time.Second)}, time.Minute, true},
			{"already expired", &Session{ExpiresAt: now.Add(-time.Second)}, 0, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.session.ExpiresWithin(now, tt.margin); got != tt.expected {
					t.Errorf("expected %v, got %v", tt.expected, got)
				}
			})
		}
	})

	t.Run("Same", func(t *testing.T) {
		a := &Session{AccessToken: "x", User: Identity{ID: "u1"}}
		b := &Session{AccessToken: "x", User: Identity{ID: "u1"}, RefreshToken: "other"}
		c := &Session{AccessToken: "y", User: Identity{ID: "u1"}}

		if !a.Same(b) {
			t.Error("sessions with same grant should be the same")
		}
		if a.Same(c) {
			t.Error("sessions with different tokens should differ")
		}
		if a.Same(nil) {
			t.Error("session should differ from nil")
		}
		var n *Session
		if !n.Same(nil) {
			t.Error("nil should equal nil")
		}
	})

	t.Run("Clone", func(t *testing.T) {
		a := &Session{AccessToken: "x", User: Identity{Email: "a@example.com"}}
		c := a.Clone()
		c.User.Email = "b@example.com"
		if a.User.Email != "a@example.com" {
			t.Error("mutating the clone changed the original")
		}
	})
}

func TestEntitlement(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		e := DefaultEntitlement()
		if e.Plan != PlanFree || e.Credits != 0 {
			t.Errorf("expected free/0, got %s/%d", e.Plan, e.Credits)
		}
	})

	t.Run("ParsePlan", func(t *testing.T) {
		if p, err := ParsePlan("pro"); err != nil || p != PlanPro {
			t.Errorf("expected pro, got %q (%v)", p, err)
		}
		if _, err := ParsePlan("enterprise"); err == nil {
			t.Error("expected error for unknown plan")
		}
	})

	t.Run("CanConsume", func(t *testing.T) {
		tests := []struct {
			e        Entitlement
			expected bool
		}{
			{Entitlement{Plan: PlanFree, Credits: 0}, false},
			{Entitlement{Plan: PlanFree, Credits: 2}, true},
			{Entitlement{Plan: PlanPro, Credits: 0}, true},
		}
		for _, tt := range tests {
			if got := tt.e.CanConsume(); got != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.e, tt.expected, got)
			}
		}
	})
}

func TestProject(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		if p.AudioType != AudioOriginal {
			t.Errorf("expected original audio, got %s", p.AudioType)
		}
		if p.VideoFormat != "mp4" {
			t.Errorf("expected mp4, got %s", p.VideoFormat)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("new project should be valid: %v", err)
		}
	})

	t.Run("NewStanzas", func(t *testing.T) {
		stanzas := NewStanzas([]string{"first verse", "chorus"})
		if len(stanzas) != 2 {
			t.Fatalf("expected 2 stanzas, got %d", len(stanzas))
		}
		s := stanzas[1]
		if s.ID != 1 || s.Text != "chorus" {
			t.Errorf("unexpected stanza: %+v", s)
		}
		if s.FontSize != 32 || s.FontFamily != "Montserrat" || s.Color != "#FFFFFF" || s.Alignment != "center" {
			t.Errorf("stanza should carry default styling: %+v", s)
		}
	})

	t.Run("AddStanza", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		p.Stanzas = NewStanzas([]string{"a", "b"})
		_ = p.RemoveStanza(0)

		s := p.AddStanza("c")
		if s.ID != 2 {
			t.Errorf("expected next ID 2, got %d", s.ID)
		}
		if len(p.Stanzas) != 2 {
			t.Errorf("expected 2 stanzas, got %d", len(p.Stanzas))
		}
	})

	t.Run("UpdateStanza", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		p.Stanzas = NewStanzas([]string{"a"})

		err := p.UpdateStanza(0, func(s *Stanza) {
			s.StartTime = "00:10"
			s.EndTime = "00:25"
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Stanzas[0].EndTime != "00:25" {
			t.Errorf("expected end 00:25, got %s", p.Stanzas[0].EndTime)
		}
	})

	t.Run("UpdateStanza Rejects Inverted Timing", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		p.Stanzas = NewStanzas([]string{"a"})

		err := p.UpdateStanza(0, func(s *Stanza) {
			s.StartTime = "01:00"
			s.EndTime = "00:30"
		})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Missing Stanza", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		if err := p.RemoveStanza(7); !errors.Is(err, shared.ErrStanzaNotFound) {
			t.Errorf("expected ErrStanzaNotFound, got %v", err)
		}
		if err := p.UpdateStanza(7, func(*Stanza) {}); !errors.Is(err, shared.ErrStanzaNotFound) {
			t.Errorf("expected ErrStanzaNotFound, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		p := NewProject(1, "user-1", " ")
		if err := p.Validate(); err == nil {
			t.Error("expected error for blank name")
		}

		p.Name = "Demo"
		p.VideoFormat = "gif"
		if err := p.Validate(); err == nil {
			t.Error("expected error for unsupported format")
		}
	})

	t.Run("Media", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		if p.Media.HasAudio() {
			t.Error("new project should have no audio")
		}
		if kind, _ := p.Media.Background(); kind != "color" {
			t.Errorf("expected color background, got %s", kind)
		}

		p.Media.Set(MediaInstrumentalAudio, "uploads/inst.mp3")
		p.Media.Set(MediaImage, "uploads/bg.png")
		p.AudioType = AudioInstrumental

		if p.AudioPath() != "uploads/inst.mp3" {
			t.Errorf("expected instrumental path, got %q", p.AudioPath())
		}
		if kind, path := p.Media.Background(); kind != "image" || path != "uploads/bg.png" {
			t.Errorf("expected image background, got %s %s", kind, path)
		}
	})

	t.Run("ParseMediaKind", func(t *testing.T) {
		if k, err := ParseMediaKind("instrumental"); err != nil || k != MediaInstrumentalAudio {
			t.Errorf("expected musicaInstrumental, got %q (%v)", k, err)
		}
		if _, err := ParseMediaKind("pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Touch", func(t *testing.T) {
		p := NewProject(1, "user-1", "Demo")
		now := time.Now().Add(time.Hour)
		p.Touch("abc", now)
		p.Touch("def", now)
		if p.ID() != "abc" {
			t.Errorf("ID should only be assigned once, got %s", p.ID())
		}
		if !p.UpdatedAt().Equal(now) {
			t.Error("updated at should be bumped")
		}
	})
}
