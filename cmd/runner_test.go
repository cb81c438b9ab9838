package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/lenavs/internal/shared"
	tu "github.com/desertthunder/lenavs/internal/testing"
	"golang.org/x/oauth2"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with identity and backend builds account and engine", func(t *testing.T) {
			h := newHarness(t, false, free(0))

			if h.runner.account == nil {
				t.Error("expected account to be set")
			}
			if h.runner.engine == nil {
				t.Error("expected engine to be set")
			}
			if h.runner.output != h.output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("without backend has no account", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Identity: &tu.FakeIdentity{}})

			if runner.account != nil || runner.engine != nil {
				t.Error("expected no account without a backend")
			}
			if _, err := runner.start(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"credits": 3}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := output.String(); got != "{\"credits\":3}\n" {
				t.Errorf("expected compact JSON, got %q", got)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(map[string]any{"fn": func() {}}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			w := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &w})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Credits: %d\n", 2); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Credits: 2\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("x"); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for _, c := range runner.register() {
			names[c.Name] = true
		}

		for _, want := range []string{"setup", "auth", "credits", "project", "media", "export", "upgrade", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("prompt", func(t *testing.T) {
		t.Run("reads a trimmed line", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader("  ana@example.com \n")})

			got, err := runner.prompt("Email")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "ana@example.com" {
				t.Errorf("expected trimmed value, got %q", got)
			}
			if output.String() != "Email: " {
				t.Errorf("expected label, got %q", output.String())
			}
		})

		t.Run("empty input is a missing argument", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("")})

			if _, err := runner.prompt("Password"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("project", func(t *testing.T) {
		h := newHarness(t, true, free(1))
		p := h.seedProject()

		t.Run("by sequence", func(t *testing.T) {
			got, err := h.runner.project("1", "user-"+testEmail)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.ID() != p.ID() {
				t.Errorf("expected %s, got %s", p.ID(), got.ID())
			}
		})

		t.Run("by id", func(t *testing.T) {
			if _, err := h.runner.project(p.ID(), "user-"+testEmail); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("hides other users' projects", func(t *testing.T) {
			if _, err := h.runner.project("1", "user-someone-else"); !errors.Is(err, shared.ErrProjectNotFound) {
				t.Errorf("expected ErrProjectNotFound, got %v", err)
			}
		})

		t.Run("empty reference", func(t *testing.T) {
			if _, err := h.runner.project("", "user-"+testEmail); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("redirectLogs", func(t *testing.T) {
		var stderr bytes.Buffer
		sink := shared.NewLogSink(&stderr)
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(sink), LogSink: sink})
		path := t.TempDir() + "/tui.log"

		restore, err := runner.redirectLogs(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		runner.logger.Info("inside dashboard")
		restore()

		if strings.Contains(stderr.String(), "inside dashboard") {
			t.Error("expected log line to stay off the terminal")
		}
		if !strings.Contains(tu.MustReadFile(t, path), "inside dashboard") {
			t.Error("expected log line in file")
		}
	})
}

func TestDeferredToken(t *testing.T) {
	t.Run("unset source is not authenticated", func(t *testing.T) {
		d := &deferredToken{}
		if _, err := d.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("delegates once set", func(t *testing.T) {
		d := &deferredToken{}
		d.set(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}))

		tok, err := d.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tok.AccessToken != "abc" {
			t.Errorf("expected delegated token, got %q", tok.AccessToken)
		}
	})
}
