package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/repositories"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	tu "github.com/desertthunder/lenavs/internal/testing"
	"github.com/urfave/cli/v3"
)

const testEmail = "ana@example.com"

// fakeBackend is an in-memory backend that debits credits like the real one.
type fakeBackend struct {
	mu          sync.Mutex
	entitlement models.Entitlement
	calls       []string
	generateErr error
	lyrics      []string
	checkoutURL string
	currency    string
	successURL  string
	cancelURL   string
	upgrade     bool
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeBackend) GetMe(ctx context.Context) (models.Entitlement, error) {
	f.record("me")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entitlement, nil
}

func (f *fakeBackend) ConsumeCredit(ctx context.Context) error {
	f.record("consume")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.entitlement.Unlimited() {
		if f.entitlement.Credits <= 0 {
			return fmt.Errorf("%w: no credits", shared.ErrInsufficientCredits)
		}
		f.entitlement.Credits--
	}
	return nil
}

func (f *fakeBackend) GenerateVideo(ctx context.Context, req services.GenerateRequest) (string, error) {
	f.record("generate")
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return "https://cdn.example.com/video.mp4", nil
}

func (f *fakeBackend) UploadMedia(ctx context.Context, kind models.MediaKind, filename string, content io.Reader) (string, error) {
	f.record("upload")
	if _, err := io.ReadAll(content); err != nil {
		return "", err
	}
	return fmt.Sprintf("uploads/%s/%s", kind, filename), nil
}

func (f *fakeBackend) UploadLyrics(ctx context.Context, filename string, content io.Reader) (*services.LyricsResult, error) {
	f.record("lyrics-file")
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	return &services.LyricsResult{Stanzas: strings.Split(strings.TrimSpace(string(data)), "\n\n")}, nil
}

func (f *fakeBackend) ProcessLyrics(ctx context.Context, text string) (*services.LyricsResult, error) {
	f.record("lyrics-text")
	if f.lyrics != nil {
		return &services.LyricsResult{Stanzas: f.lyrics}, nil
	}
	return &services.LyricsResult{Stanzas: strings.Split(text, "\n\n")}, nil
}

func (f *fakeBackend) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (string, error) {
	f.record("checkout")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currency = req.Currency
	f.successURL = req.SuccessURL
	f.cancelURL = req.CancelURL
	if f.upgrade {
		f.entitlement = models.Entitlement{Plan: models.PlanPro, Credits: f.entitlement.Credits}
	}
	if f.checkoutURL == "" {
		return "https://checkout.example.com/cs_test", nil
	}
	return f.checkoutURL, nil
}

type harness struct {
	t        *testing.T
	runner   *Runner
	output   *bytes.Buffer
	identity *tu.FakeIdentity
	backend  *fakeBackend
	projects *repositories.ProjectRepository
	opened   []string
}

type harnessOpt func(*RunnerOpts)

func withInput(s string) harnessOpt {
	return func(o *RunnerOpts) { o.Input = strings.NewReader(s) }
}

// newHarness builds a runner over an in-memory database. signedIn seeds a stored session for testEmail.
func newHarness(t *testing.T, signedIn bool, entitlement models.Entitlement, opts ...harnessOpt) *harness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	h := &harness{
		t:        t,
		output:   &bytes.Buffer{},
		identity: &tu.FakeIdentity{},
		backend:  &fakeBackend{entitlement: entitlement},
		projects: repositories.NewProjectRepository(db),
	}
	if signedIn {
		h.identity.Stored = tu.NewSession("token-"+testEmail, testEmail)
	}

	runnerOpts := RunnerOpts{
		Logger:   log.New(io.Discard),
		Output:   h.output,
		Input:    strings.NewReader(""),
		DB:       db,
		Projects: h.projects,
		Identity: h.identity,
		Backend:  h.backend,
		OpenBrowser: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
	}
	for _, opt := range opts {
		opt(&runnerOpts)
	}

	h.runner = NewRunner(runnerOpts)
	t.Cleanup(h.runner.Close)
	return h
}

func (h *harness) run(args ...string) error {
	app := &cli.Command{
		Name:      "lenavs",
		Writer:    h.output,
		ErrWriter: io.Discard,
		Commands:  h.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"lenavs"}, args...))
}

// seedProject stores an exportable project for the signed-in user.
func (h *harness) seedProject() *models.Project {
	h.t.Helper()
	p := models.NewProject(0, "user-"+testEmail, "Canção")
	p.Media.Set(models.MediaOriginalAudio, "uploads/musicaOriginal/song.mp3")
	p.Stanzas = models.NewStanzas([]string{"first verse", "chorus"})
	p.Stanzas[0].EndTime = "00:12"
	p.Stanzas[1].StartTime = "00:12"
	p.Stanzas[1].EndTime = "00:30"
	if err := h.projects.Create(p); err != nil {
		h.t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

func (h *harness) reload(p *models.Project) *models.Project {
	h.t.Helper()
	got, err := h.projects.Get(p.ID())
	if err != nil {
		h.t.Fatalf("failed to reload project: %v", err)
	}
	return got
}

func free(credits int) models.Entitlement {
	return models.Entitlement{Plan: models.PlanFree, Credits: credits}
}
